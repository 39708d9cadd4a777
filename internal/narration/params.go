package narration

import (
	"github.com/dgnsrekt/sentispeech/internal/sentiment"
)

// Bounds applied to every resolved utterance.
const (
	MinRate   = 0.5
	MaxRate   = 2.0
	MinPitch  = 0.5
	MaxPitch  = 2.0
	MinVolume = 0.5
	MaxVolume = 1.0
)

// Settings are the user-controlled inputs to parameter resolution.
type Settings struct {
	Rate    float64 // base rate, 1.0 is normal
	Emotion bool    // shape voices by sentiment
}

// Params are the concrete voice parameters of an utterance.
type Params struct {
	Rate   float64
	Pitch  float64
	Volume float64
}

// ResolveParams computes the voice parameters for a unit.
//
// Backend-provided speech params are authoritative when present; the
// sentiment heuristic only applies in their absence. With emotion disabled
// the base values are used unmodified.
func ResolveParams(u Unit, s Settings) Params {
	p := Params{Rate: s.Rate, Pitch: 1, Volume: 1}
	if p.Rate == 0 {
		p.Rate = 1
	}

	if s.Emotion {
		if sp := u.Params; sp != nil {
			p.Rate *= sp.RateMultiplier
			p.Pitch = sp.Pitch
			p.Volume = sp.Volume
		} else {
			switch u.Sentiment {
			case sentiment.Positive:
				p.Rate *= 1.1 + 0.2*u.Score
				p.Pitch = 1.1 + 0.3*u.Score
			case sentiment.Negative:
				p.Rate *= 0.9 - 0.1*u.Score
				p.Pitch = 0.9 - 0.2*u.Score
			default:
				p.Pitch = 1
			}
		}
	}

	if p.Volume == 0 {
		p.Volume = 1
	}
	p.Rate = clamp(p.Rate, MinRate, MaxRate)
	p.Pitch = clamp(p.Pitch, MinPitch, MaxPitch)
	p.Volume = clamp(p.Volume, MinVolume, MaxVolume)
	return p
}

func clamp(v, lo, hi float64) float64 {
	if v != v { // NaN
		return lo
	}
	return min(max(v, lo), hi)
}
