package narration

import (
	"math"
	"testing"

	"github.com/dgnsrekt/sentispeech/internal/sentiment"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// TestResolveParamsWorkedExample tests the documented two paragraph example.
func TestResolveParamsWorkedExample(t *testing.T) {
	s := Settings{Rate: 1, Emotion: true}

	p := ResolveParams(Unit{Text: "Great news!", Sentiment: sentiment.Positive, Score: 0.9}, s)
	if !near(p.Rate, 1.28) || !near(p.Pitch, 1.37) || p.Volume != 1 {
		t.Errorf("positive unit: got %+v, want rate 1.28 pitch 1.37 volume 1", p)
	}

	p = ResolveParams(Unit{Text: "It rained.", Sentiment: sentiment.Neutral, Score: 0.5}, s)
	if p != (Params{Rate: 1, Pitch: 1, Volume: 1}) {
		t.Errorf("neutral unit: got %+v, want rate 1 pitch 1 volume 1", p)
	}
}

// TestResolveParamsNegative tests the fallback heuristic for negative text.
func TestResolveParamsNegative(t *testing.T) {
	p := ResolveParams(Unit{Sentiment: sentiment.Negative, Score: 0.5}, Settings{Rate: 1, Emotion: true})
	if !near(p.Rate, 0.85) || !near(p.Pitch, 0.8) {
		t.Errorf("got %+v, want rate 0.85 pitch 0.8", p)
	}
}

// TestResolveParamsSpeechParamsWin tests that backend params bypass the heuristic.
func TestResolveParamsSpeechParamsWin(t *testing.T) {
	u := Unit{
		Sentiment: sentiment.Positive,
		Score:     0.9,
		Params:    &sentiment.SpeechParams{RateMultiplier: 0.8, Pitch: 0.6, Volume: 0.7},
	}

	p := ResolveParams(u, Settings{Rate: 1.5, Emotion: true})
	if !near(p.Rate, 1.2) || p.Pitch != 0.6 || p.Volume != 0.7 {
		t.Errorf("got %+v, want rate 1.2 pitch 0.6 volume 0.7", p)
	}

	heuristic := ResolveParams(Unit{Sentiment: u.Sentiment, Score: u.Score}, Settings{Rate: 1.5, Emotion: true})
	if heuristic.Pitch == p.Pitch {
		t.Error("expected the heuristic to differ from the backend params")
	}
}

// TestResolveParamsEmotionOff tests that disabled emotion yields base values.
func TestResolveParamsEmotionOff(t *testing.T) {
	u := Unit{
		Sentiment: sentiment.Positive,
		Score:     1,
		Params:    &sentiment.SpeechParams{RateMultiplier: 2, Pitch: 2, Volume: 0.5},
	}

	p := ResolveParams(u, Settings{Rate: 1.25, Emotion: false})
	if p != (Params{Rate: 1.25, Pitch: 1, Volume: 1}) {
		t.Errorf("got %+v, want base values", p)
	}
}

// TestResolveParamsVolume tests volume defaulting and clamping.
func TestResolveParamsVolume(t *testing.T) {
	s := Settings{Rate: 1, Emotion: true}

	p := ResolveParams(Unit{Params: &sentiment.SpeechParams{RateMultiplier: 1, Pitch: 1}}, s)
	if p.Volume != 1 {
		t.Errorf("expected unset volume to default to 1, got %v", p.Volume)
	}

	p = ResolveParams(Unit{Params: &sentiment.SpeechParams{RateMultiplier: 1, Pitch: 1, Volume: 1.2}}, s)
	if p.Volume != MaxVolume {
		t.Errorf("expected volume clamped to %v, got %v", MaxVolume, p.Volume)
	}
}

// TestResolveParamsBoundedAndIdempotent tests clamp bounds over a grid of inputs.
func TestResolveParamsBoundedAndIdempotent(t *testing.T) {
	sentiments := []sentiment.Sentiment{sentiment.Positive, sentiment.Neutral, sentiment.Negative, "unknown"}
	scores := []float64{0, 0.25, 0.5, 0.9, 1}
	rates := []float64{0.1, 0.5, 1, 1.75, 2, 5}
	params := []*sentiment.SpeechParams{
		nil,
		{RateMultiplier: 10, Pitch: 10, Volume: 10},
		{RateMultiplier: 0, Pitch: 0, Volume: 0},
		{RateMultiplier: 1.3, Pitch: 1.2, Volume: 1.2},
	}

	for _, s := range sentiments {
		for _, score := range scores {
			for _, rate := range rates {
				for _, sp := range params {
					for _, emotion := range []bool{true, false} {
						u := Unit{Sentiment: s, Score: score, Params: sp}
						settings := Settings{Rate: rate, Emotion: emotion}

						p := ResolveParams(u, settings)
						if p != ResolveParams(u, settings) {
							t.Fatalf("not idempotent for %+v %+v", u, settings)
						}
						if p.Rate < MinRate || p.Rate > MaxRate ||
							p.Pitch < MinPitch || p.Pitch > MaxPitch ||
							p.Volume < MinVolume || p.Volume > MaxVolume {
							t.Fatalf("out of bounds %+v for %+v %+v", p, u, settings)
						}
					}
				}
			}
		}
	}
}

// TestRateSteps tests stepping through base rate presets.
func TestRateSteps(t *testing.T) {
	tests := []struct {
		name string
		fn   func(float64) float64
		in   float64
		want float64
	}{
		{"faster from normal", FasterRate, 1.0, 1.25},
		{"faster at max", FasterRate, 2.0, 2.0},
		{"faster between steps", FasterRate, 1.1, 1.25},
		{"slower from normal", SlowerRate, 1.0, 0.75},
		{"slower at min", SlowerRate, 0.5, 0.5},
		{"slower between steps", SlowerRate, 1.1, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if r := ClampRate(0); r != 1 {
		t.Errorf("expected unset rate to become 1, got %v", r)
	}
	if r := ClampRate(3); r != MaxRate {
		t.Errorf("expected rate clamped to %v, got %v", MaxRate, r)
	}
}
