package engines

import (
	"context"
	"encoding/binary"
	"math"
	"strings"
	"time"

	"github.com/dgnsrekt/sentispeech/internal/speech"
)

const (
	toneSampleRate = 16000
	toneWord       = 120 * time.Millisecond
	toneGap        = 40 * time.Millisecond
	toneAmplitude  = 0.3 * math.MaxInt16
)

// toneVoices maps voice IDs to base frequencies.
var toneVoices = map[string]float64{
	"tone-a": 440,
	"tone-c": 523.25,
}

// Tone is a deterministic synthesizer that beeps once per word. It needs no
// TTS installed, which makes it useful for demos and tests.
type Tone struct{}

// NewTone creates a tone engine.
func NewTone() *Tone {
	return &Tone{}
}

// Synthesize implements speech.Synthesizer.
func (t *Tone) Synthesize(ctx context.Context, req speech.Request) (speech.Audio, error) {
	if err := checkText(req.Text); err != nil {
		return speech.Audio{}, err
	}
	if err := ctx.Err(); err != nil {
		return speech.Audio{}, err
	}

	rate, pitch := req.Rate, req.Pitch
	if rate <= 0 {
		rate = 1
	}
	if pitch <= 0 {
		pitch = 1
	}
	freq, ok := toneVoices[req.Voice.Key()]
	if !ok {
		freq = toneVoices["tone-a"]
	}
	freq *= pitch

	word := int(float64(toneSampleRate*toneWord/time.Second) / rate)
	gap := int(float64(toneSampleRate*toneGap/time.Second) / rate)
	words := len(strings.Fields(req.Text))

	pcm := make([]byte, 0, words*(word+gap)*2)
	for w := 0; w < words; w++ {
		for i := 0; i < word; i++ {
			// short linear fade avoids clicks at the edges
			env := math.Min(1, math.Min(float64(i), float64(word-i))/80)
			v := int16(toneAmplitude * env * math.Sin(2*math.Pi*freq*float64(i)/toneSampleRate))
			pcm = binary.LittleEndian.AppendUint16(pcm, uint16(v))
		}
		pcm = append(pcm, make([]byte, gap*2)...)
	}
	return speech.Audio{PCM: pcm, SampleRate: toneSampleRate}, nil
}

// Voices implements speech.Synthesizer.
func (t *Tone) Voices(context.Context) ([]speech.Voice, error) {
	return []speech.Voice{
		{Name: "Tone A", Lang: "en-US", ID: "tone-a"},
		{Name: "Tone C", Lang: "en-GB", ID: "tone-c"},
	}, nil
}

// Info implements speech.Synthesizer.
func (t *Tone) Info() speech.EngineInfo {
	return speech.EngineInfo{Name: "tone", NativeRate: true, NativePitch: true}
}
