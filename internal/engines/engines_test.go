package engines

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/dgnsrekt/sentispeech/internal/cache"
	"github.com/dgnsrekt/sentispeech/internal/speech"
)

// TestNewUnknownEngine tests the engine factory error.
func TestNewUnknownEngine(t *testing.T) {
	_, err := New("festival", Config{})
	if !errors.Is(err, speech.ErrInvalidEngine) {
		t.Errorf("expected ErrInvalidEngine, got %v", err)
	}
}

// TestNewTone tests building the tone engine with and without a cache.
func TestNewTone(t *testing.T) {
	s, err := New("tone", Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := s.(*Tone); !ok {
		t.Errorf("expected *Tone, got %T", s)
	}

	m, err := cache.NewManager(cache.Config{MemoryCapacity: 1 << 20})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close() //nolint:errcheck

	s, err = New("TONE", Config{Cache: m})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := s.(*Cached); !ok {
		t.Errorf("expected *Cached, got %T", s)
	}
}

// TestCheckText tests request validation.
func TestCheckText(t *testing.T) {
	if err := checkText("   "); !errors.Is(err, speech.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
	var se *speech.Error
	if err := checkText(strings.Repeat("a", maxTextSize+1)); !errors.As(err, &se) || se.Code != speech.ErrorCodeTextTooLong {
		t.Errorf("expected TEXT_TOO_LONG, got %v", err)
	}
	if err := checkText("hello"); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

// TestParseEspeakVoices tests reading the espeak-ng voice table.
func TestParseEspeakVoices(t *testing.T) {
	out := []byte(`Pty Language       Age/Gender VoiceName          File                 Other Languages
 5  af              --/M      Afrikaans          gmw/af
 2  en-gb           --/M      English_(Great_Britain) gmw/en            (en 2)
 5  en-us           --/M      English_(America)  gmw/en-US            (en 3)
`)
	want := []speech.Voice{
		{Name: "Afrikaans", Lang: "af", ID: "af"},
		{Name: "English (Great Britain)", Lang: "en-gb", ID: "en-gb"},
		{Name: "English (America)", Lang: "en-us", ID: "en-us"},
	}
	if got := parseEspeakVoices(out); !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

// TestEspeakArgs tests mapping rate and pitch onto espeak-ng flags.
func TestEspeakArgs(t *testing.T) {
	tests := []struct {
		name string
		req  speech.Request
		want []string
	}{
		{"defaults", speech.Request{}, []string{"--stdout", "-s", "175", "-p", "50"}},
		{"faster higher", speech.Request{Rate: 1.5, Pitch: 1.37, Voice: speech.Voice{ID: "en-us"}},
			[]string{"--stdout", "-s", "263", "-p", "69", "-v", "en-us"}},
		{"pitch clamp", speech.Request{Rate: 1, Pitch: 2}, []string{"--stdout", "-s", "175", "-p", "99"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := espeakArgs(tt.req); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGTTSArgs tests accent voice ids.
func TestGTTSArgs(t *testing.T) {
	tests := []struct {
		voice speech.Voice
		want  []string
	}{
		{speech.Voice{}, []string{"--lang", "en", "--tld", "com", "-"}},
		{speech.Voice{ID: "en@co.uk"}, []string{"--lang", "en", "--tld", "co.uk", "-"}},
		{speech.Voice{ID: "fr"}, []string{"--lang", "fr", "--tld", "com", "-"}},
	}
	for _, tt := range tests {
		if got := gttsArgs(tt.voice); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("gttsArgs(%v) = %v, want %v", tt.voice, got, tt.want)
		}
	}
}

// TestParseGTTSLanguages tests reading gtts-cli --all output.
func TestParseGTTSLanguages(t *testing.T) {
	out := []byte("  af: Afrikaans\n  en: English\n  fr: French\nnoise\n")
	want := []speech.Voice{
		{Name: "Google Afrikaans", Lang: "af", ID: "af"},
		{Name: "Google French", Lang: "fr", ID: "fr"},
	}
	if got := parseGTTSLanguages(out); !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

// TestDecodeMP3Invalid tests that garbage is reported as a format error.
func TestDecodeMP3Invalid(t *testing.T) {
	_, err := decodeMP3([]byte("definitely not mpeg audio"))
	var se *speech.Error
	if !errors.As(err, &se) || se.Code != speech.ErrorCodeAudioFormat {
		t.Errorf("expected AUDIO_FORMAT error, got %v", err)
	}
}

// TestPiperVoice tests deriving a voice from the model file name.
func TestPiperVoice(t *testing.T) {
	v := piperVoice("/models/en_US-lessac-medium.onnx")
	if v.Lang != "en_US" || v.ID != "en_US-lessac-medium" || v.Name != "Piper en_US-lessac-medium" {
		t.Errorf("unexpected voice %+v", v)
	}
}

// TestToneSynthesize tests beep length against rate and determinism.
func TestToneSynthesize(t *testing.T) {
	tone := NewTone()
	ctx := context.Background()

	normal, err := tone.Synthesize(ctx, speech.Request{Text: "one two three", Rate: 1, Pitch: 1})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if normal.SampleRate != toneSampleRate {
		t.Errorf("expected %d Hz, got %d", toneSampleRate, normal.SampleRate)
	}
	if d := normal.Duration(); d != 3*(toneWord+toneGap) {
		t.Errorf("expected %v, got %v", 3*(toneWord+toneGap), d)
	}

	fast, _ := tone.Synthesize(ctx, speech.Request{Text: "one two three", Rate: 2, Pitch: 1})
	if len(fast.PCM) != len(normal.PCM)/2 {
		t.Errorf("expected double rate to halve the audio, got %d of %d bytes", len(fast.PCM), len(normal.PCM))
	}

	again, _ := tone.Synthesize(ctx, speech.Request{Text: "one two three", Rate: 1, Pitch: 1})
	if !reflect.DeepEqual(again.PCM, normal.PCM) {
		t.Error("expected identical output for identical requests")
	}

	if _, err := tone.Synthesize(ctx, speech.Request{Text: ""}); !errors.Is(err, speech.ErrEmptyText) {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

type countingSynth struct {
	*Tone
	calls int
}

func (c *countingSynth) Synthesize(ctx context.Context, req speech.Request) (speech.Audio, error) {
	c.calls++
	return c.Tone.Synthesize(ctx, req)
}

// TestCachedSynthesizer tests that identical requests hit the cache.
func TestCachedSynthesizer(t *testing.T) {
	m, err := cache.NewManager(cache.Config{MemoryCapacity: 1 << 20})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close() //nolint:errcheck

	inner := &countingSynth{Tone: NewTone()}
	c := WithCache(inner, m)
	ctx := context.Background()
	req := speech.Request{Text: "hello there", Rate: 1, Pitch: 1}

	first, err := c.Synthesize(ctx, req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	second, err := c.Synthesize(ctx, req)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 synthesis, got %d", inner.calls)
	}
	if second.SampleRate != first.SampleRate || !reflect.DeepEqual(second.PCM, first.PCM) {
		t.Error("expected cached audio to match")
	}

	req.Rate = 1.25
	if _, err := c.Synthesize(ctx, req); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected a new rate to miss the cache, got %d calls", inner.calls)
	}
	if c.Info().Name != "tone" {
		t.Errorf("expected wrapped engine info, got %+v", c.Info())
	}
}
