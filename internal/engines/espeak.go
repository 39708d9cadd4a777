package engines

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/sentispeech/internal/audio"
	"github.com/dgnsrekt/sentispeech/internal/speech"
)

const (
	espeakBaseWPM   = 175
	espeakBasePitch = 50
)

// Espeak synthesizes with espeak-ng.
type Espeak struct {
	binary string
}

// NewEspeak checks that binary (default "espeak-ng") is installed.
func NewEspeak(binary string) (*Espeak, error) {
	if binary == "" {
		binary = "espeak-ng"
	}
	path, err := lookPath(binary)
	if err != nil {
		return nil, err
	}
	return &Espeak{binary: path}, nil
}

// Synthesize implements speech.Synthesizer.
func (e *Espeak) Synthesize(ctx context.Context, req speech.Request) (speech.Audio, error) {
	if err := checkText(req.Text); err != nil {
		return speech.Audio{}, err
	}

	out, err := run(ctx, 10*time.Second, e.binary, espeakArgs(req), req.Text)
	if err != nil {
		return speech.Audio{}, err
	}
	return audio.DecodeWAV(out)
}

func espeakArgs(req speech.Request) []string {
	rate := req.Rate
	if rate <= 0 {
		rate = 1
	}
	pitch := req.Pitch
	if pitch <= 0 {
		pitch = 1
	}

	wpm := int(math.Round(espeakBaseWPM * rate))
	p := int(math.Round(espeakBasePitch * pitch))
	p = max(0, min(99, p))

	args := []string{"--stdout", "-s", strconv.Itoa(wpm), "-p", strconv.Itoa(p)}
	if v := req.Voice.Key(); v != "" {
		args = append(args, "-v", v)
	}
	return args
}

// Voices implements speech.Synthesizer.
func (e *Espeak) Voices(ctx context.Context) ([]speech.Voice, error) {
	out, err := run(ctx, 5*time.Second, e.binary, []string{"--voices"}, "")
	if err != nil {
		return nil, fmt.Errorf("unable to list espeak voices: %w", err)
	}
	return parseEspeakVoices(out), nil
}

// parseEspeakVoices reads the table printed by espeak-ng --voices:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US     (en 10)
func parseEspeakVoices(out []byte) []speech.Voice {
	var voices []speech.Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		voices = append(voices, speech.Voice{
			Name: strings.ReplaceAll(fields[3], "_", " "),
			Lang: fields[1],
			ID:   fields[1],
		})
	}
	return voices
}

// Info implements speech.Synthesizer.
func (e *Espeak) Info() speech.EngineInfo {
	return speech.EngineInfo{Name: "espeak", NativeRate: true, NativePitch: true}
}
