package engines

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dgnsrekt/sentispeech/internal/speech"
)

const piperDefaultRate = 22050

// Piper synthesizes with a piper voice model. Each model is one voice.
type Piper struct {
	binary     string
	model      string
	config     string
	sampleRate int
}

// NewPiper checks the binary (default "piper") and the model, reading the
// output sample rate from the model's .onnx.json sidecar.
func NewPiper(binary, model string) (*Piper, error) {
	if binary == "" {
		binary = "piper"
	}
	if model == "" {
		return nil, fmt.Errorf("%w: piper needs a model path", speech.ErrEngineNotAvailable)
	}
	if _, err := os.Stat(model); err != nil {
		return nil, fmt.Errorf("%w: piper model: %w", speech.ErrEngineNotAvailable, err)
	}
	path, err := lookPath(binary)
	if err != nil {
		return nil, err
	}

	p := &Piper{
		binary:     path,
		model:      model,
		config:     model + ".json",
		sampleRate: piperDefaultRate,
	}
	if rate, err := readPiperSampleRate(p.config); err == nil && rate > 0 {
		p.sampleRate = rate
	}
	return p, nil
}

type piperModelConfig struct {
	Audio struct {
		SampleRate int `json:"sample_rate"`
	} `json:"audio"`
}

func readPiperSampleRate(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var cfg piperModelConfig
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return 0, fmt.Errorf("unable to parse %s: %w", path, err)
	}
	return cfg.Audio.SampleRate, nil
}

// Synthesize implements speech.Synthesizer. Pitch is ignored; the driver
// applies it by resampling.
func (p *Piper) Synthesize(ctx context.Context, req speech.Request) (speech.Audio, error) {
	if err := checkText(req.Text); err != nil {
		return speech.Audio{}, err
	}

	out, err := run(ctx, 10*time.Second, p.binary, p.args(req.Rate), req.Text)
	if err != nil {
		return speech.Audio{}, err
	}
	return speech.Audio{PCM: out[:len(out)-len(out)%2], SampleRate: p.sampleRate}, nil
}

func (p *Piper) args(rate float64) []string {
	if rate <= 0 {
		rate = 1
	}
	args := []string{"--model", p.model, "--output-raw", "--length-scale", fmt.Sprintf("%.2f", 1/rate)}
	if _, err := os.Stat(p.config); err == nil {
		args = append(args, "--config", p.config)
	}
	return args
}

// Voices implements speech.Synthesizer.
func (p *Piper) Voices(context.Context) ([]speech.Voice, error) {
	return []speech.Voice{piperVoice(p.model)}, nil
}

// piperVoice derives a voice from a model file name such as
// "en_US-lessac-medium.onnx".
func piperVoice(model string) speech.Voice {
	name := strings.TrimSuffix(filepath.Base(model), filepath.Ext(model))
	lang, _, _ := strings.Cut(name, "-")
	return speech.Voice{Name: "Piper " + name, Lang: lang, ID: name}
}

// Info implements speech.Synthesizer.
func (p *Piper) Info() speech.EngineInfo {
	return speech.EngineInfo{Name: "piper", NativeRate: true}
}
