package engines

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dgnsrekt/sentispeech/internal/cache"
	"github.com/dgnsrekt/sentispeech/internal/speech"
)

// maxTextSize bounds a single request; paragraphs longer than this are
// almost certainly not prose.
const maxTextSize = 5000

// Names lists the engines New understands.
var Names = []string{"espeak", "piper", "gtts", "tone"}

// Config carries the settings of every engine. Only the fields of the
// selected engine are read.
type Config struct {
	EspeakBinary string

	PiperBinary string
	PiperModel  string

	GTTSBinary            string
	GTTSRequestsPerMinute int

	// Cache, when set, wraps the engine with WithCache.
	Cache *cache.Manager
}

// New creates the named engine.
func New(name string, cfg Config) (speech.Synthesizer, error) {
	var (
		s   speech.Synthesizer
		err error
	)

	switch strings.ToLower(name) {
	case "espeak", "espeak-ng":
		s, err = NewEspeak(cfg.EspeakBinary)
	case "piper":
		s, err = NewPiper(cfg.PiperBinary, cfg.PiperModel)
	case "gtts":
		s, err = NewGTTS(cfg.GTTSBinary, cfg.GTTSRequestsPerMinute)
	case "tone":
		s = NewTone()
	default:
		return nil, fmt.Errorf("%w: %q (want one of %s)", speech.ErrInvalidEngine, name, strings.Join(Names, ", "))
	}
	if err != nil {
		return nil, err
	}

	if cfg.Cache != nil {
		s = WithCache(s, cfg.Cache)
	}
	return s, nil
}

func checkText(text string) error {
	if strings.TrimSpace(text) == "" {
		return speech.ErrEmptyText
	}
	if len(text) > maxTextSize {
		return speech.NewError(speech.ErrorCodeTextTooLong,
			fmt.Sprintf("text too long: %d characters (max %d)", len(text), maxTextSize), nil)
	}
	return nil
}

// lookPath resolves an engine binary, mapping a miss to
// speech.ErrEngineNotAvailable.
func lookPath(binary string) (string, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return "", fmt.Errorf("%w: %s not found in PATH", speech.ErrEngineNotAvailable, binary)
	}
	return path, nil
}

// run executes one synthesis subprocess. stdin is attached before start so
// the tool never sees a half written pipe. On cancellation the process gets
// an interrupt and is killed if it has not exited 100ms later.
func run(ctx context.Context, timeout time.Duration, binary string, args []string, stdin string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 100 * time.Millisecond

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, speech.NewError(speech.ErrorCodeEngineTimeout,
				fmt.Sprintf("%s timed out after %s", binary, timeout), ctx.Err())
		case ctx.Err() != nil:
			return nil, ctx.Err()
		}
		return nil, speech.NewError(speech.ErrorCodeEngineFailure, binary+" failed", err).
			WithContext("stderr", strings.TrimSpace(stderr.String()))
	}

	if stdout.Len() == 0 {
		return nil, speech.NewError(speech.ErrorCodeEngineFailure, binary+" produced no audio", nil).
			WithContext("stderr", strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
