package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/sentispeech/internal/audio"
	"github.com/dgnsrekt/sentispeech/internal/cache"
	"github.com/dgnsrekt/sentispeech/internal/driver"
	"github.com/dgnsrekt/sentispeech/internal/engines"
	"github.com/dgnsrekt/sentispeech/internal/narration"
	"github.com/dgnsrekt/sentispeech/internal/sentiment"
	"github.com/dgnsrekt/sentispeech/internal/speech"
	"github.com/dgnsrekt/sentispeech/utils"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

// narrator is a running narration engine and everything it owns.
type narrator struct {
	engine  *narration.Engine
	cancel  context.CancelFunc
	closers []func() error
}

// Close stops the engine and releases the driver, the audio device and the
// cache, in that order.
func (n *narrator) Close() error {
	n.cancel()
	<-n.engine.Done()

	var errs []error
	for _, c := range n.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func cacheDir() string {
	if dir := viper.GetString("cache.dir"); dir != "" {
		return utils.ExpandPath(dir)
	}
	dir, err := gap.NewScope(gap.User, "sentispeech").CacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "audio")
}

func newCache() (*cache.Manager, error) {
	cfg := cache.DefaultConfig()
	cfg.MemoryCapacity = viper.GetInt64("cache.memory_mb") << 20
	cfg.DiskCapacity = viper.GetInt64("cache.disk_mb") << 20
	cfg.DiskPath = cacheDir()
	cfg.TTL = time.Duration(viper.GetInt("cache.ttl_days")) * 24 * time.Hour
	if cfg.TTL <= 0 {
		cfg.CleanupInterval = 0
	}
	m, err := cache.NewManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to open audio cache: %w", err)
	}
	return m, nil
}

func engineConfig(c *cache.Manager) engines.Config {
	return engines.Config{
		EspeakBinary:          viper.GetString("espeak.binary"),
		PiperBinary:           viper.GetString("piper.binary"),
		PiperModel:            utils.ExpandPath(viper.GetString("piper.model")),
		GTTSBinary:            viper.GetString("gtts.binary"),
		GTTSRequestsPerMinute: viper.GetInt("gtts.requests_per_minute"),
		Cache:                 c,
	}
}

// startNarrator builds the speech stack from the configuration and runs the
// engine until Close.
func startNarrator(ctx context.Context, l narration.Listener) (*narrator, error) {
	c, err := newCache()
	if err != nil {
		return nil, err
	}

	synth, err := engines.New(viper.GetString("engine"), engineConfig(c))
	if err != nil {
		_ = c.Close()
		return nil, err //nolint:wrapcheck
	}

	player, err := audio.NewPlayer(audio.PlayerConfig{
		SampleRate: viper.GetInt("audio.sample_rate"),
		BufferSize: viper.GetInt("audio.buffer_size"),
	})
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("unable to open audio: %w", err)
	}

	drv := driver.NewSynth(synth, player)

	opts := narration.DefaultOptions()
	opts.SettleDelay = viper.GetDuration("settle")
	opts.ResumeRemaining = viper.GetBool("resume_remaining")
	opts.Settings = narration.Settings{
		Rate:    viper.GetFloat64("rate"),
		Emotion: viper.GetBool("emotion") && !noEmotion,
	}
	opts.Voice = speech.Voice{Name: viper.GetString("voice")}
	opts.Listener = l

	engine := narration.New(drv, opts)
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("narration stopped", "error", err)
		}
	}()

	log.Debug("narration started", "engine", synth.Info().Name, "voice", opts.Voice.Name)
	return &narrator{
		engine:  engine,
		cancel:  cancel,
		closers: []func() error{drv.Close, player.Close, c.Close},
	}, nil
}

// printListener prints each paragraph as it is spoken and reports when
// playback went idle.
type printListener struct {
	narration.NopListener
	w      io.Writer
	result *sentiment.Result
	idle   chan struct{}
	once   sync.Once
}

func newPrintListener(res *sentiment.Result, w io.Writer) *printListener {
	return &printListener{w: w, result: res, idle: make(chan struct{})}
}

func (l *printListener) UnitStarted(index int) {
	if index < 0 || index >= l.result.Len() {
		return
	}
	p := l.result.Paragraphs[index]
	fmt.Fprintf(l.w, "%s %s\n", keyword(fmt.Sprintf("[%d/%d %s]", index+1, l.result.Len(), p.Sentiment.Label())), p.Text)
}

func (l *printListener) PlaybackChanged(playing bool) {
	if !playing {
		l.once.Do(func() { close(l.idle) })
	}
}
