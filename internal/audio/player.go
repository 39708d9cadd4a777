package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/sentispeech/internal/speech"
	"github.com/ebitengine/oto/v3"
)

// pollInterval is how often Wait checks whether oto drained its buffer.
const pollInterval = 20 * time.Millisecond

// Player plays mono PCM through oto. Only one oto context may exist per
// process, so create a single Player and share it.
type Player struct {
	context *oto.Context
	player  *oto.Player

	// Audio data must stay reachable while oto reads from it.
	activeStream *stream

	state  atomic.Int32  // PlayerState
	volume atomic.Uint64 // volume * 1e6

	mu      sync.RWMutex
	stateMu sync.Mutex

	sampleRate int
	bufferSize int
}

type stream struct {
	data     []byte
	reader   io.Reader
	duration time.Duration
}

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	SampleRate int // 44100 or 48000 Hz only
	BufferSize int // bytes
}

// DefaultPlayerConfig returns the default player configuration.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: 44100,
		BufferSize: 4096,
	}
}

// NewPlayer opens the audio device.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	op := &oto.NewContextOptions{
		SampleRate:   config.SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(config.BufferSize) * time.Second / time.Duration(config.SampleRate*2),
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, speech.NewError(speech.ErrorCodeAudioFailure, "unable to open audio device", err)
	}
	<-readyChan

	p := &Player{
		context:    ctx,
		sampleRate: config.SampleRate,
		bufferSize: config.BufferSize,
	}
	p.state.Store(int32(StateStopped))
	_ = p.SetVolume(1.0)

	return p, nil
}

func validateConfig(config PlayerConfig) error {
	// oto only supports specific sample rates reliably
	if config.SampleRate != 44100 && config.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", config.SampleRate)
	}
	if config.BufferSize <= 0 {
		return errors.New("buffer size must be positive")
	}
	return nil
}

// Play starts playback of mono PCM at the player's sample rate, replacing
// anything currently playing.
func (p *Player) Play(pcm []byte) error {
	if len(pcm) == 0 {
		return errors.New("audio data is empty")
	}

	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	if PlayerState(p.state.Load()) == StateClosed {
		return speech.ErrClosed
	}
	p.stopInternal()

	data := make([]byte, len(pcm))
	copy(data, pcm)
	s := &stream{
		data:     data,
		reader:   bytes.NewReader(data),
		duration: Duration(len(data), p.sampleRate),
	}

	player := p.context.NewPlayer(s.reader)
	player.SetVolume(p.getVolume())

	p.mu.Lock()
	p.player = player
	p.activeStream = s
	p.mu.Unlock()

	player.Play()
	p.state.Store(int32(StatePlaying))
	return nil
}

// Wait blocks until the current playback drained or ctx is done.
func (p *Player) Wait(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		p.mu.RLock()
		player := p.player
		p.mu.RUnlock()

		if player == nil || !player.IsPlaying() {
			p.stateMu.Lock()
			if p.player == player {
				p.stopInternal()
			}
			p.stateMu.Unlock()
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Stop stops playback and releases the stream.
func (p *Player) Stop() error {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	p.stopInternal()
	return nil
}

func (p *Player) stopInternal() {
	currentState := PlayerState(p.state.Load())
	if currentState == StateStopped || currentState == StateClosed {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player != nil {
		p.player.Pause()
		_ = p.player.Close()
		p.player = nil
	}
	p.activeStream = nil
	p.state.Store(int32(StateStopped))
}

// IsPlaying returns whether audio is currently playing.
func (p *Player) IsPlaying() bool {
	return PlayerState(p.state.Load()) == StatePlaying
}

// SetVolume sets the playback volume (0.0 to 1.0).
func (p *Player) SetVolume(volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", volume)
	}
	p.volume.Store(uint64(volume * 1000000))

	p.mu.RLock()
	if p.player != nil {
		p.player.SetVolume(volume)
	}
	p.mu.RUnlock()
	return nil
}

func (p *Player) getVolume() float64 {
	return float64(p.volume.Load()) / 1000000.0
}

// SampleRate returns the device sample rate PCM must be supplied at.
func (p *Player) SampleRate() int {
	return p.sampleRate
}

// Close releases the player. The oto context itself lives until exit.
func (p *Player) Close() error {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	p.stopInternal()
	p.state.Store(int32(StateClosed))
	return nil
}

var _ speech.AudioPlayer = (*Player)(nil)
