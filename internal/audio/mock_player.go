package audio

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/sentispeech/internal/speech"
)

// PlayerState represents the current state of a player.
type PlayerState int32

const (
	StateStopped PlayerState = iota
	StatePlaying
	StateClosed
)

func (s PlayerState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MockPlayer implements speech.AudioPlayer for testing purposes.
// It simulates playback timing without producing sound.
type MockPlayer struct {
	state atomic.Int32 // PlayerState

	mu         sync.Mutex
	sampleRate int
	volume     float64
	audio      []byte
	finished   chan struct{}
	timer      *time.Timer

	// Test configuration
	delayFactor float64 // scales the simulated duration, 0 finishes at once
	playErr     error

	// Metrics for testing
	playCount atomic.Int64
	stopCount atomic.Int64
}

// NewMockPlayer creates a mock player. Playback finishes immediately unless
// SetDelayFactor is used.
func NewMockPlayer(sampleRate int) *MockPlayer {
	mp := &MockPlayer{
		sampleRate: sampleRate,
		volume:     1.0,
	}
	mp.state.Store(int32(StateStopped))
	return mp
}

// Play implements speech.AudioPlayer.
func (mp *MockPlayer) Play(pcm []byte) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if PlayerState(mp.state.Load()) == StateClosed {
		return speech.ErrClosed
	}
	if mp.playErr != nil {
		return mp.playErr
	}
	if len(pcm) == 0 {
		return errors.New("audio data is empty")
	}
	mp.stopInternal()

	mp.audio = append([]byte(nil), pcm...)
	mp.playCount.Add(1)
	mp.state.Store(int32(StatePlaying))

	finished := make(chan struct{})
	mp.finished = finished
	d := time.Duration(float64(Duration(len(pcm), mp.sampleRate)) * mp.delayFactor)
	mp.timer = time.AfterFunc(d, func() {
		mp.mu.Lock()
		defer mp.mu.Unlock()
		if mp.finished == finished {
			mp.stopInternal()
		}
	})
	return nil
}

// Wait implements speech.AudioPlayer.
func (mp *MockPlayer) Wait(ctx context.Context) error {
	mp.mu.Lock()
	finished := mp.finished
	mp.mu.Unlock()

	if finished == nil {
		return nil
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop implements speech.AudioPlayer.
func (mp *MockPlayer) Stop() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.stopCount.Add(1)
	mp.stopInternal()
	return nil
}

func (mp *MockPlayer) stopInternal() {
	if mp.timer != nil {
		mp.timer.Stop()
		mp.timer = nil
	}
	if mp.finished != nil {
		close(mp.finished)
		mp.finished = nil
	}
	if PlayerState(mp.state.Load()) == StatePlaying {
		mp.state.Store(int32(StateStopped))
	}
}

// SetVolume implements speech.AudioPlayer.
func (mp *MockPlayer) SetVolume(volume float64) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.volume = volume
	return nil
}

// SampleRate implements speech.AudioPlayer.
func (mp *MockPlayer) SampleRate() int {
	return mp.sampleRate
}

// Close implements speech.AudioPlayer.
func (mp *MockPlayer) Close() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.stopInternal()
	mp.state.Store(int32(StateClosed))
	return nil
}

// IsPlaying reports whether simulated playback is in progress.
func (mp *MockPlayer) IsPlaying() bool {
	return PlayerState(mp.state.Load()) == StatePlaying
}

// SetDelayFactor scales simulated playback time; 1.0 is real time.
func (mp *MockPlayer) SetDelayFactor(factor float64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.delayFactor = factor
}

// SetPlayError makes every Play call fail with err.
func (mp *MockPlayer) SetPlayError(err error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.playErr = err
}

// Volume returns the last volume set.
func (mp *MockPlayer) Volume() float64 {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.volume
}

// LastAudio returns a copy of the most recently played PCM.
func (mp *MockPlayer) LastAudio() []byte {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return append([]byte(nil), mp.audio...)
}

// PlayCount returns the number of successful Play calls.
func (mp *MockPlayer) PlayCount() int64 {
	return mp.playCount.Load()
}

// StopCount returns the number of Stop calls.
func (mp *MockPlayer) StopCount() int64 {
	return mp.stopCount.Load()
}

var _ speech.AudioPlayer = (*MockPlayer)(nil)
