package driver

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/sentispeech/internal/audio"
	"github.com/dgnsrekt/sentispeech/internal/speech"
	"github.com/google/uuid"
)

const voicesTimeout = 10 * time.Second

// Synth is a speech.Driver that synthesizes each utterance with a
// speech.Synthesizer and plays it through a speech.AudioPlayer.
//
// Synthesizers that cannot change pitch or rate themselves get the
// difference applied by resampling: pitch is raised by declaring the audio
// faster than it was rendered, after asking the engine for a tempo slowed
// by the same factor.
type Synth struct {
	synth  speech.Synthesizer
	player speech.AudioPlayer
	events chan speech.Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	active *job
	voices []speech.Voice
	closed bool
}

type job struct {
	id     uint64
	cancel context.CancelFunc
}

// NewSynth creates a driver and starts loading the synthesizer's voices in
// the background. EventVoicesChanged is emitted once they are known.
func NewSynth(synth speech.Synthesizer, player speech.AudioPlayer) *Synth {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Synth{
		synth:  synth,
		player: player,
		events: make(chan speech.Event, 64),
		ctx:    ctx,
		cancel: cancel,
	}

	d.wg.Add(1)
	go d.loadVoices()
	return d
}

func (d *Synth) loadVoices() {
	defer d.wg.Done()

	ctx, cancel := context.WithTimeout(d.ctx, voicesTimeout)
	defer cancel()

	voices, err := d.synth.Voices(ctx)
	if err != nil {
		log.Warn("unable to list voices", "engine", d.synth.Info().Name, "error", err)
		return
	}

	d.mu.Lock()
	d.voices = voices
	d.mu.Unlock()

	log.Debug("voices loaded", "engine", d.synth.Info().Name, "count", len(voices))
	d.emit(speech.Event{Type: speech.EventVoicesChanged})
}

// Speak implements speech.Driver.
func (d *Synth) Speak(u speech.Utterance) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return speech.ErrClosed
	}
	if d.active != nil {
		return speech.ErrBusy
	}

	ctx, cancel := context.WithCancel(d.ctx)
	j := &job{id: u.ID, cancel: cancel}
	d.active = j

	d.wg.Add(1)
	go d.play(ctx, j, u)
	return nil
}

func (d *Synth) play(ctx context.Context, j *job, u speech.Utterance) {
	defer d.wg.Done()
	defer j.cancel()

	trace := uuid.NewString()
	logger := log.With("utterance", u.ID, "trace", trace)
	logger.Debug("synthesizing", "voice", u.Voice.Key(), "rate", u.Rate, "pitch", u.Pitch)

	pcm, err := d.render(ctx, u)
	if err != nil {
		d.release(j)
		if ctx.Err() != nil {
			d.emit(speech.Event{Type: speech.EventEnd, UtteranceID: u.ID})
			return
		}
		logger.Error("synthesis failed", "error", err)
		d.emit(speech.Event{Type: speech.EventError, UtteranceID: u.ID, Err: err})
		return
	}

	// Cancel holds mu while stopping the player, so a cancelled job can
	// never start playback after the fact.
	d.mu.Lock()
	if d.active != j {
		d.mu.Unlock()
		d.emit(speech.Event{Type: speech.EventEnd, UtteranceID: u.ID})
		return
	}
	if err := d.player.SetVolume(clampVolume(u.Volume)); err != nil {
		logger.Warn("unable to set volume", "error", err)
	}
	err = d.player.Play(pcm)
	d.mu.Unlock()

	if err != nil {
		d.release(j)
		logger.Error("playback failed", "error", err)
		d.emit(speech.Event{Type: speech.EventError, UtteranceID: u.ID,
			Err: speech.NewError(speech.ErrorCodeAudioFailure, "play", err)})
		return
	}

	d.emit(speech.Event{Type: speech.EventStart, UtteranceID: u.ID})

	if err := d.player.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("waiting for playback", "error", err)
	}
	d.release(j)
	logger.Debug("utterance finished", "cancelled", ctx.Err() != nil)
	d.emit(speech.Event{Type: speech.EventEnd, UtteranceID: u.ID})
}

// render synthesizes u and converts it to the player's format.
func (d *Synth) render(ctx context.Context, u speech.Utterance) ([]byte, error) {
	rate, pitch := u.Rate, u.Pitch
	if rate <= 0 {
		rate = 1
	}
	if pitch <= 0 {
		pitch = 1
	}

	info := d.synth.Info()
	req := speech.Request{Text: u.Text, Voice: u.Voice, Rate: rate, Pitch: pitch}
	shift, stretch := 1.0, 1.0
	if !info.NativePitch {
		shift, req.Pitch = pitch, 1
	}
	if info.NativeRate {
		req.Rate = rate / shift
	} else {
		req.Rate, stretch = 1, rate/shift
	}

	a, err := d.synth.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(a.PCM) == 0 {
		return nil, speech.NewError(speech.ErrorCodeAudioFormat, "synthesizer returned no audio", nil)
	}
	return audio.Adjust(a.PCM, a.SampleRate, d.player.SampleRate(), shift, stretch), nil
}

func clampVolume(v float64) float64 {
	if v <= 0 || v > 1 {
		return 1
	}
	return v
}

func (d *Synth) release(j *job) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active == j {
		d.active = nil
	}
}

func (d *Synth) emit(ev speech.Event) {
	select {
	case d.events <- ev:
	case <-d.ctx.Done():
	}
}

// Cancel implements speech.Driver. The speaking flag clears immediately;
// the cancelled utterance still reports a trailing EventEnd.
func (d *Synth) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active == nil {
		return
	}
	d.active.cancel()
	d.active = nil
	if err := d.player.Stop(); err != nil {
		log.Warn("unable to stop playback", "error", err)
	}
}

// Speaking implements speech.Driver.
func (d *Synth) Speaking() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active != nil
}

// Voices implements speech.Driver.
func (d *Synth) Voices() []speech.Voice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]speech.Voice(nil), d.voices...)
}

// Events implements speech.Driver.
func (d *Synth) Events() <-chan speech.Event {
	return d.events
}

// Close cancels any utterance, waits for background work and closes the
// event stream. The player is left open for its owner to close.
func (d *Synth) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.Cancel()
	d.cancel()
	d.wg.Wait()
	close(d.events)
	return nil
}

var _ speech.Driver = (*Synth)(nil)
