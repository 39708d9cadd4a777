// Package narration implements the speech narration engine: a FIFO of
// speech units drained one utterance at a time into an asynchronous speech
// driver, with interruptible playback and mid-stream reconfiguration.
package narration

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/sentispeech/internal/sentiment"
	"github.com/dgnsrekt/sentispeech/internal/speech"
	"github.com/dgnsrekt/sentispeech/internal/voice"
)

const (
	// DefaultSettleDelay is the pause between an utterance ending and the next
	// submission. Some drivers report "not speaking" slightly before they
	// accept the next utterance.
	DefaultSettleDelay = 250 * time.Millisecond

	// busyRetry is the minimum wait before re-checking a driver that reports
	// it is speaking although the engine has nothing in flight.
	busyRetry = 50 * time.Millisecond
)

// Options configure an Engine.
type Options struct {
	// SettleDelay is the pause before draining the next unit. Zero drains
	// immediately.
	SettleDelay time.Duration

	// ResumeRemaining makes reconfiguration keep the units queued behind the
	// interrupted one. By default only the interrupted unit is respoken.
	ResumeRemaining bool

	// Settings are the initial rate and emotion toggle.
	Settings Settings

	// Voice is the preferred voice. It is matched against the driver's list
	// by name; the default selection is used when it is not offered.
	Voice speech.Voice

	Listener Listener
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		SettleDelay: DefaultSettleDelay,
		Settings:    Settings{Rate: 1, Emotion: true},
	}
}

// State is a snapshot of the engine.
type State struct {
	Current  int // index of the unit in flight, -1 when none
	Queued   int
	Playing  bool
	Voice    speech.Voice
	Settings Settings
}

type inflight struct {
	unit Unit
	id   uint64
}

// Engine mediates all access to a speech driver. All state is owned by the
// goroutine running Run; exported methods hand work to it and wait.
type Engine struct {
	driver          speech.Driver
	listener        Listener
	settle          time.Duration
	resumeRemaining bool

	cmds chan func()
	wake chan uint64
	done chan struct{}

	// Owned by Run.
	settings Settings
	wanted   speech.Voice
	voice    speech.Voice
	voices   []speech.Voice
	queue    []Unit
	current  *inflight
	playing  bool
	nextID   uint64
	gen      uint64
	timer    *time.Timer
}

// New creates an engine for the given driver. Call Run to start it.
func New(driver speech.Driver, opts Options) *Engine {
	l := opts.Listener
	if l == nil {
		l = NopListener{}
	}
	settings := opts.Settings
	settings.Rate = ClampRate(settings.Rate)

	return &Engine{
		driver:          driver,
		listener:        l,
		settle:          max(opts.SettleDelay, 0),
		resumeRemaining: opts.ResumeRemaining,
		cmds:            make(chan func()),
		wake:            make(chan uint64),
		done:            make(chan struct{}),
		settings:        settings,
		wanted:          opts.Voice,
		voice:           opts.Voice,
	}
}

// Run processes commands and driver events until ctx is done. Playback is
// stopped on return.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)

	e.resolveVoices()
	events := e.driver.Events()

	for {
		select {
		case <-ctx.Done():
			e.stop()
			if e.timer != nil {
				e.timer.Stop()
			}
			return nil

		case fn := <-e.cmds:
			fn()

		case ev, ok := <-events:
			if !ok {
				log.Debug("driver event stream closed")
				events = nil
				continue
			}
			e.handle(ev)

		case gen := <-e.wake:
			if gen == e.gen {
				e.drain()
			}
		}
	}
}

// Done is closed once Run returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// exec runs fn on the engine goroutine and waits for it. It reports false
// when the engine is no longer running.
func (e *Engine) exec(fn func()) bool {
	finished := make(chan struct{})
	select {
	case e.cmds <- func() {
		defer close(finished)
		fn()
	}:
	case <-e.done:
		return false
	}
	<-finished
	return true
}

// EnqueueAll stops playback and narrates every paragraph of r in order. A
// nil or empty result is ignored.
func (e *Engine) EnqueueAll(r *sentiment.Result) {
	if r.Len() == 0 {
		return
	}
	e.exec(func() {
		e.stop()
		e.queue = unitsFrom(r)
		log.Debug("narrating result", "units", len(e.queue))
		e.drain()
	})
}

// EnqueueSingle stops playback and narrates paragraph index of r. A nil
// result or an out of range index is ignored.
func (e *Engine) EnqueueSingle(index int, r *sentiment.Result) {
	if index < 0 || index >= r.Len() {
		return
	}
	e.exec(func() {
		e.stop()
		e.queue = []Unit{unitFrom(r.Paragraphs[index], index)}
		e.drain()
	})
}

// Stop cancels the utterance in flight and clears the queue. It is safe to
// call when idle.
func (e *Engine) Stop() {
	e.exec(e.stop)
}

// SetVoice switches voices. The unit in flight, if any, is restarted with
// the new voice.
func (e *Engine) SetVoice(v speech.Voice) {
	e.exec(func() {
		e.wanted = v
		if v.Key() == e.voice.Key() {
			return
		}
		e.voice = v
		log.Debug("voice changed", "voice", v.Name)
		e.reconfigure()
	})
}

// SetRate changes the base rate. The unit in flight, if any, is restarted
// at the new rate.
func (e *Engine) SetRate(rate float64) {
	rate = ClampRate(rate)
	e.exec(func() {
		if rate == e.settings.Rate {
			return
		}
		e.settings.Rate = rate
		log.Debug("rate changed", "rate", rate)
		e.reconfigure()
	})
}

// SetEmotion toggles sentiment shaping for subsequently submitted units.
func (e *Engine) SetEmotion(on bool) {
	e.exec(func() {
		e.settings.Emotion = on
	})
}

// State returns a snapshot of the engine.
func (e *Engine) State() State {
	s := State{Current: -1}
	e.exec(func() {
		s = e.snapshot()
	})
	return s
}

// Voices returns the driver's voices, English first.
func (e *Engine) Voices() []speech.Voice {
	var vs []speech.Voice
	e.exec(func() {
		vs = append(vs, e.voices...)
	})
	return vs
}

func (e *Engine) snapshot() State {
	s := State{
		Current:  -1,
		Queued:   len(e.queue),
		Playing:  e.playing,
		Voice:    e.voice,
		Settings: e.settings,
	}
	if e.current != nil {
		s.Current = e.current.unit.Index
	}
	return s
}

func (e *Engine) handle(ev speech.Event) {
	switch ev.Type {
	case speech.EventVoicesChanged:
		e.resolveVoices()

	case speech.EventStart:
		if !e.isCurrent(ev.UtteranceID) {
			log.Debug("ignoring stale start", "utterance", ev.UtteranceID)
			return
		}
		e.listener.UnitStarted(e.current.unit.Index)

	case speech.EventEnd, speech.EventError:
		if !e.isCurrent(ev.UtteranceID) {
			log.Debug("ignoring stale completion", "utterance", ev.UtteranceID, "type", ev.Type)
			return
		}
		if ev.Err != nil {
			log.Warn("utterance failed", "index", e.current.unit.Index, "error", ev.Err)
		}
		e.finish()
	}
}

func (e *Engine) isCurrent(id uint64) bool {
	return e.current != nil && e.current.id == id
}

// busy reports whether the driver holds an utterance.
func (e *Engine) busy() bool {
	return e.current != nil || e.driver.Speaking()
}

// drain submits the head of the queue unless the queue is empty or the
// driver is busy. It never blocks.
func (e *Engine) drain() {
	if len(e.queue) == 0 || e.current != nil {
		return
	}
	if e.driver.Speaking() {
		e.scheduleDrain(max(e.settle, busyRetry))
		return
	}

	u := e.queue[0]
	e.queue = e.queue[1:]
	e.nextID++
	e.current = &inflight{unit: u, id: e.nextID}
	e.setPlaying(true)

	p := ResolveParams(u, e.settings)
	utt := speech.Utterance{
		ID:     e.nextID,
		Text:   u.Text,
		Voice:  e.voice,
		Rate:   p.Rate,
		Pitch:  p.Pitch,
		Volume: p.Volume,
	}
	log.Debug("speaking unit", "index", u.Index, "utterance", utt.ID,
		"rate", p.Rate, "pitch", p.Pitch, "volume", p.Volume)

	if err := e.driver.Speak(utt); err != nil {
		if errors.Is(err, speech.ErrBusy) {
			e.current = nil
			e.queue = append([]Unit{u}, e.queue...)
			e.scheduleDrain(max(e.settle, busyRetry))
			return
		}
		log.Warn("unable to speak unit", "index", u.Index, "error", err)
		e.finish()
	}
}

// finish completes the unit in flight and schedules the next one.
func (e *Engine) finish() {
	idx := e.current.unit.Index
	e.current = nil
	e.listener.UnitEnded(idx)
	if len(e.queue) == 0 {
		e.setPlaying(false)
		return
	}
	e.scheduleDrain(e.settle)
}

func (e *Engine) scheduleDrain(d time.Duration) {
	if d <= 0 {
		e.drain()
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	gen := e.gen
	e.timer = time.AfterFunc(d, func() {
		select {
		case e.wake <- gen:
		case <-e.done:
		}
	})
}

// stop cancels the driver and resets all playback state.
func (e *Engine) stop() {
	if e.busy() {
		e.driver.Cancel()
	}
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.queue = nil
	if e.current != nil {
		idx := e.current.unit.Index
		e.current = nil
		e.listener.UnitEnded(idx)
	}
	e.setPlaying(false)
}

// reconfigure restarts the unit in flight with the current settings.
func (e *Engine) reconfigure() {
	if e.current == nil {
		return
	}
	captured := e.current.unit
	rest := e.queue

	e.stop()
	e.queue = []Unit{captured}
	if e.resumeRemaining {
		e.queue = append(e.queue, rest...)
	}
	e.drain()
}

func (e *Engine) setPlaying(playing bool) {
	if e.playing == playing {
		return
	}
	e.playing = playing
	e.listener.PlaybackChanged(playing)
}

func (e *Engine) resolveVoices() {
	voices := voice.Partition(e.driver.Voices())
	if len(voices) == 0 {
		log.Debug("voice list empty, deferring selection")
		return
	}
	e.voices = voices
	if sel, ok := voice.Resolve(voices, e.wanted); ok {
		e.voice = sel
	}
	log.Debug("voices resolved", "count", len(voices), "selected", e.voice.Name)
	e.listener.VoicesChanged(voices, e.voice)
}
