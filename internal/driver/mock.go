package driver

import (
	"sync"
	"sync/atomic"

	"github.com/dgnsrekt/sentispeech/internal/speech"
)

// MockDriver implements speech.Driver for testing purposes. Utterances never
// finish on their own: call Finish to end the active one.
type MockDriver struct {
	mu       sync.Mutex
	voices   []speech.Voice
	active   *speech.Utterance
	spoken   []speech.Utterance
	overlaps int

	// Test configuration
	autoStart   bool // emit EventStart from Speak
	trailingEnd bool // emit EventEnd for cancelled utterances
	speakErr    error

	events chan speech.Event
	said   chan speech.Utterance

	// Metrics for testing
	speakCount  atomic.Int64
	cancelCount atomic.Int64
}

// NewMockDriver creates a mock driver offering the given voices. It starts
// utterances immediately and reports a trailing end after a cancel, like a
// browser speech engine.
func NewMockDriver(voices ...speech.Voice) *MockDriver {
	return &MockDriver{
		voices:      voices,
		autoStart:   true,
		trailingEnd: true,
		events:      make(chan speech.Event, 256),
		said:        make(chan speech.Utterance, 256),
	}
}

// Speak implements speech.Driver.
func (d *MockDriver) Speak(u speech.Utterance) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.speakCount.Add(1)
	if d.speakErr != nil {
		return d.speakErr
	}
	if d.active != nil {
		d.overlaps++
		return speech.ErrBusy
	}

	d.active = &u
	d.spoken = append(d.spoken, u)
	if d.autoStart {
		d.events <- speech.Event{Type: speech.EventStart, UtteranceID: u.ID}
	}
	d.said <- u
	return nil
}

// Cancel implements speech.Driver.
func (d *MockDriver) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cancelCount.Add(1)
	if d.active == nil {
		return
	}
	id := d.active.ID
	d.active = nil
	if d.trailingEnd {
		d.events <- speech.Event{Type: speech.EventEnd, UtteranceID: id}
	}
}

// Speaking implements speech.Driver.
func (d *MockDriver) Speaking() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active != nil
}

// Voices implements speech.Driver.
func (d *MockDriver) Voices() []speech.Voice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]speech.Voice(nil), d.voices...)
}

// Events implements speech.Driver.
func (d *MockDriver) Events() <-chan speech.Event {
	return d.events
}

// Said delivers every accepted utterance, in order.
func (d *MockDriver) Said() <-chan speech.Utterance {
	return d.said
}

// Finish ends the active utterance as if it played to completion. It reports
// false when nothing is active.
func (d *MockDriver) Finish() bool {
	return d.complete(speech.Event{Type: speech.EventEnd})
}

// Fail ends the active utterance with an error event.
func (d *MockDriver) Fail(err error) bool {
	return d.complete(speech.Event{Type: speech.EventError, Err: err})
}

func (d *MockDriver) complete(ev speech.Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active == nil {
		return false
	}
	ev.UtteranceID = d.active.ID
	d.active = nil
	d.events <- ev
	return true
}

// Start emits EventStart for the active utterance when auto start is off.
func (d *MockDriver) Start() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active == nil {
		return false
	}
	d.events <- speech.Event{Type: speech.EventStart, UtteranceID: d.active.ID}
	return true
}

// Emit injects an arbitrary event, e.g. a stale completion.
func (d *MockDriver) Emit(ev speech.Event) {
	d.events <- ev
}

// SetVoices replaces the voice list and emits EventVoicesChanged.
func (d *MockDriver) SetVoices(voices ...speech.Voice) {
	d.mu.Lock()
	d.voices = voices
	d.mu.Unlock()
	d.events <- speech.Event{Type: speech.EventVoicesChanged}
}

// SetAutoStart controls whether Speak emits EventStart itself.
func (d *MockDriver) SetAutoStart(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.autoStart = on
}

// SetTrailingEnd controls whether Cancel emits EventEnd.
func (d *MockDriver) SetTrailingEnd(on bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.trailingEnd = on
}

// SetSpeakError makes every Speak call fail with err.
func (d *MockDriver) SetSpeakError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speakErr = err
}

// Spoken returns every accepted utterance so far.
func (d *MockDriver) Spoken() []speech.Utterance {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]speech.Utterance(nil), d.spoken...)
}

// Overlaps returns how many Speak calls arrived while an utterance was active.
func (d *MockDriver) Overlaps() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.overlaps
}

// SpeakCount returns the number of Speak calls, accepted or not.
func (d *MockDriver) SpeakCount() int64 {
	return d.speakCount.Load()
}

// CancelCount returns the number of Cancel calls.
func (d *MockDriver) CancelCount() int64 {
	return d.cancelCount.Load()
}

var _ speech.Driver = (*MockDriver)(nil)
