package narration

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/sentispeech/internal/driver"
	"github.com/dgnsrekt/sentispeech/internal/sentiment"
	"github.com/dgnsrekt/sentispeech/internal/speech"
)

const waitTimeout = 2 * time.Second

// recorder is a Listener that records notifications in order.
type recorder struct {
	mu     sync.Mutex
	events []string
	ch     chan string
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan string, 256)}
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.events = append(r.events, s)
	r.mu.Unlock()
	r.ch <- s
}

func (r *recorder) UnitStarted(i int)      { r.add(fmt.Sprintf("start:%d", i)) }
func (r *recorder) UnitEnded(i int)        { r.add(fmt.Sprintf("end:%d", i)) }
func (r *recorder) PlaybackChanged(p bool) { r.add(fmt.Sprintf("playing:%v", p)) }
func (r *recorder) VoicesChanged(_ []speech.Voice, v speech.Voice) {
	r.add("voice:" + v.Name)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// waitFor blocks until the listener reported want.
func (r *recorder) waitFor(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case got := <-r.ch:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q, saw %v", want, r.snapshot())
		}
	}
}

func startEngine(t *testing.T, d *driver.MockDriver, opts Options) *Engine {
	t.Helper()
	e := New(d, opts)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-e.Done()
	})
	return e
}

func nextSaid(t *testing.T, d *driver.MockDriver) speech.Utterance {
	t.Helper()
	select {
	case u := <-d.Said():
		return u
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for the driver to speak")
	}
	return speech.Utterance{}
}

func expectSilence(t *testing.T, d *driver.MockDriver, wait time.Duration) {
	t.Helper()
	select {
	case u := <-d.Said():
		t.Fatalf("unexpected utterance %q", u.Text)
	case <-time.After(wait):
	}
}

func neutralResult(n int) *sentiment.Result {
	r := &sentiment.Result{Overall: sentiment.Score{Sentiment: sentiment.Neutral, Score: 0.5}}
	for i := 0; i < n; i++ {
		r.Paragraphs = append(r.Paragraphs, sentiment.Paragraph{
			Text:      fmt.Sprintf("paragraph %d", i),
			Sentiment: sentiment.Neutral,
			Score:     0.5,
		})
	}
	return r
}

// TestEnqueueAllOrderNoOverlap tests that every paragraph is spoken once, in order.
func TestEnqueueAllOrderNoOverlap(t *testing.T) {
	d := driver.NewMockDriver()
	rec := newRecorder()
	e := startEngine(t, d, Options{Listener: rec})

	r := neutralResult(4)
	e.EnqueueAll(r)

	for i, p := range r.Paragraphs {
		u := nextSaid(t, d)
		if u.Text != p.Text {
			t.Errorf("utterance %d: expected %q, got %q", i, p.Text, u.Text)
		}
		rec.waitFor(t, fmt.Sprintf("start:%d", i))
		if !d.Finish() {
			t.Fatalf("utterance %d was not active", i)
		}
	}
	rec.waitFor(t, "playing:false")

	if n := len(d.Spoken()); n != 4 {
		t.Errorf("expected 4 utterances, got %d", n)
	}
	if d.Overlaps() != 0 {
		t.Errorf("expected no overlapping speak calls, got %d", d.Overlaps())
	}

	want := []string{
		"playing:true",
		"start:0", "end:0",
		"start:1", "end:1",
		"start:2", "end:2",
		"start:3", "end:3",
		"playing:false",
	}
	got := rec.snapshot()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("notifications = %v, want %v", got, want)
	}
}

// TestEnqueueAllWithSettleDelay tests that the next unit waits for the settle delay.
func TestEnqueueAllWithSettleDelay(t *testing.T) {
	d := driver.NewMockDriver()
	e := startEngine(t, d, Options{SettleDelay: 100 * time.Millisecond})

	e.EnqueueAll(neutralResult(2))
	nextSaid(t, d)

	start := time.Now()
	d.Finish()
	u := nextSaid(t, d)
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected settle delay before next unit, got %v", elapsed)
	}
	if u.Text != "paragraph 1" {
		t.Errorf("expected paragraph 1, got %q", u.Text)
	}
	if d.Overlaps() != 0 {
		t.Errorf("expected no overlapping speak calls, got %d", d.Overlaps())
	}
}

// TestStopIdempotent tests that stopping clears all state and can be repeated.
func TestStopIdempotent(t *testing.T) {
	d := driver.NewMockDriver()
	rec := newRecorder()
	e := startEngine(t, d, Options{Listener: rec})

	// Idle stop is a no-op.
	e.Stop()
	if d.CancelCount() != 0 {
		t.Errorf("expected no cancel while idle, got %d", d.CancelCount())
	}

	e.EnqueueAll(neutralResult(3))
	nextSaid(t, d)

	e.Stop()
	first := e.State()
	e.Stop()
	second := e.State()

	if first != second {
		t.Errorf("second stop changed state: %+v vs %+v", first, second)
	}
	if first.Queued != 0 || first.Current != -1 || first.Playing {
		t.Errorf("expected cleared state, got %+v", first)
	}
	if d.CancelCount() != 1 {
		t.Errorf("expected exactly one cancel, got %d", d.CancelCount())
	}

	// The trailing end of the cancelled utterance must not resume playback.
	expectSilence(t, d, 100*time.Millisecond)
	rec.waitFor(t, "playing:false")
}

// TestStopCancelsPendingSettle tests that a stop during the settle delay wins.
func TestStopCancelsPendingSettle(t *testing.T) {
	d := driver.NewMockDriver()
	e := startEngine(t, d, Options{SettleDelay: 100 * time.Millisecond})

	e.EnqueueAll(neutralResult(2))
	nextSaid(t, d)
	d.Finish()
	e.Stop()

	expectSilence(t, d, 250*time.Millisecond)
}

// TestReconfigureRespeaksOnlyCurrent tests a rate change while unit 2 of 5 is speaking.
func TestReconfigureRespeaksOnlyCurrent(t *testing.T) {
	d := driver.NewMockDriver()
	e := startEngine(t, d, Options{Settings: Settings{Rate: 1, Emotion: true}})

	e.EnqueueAll(neutralResult(5))
	nextSaid(t, d)
	d.Finish()
	nextSaid(t, d)
	d.Finish()
	u := nextSaid(t, d)
	if u.Text != "paragraph 2" {
		t.Fatalf("expected paragraph 2 in flight, got %q", u.Text)
	}

	cancels := d.CancelCount()
	e.SetRate(1.5)

	u = nextSaid(t, d)
	if u.Text != "paragraph 2" {
		t.Errorf("expected paragraph 2 respoken, got %q", u.Text)
	}
	if u.Rate != 1.5 {
		t.Errorf("expected new rate 1.5, got %v", u.Rate)
	}
	if n := d.CancelCount() - cancels; n != 1 {
		t.Errorf("expected exactly one cancel, got %d", n)
	}

	d.Finish()
	expectSilence(t, d, 100*time.Millisecond)

	if n := len(d.Spoken()); n != 4 {
		t.Errorf("expected 4 utterances in total, got %d", n)
	}
	if s := e.State(); s.Playing || s.Queued != 0 {
		t.Errorf("expected idle engine, got %+v", s)
	}
}

// TestReconfigureResumeRemaining tests the opt-in continuation of the queue.
func TestReconfigureResumeRemaining(t *testing.T) {
	d := driver.NewMockDriver()
	e := startEngine(t, d, Options{ResumeRemaining: true})

	e.EnqueueAll(neutralResult(3))
	nextSaid(t, d)
	d.Finish()
	nextSaid(t, d)

	e.SetVoice(speech.Voice{Name: "Daniel", Lang: "en-GB"})

	for _, want := range []string{"paragraph 1", "paragraph 2"} {
		u := nextSaid(t, d)
		if u.Text != want {
			t.Errorf("expected %q, got %q", want, u.Text)
		}
		if u.Voice.Name != "Daniel" {
			t.Errorf("expected voice Daniel, got %q", u.Voice.Name)
		}
		d.Finish()
	}
	expectSilence(t, d, 100*time.Millisecond)
}

// TestReconfigureUnchangedOrIdle tests that no restart happens without a change.
func TestReconfigureUnchangedOrIdle(t *testing.T) {
	d := driver.NewMockDriver()
	e := startEngine(t, d, Options{Settings: Settings{Rate: 1}})

	e.SetRate(1.25)
	if d.CancelCount() != 0 || d.SpeakCount() != 0 {
		t.Error("expected idle reconfigure to leave the driver alone")
	}

	e.EnqueueAll(neutralResult(1))
	nextSaid(t, d)
	cancels := d.CancelCount()

	e.SetRate(1.25)
	if d.CancelCount() != cancels {
		t.Error("expected unchanged rate not to restart")
	}
	expectSilence(t, d, 50*time.Millisecond)

	if s := e.State(); s.Settings.Rate != 1.25 {
		t.Errorf("expected rate 1.25, got %v", s.Settings.Rate)
	}
}

// TestEnqueueSingleOutOfRange tests that invalid input leaves playback untouched.
func TestEnqueueSingleOutOfRange(t *testing.T) {
	d := driver.NewMockDriver()
	e := startEngine(t, d, Options{})

	r := neutralResult(3)
	e.EnqueueSingle(3, r)
	e.EnqueueSingle(-1, r)
	e.EnqueueSingle(0, nil)
	e.EnqueueAll(nil)
	e.EnqueueAll(&sentiment.Result{})

	s := e.State()
	if s.Queued != 0 || s.Current != -1 || s.Playing {
		t.Errorf("expected untouched state, got %+v", s)
	}
	if d.SpeakCount() != 0 || d.CancelCount() != 0 {
		t.Errorf("expected no driver calls, got %d speak and %d cancel", d.SpeakCount(), d.CancelCount())
	}

	// Also while something is playing.
	e.EnqueueAll(r)
	nextSaid(t, d)
	e.EnqueueSingle(7, r)
	if s := e.State(); s.Current != 0 || s.Queued != 2 {
		t.Errorf("expected playback to continue, got %+v", s)
	}
}

// TestEnqueueSingle tests speaking one paragraph after interrupting a full narration.
func TestEnqueueSingle(t *testing.T) {
	d := driver.NewMockDriver()
	rec := newRecorder()
	e := startEngine(t, d, Options{Listener: rec})

	r := neutralResult(3)
	e.EnqueueAll(r)
	nextSaid(t, d)

	e.EnqueueSingle(2, r)
	u := nextSaid(t, d)
	if u.Text != "paragraph 2" {
		t.Errorf("expected paragraph 2, got %q", u.Text)
	}
	rec.waitFor(t, "start:2")

	d.Finish()
	rec.waitFor(t, "end:2")
	rec.waitFor(t, "playing:false")
	expectSilence(t, d, 50*time.Millisecond)
}

// TestStaleCompletionIgnored tests that completions for old utterances are absorbed.
func TestStaleCompletionIgnored(t *testing.T) {
	d := driver.NewMockDriver()
	e := startEngine(t, d, Options{})

	e.EnqueueAll(neutralResult(3))
	first := nextSaid(t, d)

	d.Emit(speech.Event{Type: speech.EventEnd, UtteranceID: first.ID + 100})
	d.Emit(speech.Event{Type: speech.EventStart, UtteranceID: first.ID + 100})

	if s := e.State(); s.Current != 0 {
		t.Errorf("expected unit 0 still in flight, got %+v", s)
	}

	d.Finish()
	u := nextSaid(t, d)
	if u.Text != "paragraph 1" {
		t.Errorf("expected paragraph 1, got %q", u.Text)
	}
	if d.Overlaps() != 0 {
		t.Errorf("expected no overlap, got %d", d.Overlaps())
	}
}

// TestDriverFailuresDegrade tests that failed units are skipped without stalling.
func TestDriverFailuresDegrade(t *testing.T) {
	d := driver.NewMockDriver()
	rec := newRecorder()
	e := startEngine(t, d, Options{Listener: rec})

	e.EnqueueAll(neutralResult(2))
	nextSaid(t, d)
	d.Fail(errors.New("synthesis failed"))

	u := nextSaid(t, d)
	if u.Text != "paragraph 1" {
		t.Errorf("expected paragraph 1 after failure, got %q", u.Text)
	}
	d.Finish()
	rec.waitFor(t, "playing:false")

	d.SetSpeakError(errors.New("no audio device"))
	e.EnqueueAll(neutralResult(2))
	rec.waitFor(t, "end:1")
	rec.waitFor(t, "playing:false")
	if s := e.State(); s.Queued != 0 || s.Current != -1 {
		t.Errorf("expected drained queue, got %+v", s)
	}
}

// TestUtteranceParams tests that resolved parameters reach the driver.
func TestUtteranceParams(t *testing.T) {
	d := driver.NewMockDriver()
	e := startEngine(t, d, Options{Settings: Settings{Rate: 1, Emotion: true}})

	e.EnqueueAll(&sentiment.Result{Paragraphs: []sentiment.Paragraph{
		{Text: "Great news!", Sentiment: sentiment.Positive, Score: 0.9},
		{Text: "It rained.", Sentiment: sentiment.Neutral, Score: 0.5},
	}})

	u := nextSaid(t, d)
	if math.Abs(u.Rate-1.28) > 1e-9 || math.Abs(u.Pitch-1.37) > 1e-9 {
		t.Errorf("expected rate 1.28 pitch 1.37, got %v %v", u.Rate, u.Pitch)
	}
	d.Finish()

	u = nextSaid(t, d)
	if u.Rate != 1 || u.Pitch != 1 || u.Volume != 1 {
		t.Errorf("expected neutral params, got %+v", u)
	}
	d.Finish()

	e.SetEmotion(false)
	e.EnqueueSingle(0, &sentiment.Result{Paragraphs: []sentiment.Paragraph{
		{Text: "Great news!", Sentiment: sentiment.Positive, Score: 0.9},
	}})
	u = nextSaid(t, d)
	if u.Rate != 1 || u.Pitch != 1 {
		t.Errorf("expected base params with emotion off, got %+v", u)
	}
}

// TestVoiceSelectionDeferred tests that selection waits for the voice list.
func TestVoiceSelectionDeferred(t *testing.T) {
	d := driver.NewMockDriver()
	rec := newRecorder()
	e := startEngine(t, d, Options{Listener: rec})

	if s := e.State(); !s.Voice.IsZero() {
		t.Errorf("expected no voice before the list is ready, got %v", s.Voice)
	}

	d.SetVoices(
		speech.Voice{Name: "Obscure Voice", Lang: "fr-FR"},
		speech.Voice{Name: "Microsoft Zira", Lang: "en-US"},
	)
	rec.waitFor(t, "voice:Microsoft Zira")

	e.EnqueueAll(neutralResult(1))
	if u := nextSaid(t, d); u.Voice.Name != "Microsoft Zira" {
		t.Errorf("expected Microsoft Zira, got %q", u.Voice.Name)
	}

	voices := e.Voices()
	if len(voices) != 2 || voices[0].Name != "Microsoft Zira" {
		t.Errorf("expected English voices first, got %v", voices)
	}
}

// TestPreferredVoiceOption tests that a configured voice wins when offered.
func TestPreferredVoiceOption(t *testing.T) {
	d := driver.NewMockDriver(
		speech.Voice{Name: "Microsoft Zira", Lang: "en-US"},
		speech.Voice{Name: "Alex", Lang: "en-US"},
	)
	e := startEngine(t, d, Options{Voice: speech.Voice{Name: "alex"}})

	if s := e.State(); s.Voice.Name != "Alex" {
		t.Errorf("expected Alex, got %q", s.Voice.Name)
	}
}

// TestRunStopsOnCancel tests shutdown while speaking.
func TestRunStopsOnCancel(t *testing.T) {
	d := driver.NewMockDriver()
	e := New(d, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = e.Run(ctx) }()

	e.EnqueueAll(neutralResult(2))
	nextSaid(t, d)

	cancel()
	select {
	case <-e.Done():
	case <-time.After(waitTimeout):
		t.Fatal("engine did not stop")
	}

	if d.Speaking() {
		t.Error("expected driver to be cancelled on shutdown")
	}

	// Calls after shutdown return instead of blocking.
	e.Stop()
	if s := e.State(); s.Current != -1 {
		t.Errorf("expected empty state after shutdown, got %+v", s)
	}
}
