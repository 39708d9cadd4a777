// Package speech contains the types shared by the narration engine, the
// speech drivers and the synthesizers behind them.
// It has no dependencies on the rest of the module so every other package can
// import it without cycles.
package speech

import (
	"context"
	"fmt"
	"time"
)

// Voice is a synthesis voice offered by a driver.
type Voice struct {
	Name string
	Lang string // BCP 47-ish language tag, e.g. "en-US" or "en_GB"

	// ID is the engine specific identifier passed back to the synthesizer.
	// Falls back to Name when empty.
	ID string
}

// IsZero reports whether no voice was chosen.
func (v Voice) IsZero() bool {
	return v.Name == "" && v.ID == ""
}

// Key returns the identifier to hand to the synthesizer.
func (v Voice) Key() string {
	if v.ID != "" {
		return v.ID
	}
	return v.Name
}

func (v Voice) String() string {
	if v.IsZero() {
		return "default"
	}
	if v.Lang == "" {
		return v.Name
	}
	return fmt.Sprintf("%s (%s)", v.Name, v.Lang)
}

// Utterance is a single request to a driver to speak a span of text.
type Utterance struct {
	ID     uint64
	Text   string
	Voice  Voice
	Rate   float64
	Pitch  float64
	Volume float64
}

// EventType identifies a driver lifecycle event.
type EventType int

const (
	// EventStart is delivered once audio for an utterance begins.
	EventStart EventType = iota
	// EventEnd is delivered when an utterance finished or was cancelled.
	EventEnd
	// EventError is delivered when an utterance could not be spoken. No
	// EventEnd follows it.
	EventError
	// EventVoicesChanged is delivered when the voice list was (re)loaded.
	EventVoicesChanged
)

func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventEnd:
		return "end"
	case EventError:
		return "error"
	case EventVoicesChanged:
		return "voiceschanged"
	default:
		return "unknown"
	}
}

// Event is an asynchronous notification from a Driver.
type Event struct {
	Type        EventType
	UtteranceID uint64
	Err         error
}

// Driver is an asynchronous, single-consumer speech service. At most one
// utterance is active at any time.
type Driver interface {
	// Speak submits an utterance. It returns immediately; progress is
	// reported through Events.
	Speak(u Utterance) error

	// Cancel aborts the active utterance, if any. A trailing EventEnd for the
	// cancelled utterance may still be delivered.
	Cancel()

	// Speaking is a best-effort liveness flag.
	Speaking() bool

	// Voices returns the currently known voices. It may be empty until the
	// first EventVoicesChanged.
	Voices() []Voice

	// Events delivers lifecycle and readiness events.
	Events() <-chan Event
}

// Request describes a synthesis job.
type Request struct {
	Text  string
	Voice Voice
	Rate  float64 // 1.0 is the engine's natural tempo
	Pitch float64 // 1.0 is the voice's natural pitch
}

// Audio is mono, signed 16-bit little endian PCM.
type Audio struct {
	PCM        []byte
	SampleRate int
}

// Duration returns the play time of the audio.
func (a Audio) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	samples := len(a.PCM) / 2
	return time.Duration(samples) * time.Second / time.Duration(a.SampleRate)
}

// EngineInfo describes a synthesizer's capabilities.
type EngineInfo struct {
	Name   string
	Online bool

	// NativeRate and NativePitch report whether the synthesizer applies the
	// requested rate and pitch itself. When false the driver reshapes the
	// audio by resampling.
	NativeRate  bool
	NativePitch bool
}

// Synthesizer converts text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (Audio, error)
	Voices(ctx context.Context) ([]Voice, error)
	Info() EngineInfo
}

// AudioPlayer plays mono PCM.
type AudioPlayer interface {
	// Play starts playback, replacing anything currently playing.
	Play(pcm []byte) error
	// Wait blocks until the current playback finished or ctx is done.
	Wait(ctx context.Context) error
	Stop() error
	SetVolume(volume float64) error
	SampleRate() int
	Close() error
}
