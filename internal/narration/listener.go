package narration

import (
	"github.com/dgnsrekt/sentispeech/internal/speech"
)

// Listener receives playback notifications. Methods are called from the
// engine goroutine, in order, and must not call back into the Engine.
type Listener interface {
	// UnitStarted is called when the driver starts speaking a unit.
	UnitStarted(index int)

	// UnitEnded is called when a unit finished, failed or was stopped.
	UnitEnded(index int)

	// PlaybackChanged reports whether anything is queued or in flight. It
	// turns false once the queue is empty and the last unit ended.
	PlaybackChanged(playing bool)

	// VoicesChanged is called when the driver's voice list was resolved,
	// with English voices first and the selected voice.
	VoicesChanged(voices []speech.Voice, selected speech.Voice)
}

// NopListener ignores every notification. Embed it to implement a subset.
type NopListener struct{}

func (NopListener) UnitStarted(int)                            {}
func (NopListener) UnitEnded(int)                              {}
func (NopListener) PlaybackChanged(bool)                       {}
func (NopListener) VoicesChanged([]speech.Voice, speech.Voice) {}

var _ Listener = NopListener{}
