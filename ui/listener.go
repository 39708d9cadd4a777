package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dgnsrekt/sentispeech/internal/narration"
	"github.com/dgnsrekt/sentispeech/internal/speech"
)

type (
	unitStartedMsg int
	unitEndedMsg   int
	playbackMsg    bool
	voicesMsg      struct {
		voices   []speech.Voice
		selected speech.Voice
	}
)

// Listener forwards narration notifications to a running program as
// messages. Notifications arriving before a program is attached are dropped;
// the model asks the engine for its state on start.
type Listener struct {
	mu      sync.RWMutex
	program *tea.Program
}

// NewListener returns a listener with no program attached.
func NewListener() *Listener {
	return &Listener{}
}

func (l *Listener) attach(p *tea.Program) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.program = p
}

func (l *Listener) send(msg tea.Msg) {
	if l == nil {
		return
	}
	l.mu.RLock()
	p := l.program
	l.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

func (l *Listener) UnitStarted(index int) { l.send(unitStartedMsg(index)) }
func (l *Listener) UnitEnded(index int)   { l.send(unitEndedMsg(index)) }
func (l *Listener) PlaybackChanged(on bool) {
	l.send(playbackMsg(on))
}

func (l *Listener) VoicesChanged(voices []speech.Voice, selected speech.Voice) {
	l.send(voicesMsg{voices: voices, selected: selected})
}

var _ narration.Listener = (*Listener)(nil)
