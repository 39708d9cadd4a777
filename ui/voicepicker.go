package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/sentispeech/internal/speech"
	"github.com/muesli/reflow/truncate"
	"github.com/sahilm/fuzzy"
)

// voiceSource adapts a voice list for fuzzy matching on name and language.
type voiceSource []speech.Voice

func (s voiceSource) String(i int) string { return s[i].Name + " " + s[i].Lang }
func (s voiceSource) Len() int            { return len(s) }

type voicePicker struct {
	input   textinput.Model
	voices  []speech.Voice
	matches []int
	cursor  int
}

func newVoicePicker(voices []speech.Voice, current speech.Voice) voicePicker {
	ti := textinput.New()
	ti.Prompt = "Voice: "
	ti.Placeholder = "type to filter"
	ti.PromptStyle = lipgloss.NewStyle().Foreground(fuchsia)
	ti.CharLimit = 64
	ti.Focus()

	p := voicePicker{
		input:  ti,
		voices: voices,
	}
	p.filter()
	for i, idx := range p.matches {
		if voices[idx].Key() == current.Key() {
			p.cursor = i
		}
	}
	return p
}

func (p *voicePicker) filter() {
	p.matches = p.matches[:0]
	term := strings.TrimSpace(p.input.Value())
	if term == "" {
		for i := range p.voices {
			p.matches = append(p.matches, i)
		}
	} else {
		for _, m := range fuzzy.FindFrom(term, voiceSource(p.voices)) {
			p.matches = append(p.matches, m.Index)
		}
	}
	if p.cursor >= len(p.matches) {
		p.cursor = max(len(p.matches)-1, 0)
	}
}

func (p voicePicker) update(msg tea.Msg) (voicePicker, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "ctrl+p", "ctrl+k":
			if p.cursor > 0 {
				p.cursor--
			}
			return p, nil
		case "down", "ctrl+n", "ctrl+j":
			if p.cursor < len(p.matches)-1 {
				p.cursor++
			}
			return p, nil
		}
	}

	var cmd tea.Cmd
	before := p.input.Value()
	p.input, cmd = p.input.Update(msg)
	if p.input.Value() != before {
		p.cursor = 0
		p.filter()
	}
	return p, cmd
}

// selected returns the voice under the cursor.
func (p voicePicker) selected() (speech.Voice, bool) {
	if p.cursor < 0 || p.cursor >= len(p.matches) {
		return speech.Voice{}, false
	}
	return p.voices[p.matches[p.cursor]], true
}

func (p voicePicker) view(width, height int) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(indent(p.input.View(), 2))
	b.WriteString("\n")

	if len(p.voices) == 0 {
		b.WriteString(indent(subtleStyle.Render("No voices available yet."), 2))
		return b.String()
	}
	if len(p.matches) == 0 {
		b.WriteString(indent(subtleStyle.Render("Nothing matched."), 2))
		return b.String()
	}

	// keep the cursor inside the visible window
	rows := max(height-4, 1)
	start := 0
	if p.cursor >= rows {
		start = p.cursor - rows + 1
	}
	end := min(start+rows, len(p.matches))

	for i := start; i < end; i++ {
		v := p.voices[p.matches[i]]
		line := fmt.Sprintf("%s %s", v.Name, dimStyle.Render(v.Lang))
		line = truncate.StringWithTail(line, uint(max(width-6, 1)), ellipsis) //nolint:gosec
		if i == p.cursor {
			line = lipgloss.NewStyle().Foreground(fuchsia).Render("│ ") + line
		} else {
			line = "  " + line
		}
		b.WriteString("  " + line + "\n")
	}

	b.WriteString("\n")
	b.WriteString(indent(subtleStyle.Render(fmt.Sprintf("%d/%d voices • enter choose • esc cancel", len(p.matches), len(p.voices))), 2))
	return b.String()
}
