// Package ui provides the interactive results view: the analysis of a
// document as sentiment cards that can be narrated aloud.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/sentispeech/internal/analysis"
	"github.com/dgnsrekt/sentispeech/internal/narration"
	"github.com/dgnsrekt/sentispeech/internal/sentiment"
	"github.com/dgnsrekt/sentispeech/internal/speech"
	"github.com/dgnsrekt/sentispeech/internal/textproc"
	"github.com/fsnotify/fsnotify"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/termenv"
)

const (
	statusMessageTimeout = time.Second * 3 // how long to show status messages like "copied!"
	analyseTimeout       = 2 * time.Minute
	statusBarHeight      = 1
	ellipsis             = "…"
)

// Narrator is the part of the narration engine the UI drives. Its methods
// block until the engine accepted the request, so they are only ever called
// from commands.
type Narrator interface {
	EnqueueAll(r *sentiment.Result)
	EnqueueSingle(index int, r *sentiment.Result)
	Stop()
	SetVoice(v speech.Voice)
	SetRate(rate float64)
	SetEmotion(on bool)
	State() narration.State
	Voices() []speech.Voice
}

var _ Narrator = (*narration.Engine)(nil)

// Deps are the collaborators of the TUI.
type Deps struct {
	Narrator Narrator
	Analyzer analysis.Analyzer

	// Load returns the markdown to analyse. It is called again on reload.
	Load func() ([]byte, error)

	// WaitReady, when set, runs before every analysis to wake a sleeping
	// backend. progress reports each attempt.
	WaitReady func(ctx context.Context, progress func(attempt, max int)) error

	// Listener must be the one given to the narration engine.
	Listener *Listener
}

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, deps Deps) *tea.Program {
	log.Debug("Starting sentispeech ui", "path", cfg.Path, "watch", cfg.Watch)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(newModel(cfg, deps), opts...)
	deps.Listener.attach(p)
	return p
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

type (
	resultMsg               struct{ result *sentiment.Result }
	wakeMsg                 struct{ attempt, max int }
	engineStateMsg          narration.State
	statusMessageTimeoutMsg struct{}
)

// state is the top-level application state.
type state int

const (
	stateAnalysing state = iota
	stateResults
	stateVoices
	stateError
)

func (s state) String() string {
	return map[state]string{
		stateAnalysing: "analysing",
		stateResults:   "showing results",
		stateVoices:    "choosing voice",
		stateError:     "showing error",
	}[s]
}

type model struct {
	cfg  Config
	deps Deps
	keys keyMap

	state  state
	err    error
	width  int
	height int

	spinner  spinner.Model
	viewport viewport.Model
	help     help.Model
	showHelp bool
	picker   voicePicker
	watcher  *fsnotify.Watcher

	wake string

	result   *sentiment.Result
	offsets  []int
	selected int
	speaking int

	// Mirrors of the engine, updated from notifications and snapshots.
	playing bool
	rate    float64
	emotion bool
	voice   speech.Voice
	voices  []speech.Voice

	statusMessage      string
	statusMessageTimer *time.Timer
}

func newModel(cfg Config, deps Deps) model {
	vp := viewport.New(0, 0)
	vp.KeyMap = viewportKeys()
	vp.MouseWheelEnabled = cfg.EnableMouse

	m := model{
		cfg:      cfg,
		deps:     deps,
		keys:     newKeyMap(),
		state:    stateAnalysing,
		spinner:  newSpinner(cfg),
		viewport: vp,
		help:     help.New(),
		speaking: -1,
		rate:     1,
		emotion:  true,
	}
	if cfg.Watch && cfg.Path != "" {
		m.watcher = newWatcher()
	}
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.analyse(), m.engineState()}
	if m.cfg.Animate {
		cmds = append(cmds, m.spinner.Tick)
	}
	if m.watcher != nil {
		cmds = append(cmds, watchFile(m.watcher, m.cfg.Path))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if msg.String() == "ctrl+z" {
			return m, tea.Suspend
		}
		switch m.state {
		case stateVoices:
			return m.updateVoices(msg)
		case stateResults:
			return m.updateResults(msg)
		case stateError:
			switch {
			case key.Matches(msg, m.keys.Reload):
				return m.reload()
			case key.Matches(msg, m.keys.Quit), msg.String() == "esc":
				return m, tea.Quit
			}
			return m, nil
		default:
			if key.Matches(msg, m.keys.Quit) {
				return m, tea.Quit
			}
			return m, nil
		}

	// Window size is received when starting up and on every resize
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.setSize()
		m.render()

	case spinner.TickMsg:
		if m.state == stateAnalysing {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case wakeMsg:
		m.wake = fmt.Sprintf("Waking up the analysis server (attempt %d of %d)", msg.attempt, msg.max)

	case resultMsg:
		log.Debug("analysis finished", "paragraphs", msg.result.Len())
		m.state = stateResults
		m.result = msg.result
		m.err = nil
		m.wake = ""
		m.selected = min(m.selected, max(m.result.Len()-1, 0))
		m.speaking = -1
		m.render()
		m.viewport.GotoTop()

	case errMsg:
		log.Error("analysis failed", "error", msg.err)
		m.state = stateError
		m.err = msg.err

	case reloadMsg:
		if m.state == stateAnalysing {
			return m, watchFile(m.watcher, m.cfg.Path)
		}
		next, cmd := m.reload()
		return next, tea.Batch(cmd, watchFile(m.watcher, m.cfg.Path))

	case unitStartedMsg:
		m.speaking = int(msg)
		if m.speaking < m.result.Len() {
			m.selected = m.speaking
		}
		m.render()
		m.ensureVisible()

	case unitEndedMsg:
		if m.speaking == int(msg) {
			m.speaking = -1
			m.render()
		}

	case playbackMsg:
		m.playing = bool(msg)
		if !m.playing && m.speaking >= 0 {
			m.speaking = -1
			m.render()
		}

	case voicesMsg:
		m.voices = msg.voices
		m.voice = msg.selected

	case engineStateMsg:
		m.playing = msg.Playing
		m.rate = msg.Settings.Rate
		m.emotion = msg.Settings.Emotion
		m.voice = msg.Voice

	case statusMessageTimeoutMsg:
		m.statusMessage = ""

	case tea.MouseMsg:
		if m.state == stateResults {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m model) updateResults(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
			m.render()
			m.ensureVisible()
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < m.result.Len()-1 {
			m.selected++
			m.render()
			m.ensureVisible()
		}
		return m, nil

	case key.Matches(msg, m.keys.Speak):
		index, r := m.selected, m.result
		return m, m.narrate(func(n Narrator) { n.EnqueueSingle(index, r) })

	case key.Matches(msg, m.keys.SpeakAll):
		r := m.result
		return m, m.narrate(func(n Narrator) { n.EnqueueAll(r) })

	case key.Matches(msg, m.keys.Stop):
		return m, m.narrate(Narrator.Stop)

	case key.Matches(msg, m.keys.Faster), key.Matches(msg, m.keys.Slower):
		rate := narration.SlowerRate(m.rate)
		if key.Matches(msg, m.keys.Faster) {
			rate = narration.FasterRate(m.rate)
		}
		if rate == m.rate {
			return m, nil
		}
		m.rate = rate
		return m, tea.Batch(
			m.narrate(func(n Narrator) { n.SetRate(rate) }),
			m.showStatusMessage("Rate "+formatRate(rate)),
		)

	case key.Matches(msg, m.keys.Emotion):
		on := !m.emotion
		m.emotion = on
		note := "Emotion off"
		if on {
			note = "Emotion on"
		}
		return m, tea.Batch(
			m.narrate(func(n Narrator) { n.SetEmotion(on) }),
			m.showStatusMessage(note),
		)

	case key.Matches(msg, m.keys.Voice):
		m.state = stateVoices
		m.picker = newVoicePicker(m.voices, m.voice)
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Copy):
		report := Report(m.result)
		// Copy using OSC 52
		termenv.Copy(report)
		// Copy using native system clipboard
		_ = clipboard.WriteAll(report)
		return m, m.showStatusMessage("Copied report")

	case key.Matches(msg, m.keys.Reload):
		return m.reload()

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.setSize()
		m.ensureVisible()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) updateVoices(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = stateResults
		return m, nil
	case "enter":
		m.state = stateResults
		v, ok := m.picker.selected()
		if !ok || v.Key() == m.voice.Key() {
			return m, nil
		}
		m.voice = v
		return m, tea.Batch(
			m.narrate(func(n Narrator) { n.SetVoice(v) }),
			m.showStatusMessage("Voice "+v.Name),
		)
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.update(msg)
	return m, cmd
}

// reload stops narration, since paragraph indexes are about to change, and
// analyses the source again.
func (m model) reload() (tea.Model, tea.Cmd) {
	m.state = stateAnalysing
	m.speaking = -1
	m.wake = ""
	cmds := []tea.Cmd{m.narrate(Narrator.Stop), m.analyse()}
	if m.cfg.Animate {
		cmds = append(cmds, m.spinner.Tick)
	}
	return m, tea.Batch(cmds...)
}

func (m *model) setSize() {
	m.viewport.Width = m.width
	m.viewport.Height = m.height - statusBarHeight
	if m.showHelp {
		m.viewport.Height -= strings.Count(m.helpView(), "\n") + 1
	}
	m.viewport.Height = max(m.viewport.Height, 1)
}

func (m *model) render() {
	if m.result == nil {
		return
	}
	width := m.width
	if m.cfg.MaxWidth > 0 {
		width = min(width, int(m.cfg.MaxWidth)) //nolint:gosec
	}
	rv := renderResults(m.result, width, m.selected, m.speaking, m.cfg.ShowScores)
	m.offsets = rv.offsets
	m.viewport.SetContent(rv.content)
}

// ensureVisible scrolls so the whole selected card is on screen, preferring
// its first line when it is taller than the viewport.
func (m *model) ensureVisible() {
	if m.selected < 0 || m.selected >= len(m.offsets) {
		return
	}
	top := m.offsets[m.selected]
	bottom := m.viewport.TotalLineCount()
	if m.selected+1 < len(m.offsets) {
		bottom = m.offsets[m.selected+1]
	}

	switch {
	case top < m.viewport.YOffset:
		m.viewport.SetYOffset(top)
	case bottom > m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(min(top, bottom-m.viewport.Height))
	}
}

func (m *model) showStatusMessage(s string) tea.Cmd {
	m.statusMessage = s
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.statusMessageTimer = time.NewTimer(statusMessageTimeout)
	return waitForStatusMessageTimeout(m.statusMessageTimer)
}

func (m model) View() string {
	switch m.state {
	case stateError:
		return errorView(m.err)
	case stateAnalysing:
		return m.analysingView()
	case stateVoices:
		return m.picker.view(m.width, m.height)
	}

	var b strings.Builder
	fmt.Fprint(&b, m.viewport.View()+"\n")
	m.statusBarView(&b)
	if m.showHelp {
		fmt.Fprint(&b, "\n"+m.helpView())
	}
	return b.String()
}

func (m model) analysingView() string {
	s := "Analysing…"
	if m.cfg.Animate {
		s = m.spinner.View() + " " + s
	}
	if m.wake != "" {
		s += "\n\n" + subtleStyle.Render(m.wake)
	}
	return "\n" + indent(s, 2)
}

func (m model) statusBarView(b *strings.Builder) {
	showStatusMessage := m.statusMessage != ""

	logo := logoView()

	pos := fmt.Sprintf(" %d/%d ", min(m.selected+1, m.result.Len()), m.result.Len())
	pos = statusBarPosStyle(pos)

	var helpNote string
	if showStatusMessage {
		helpNote = statusBarMessageHelpStyle(" ? Help ")
	} else {
		helpNote = statusBarHelpStyle(" ? Help ")
	}

	note := m.statusMessage
	if !showStatusMessage {
		note = m.engineNote()
	}
	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(pos)-
			ansi.PrintableRuneWidth(helpNote),
	)), ellipsis)
	if showStatusMessage {
		note = statusBarMessageStyle(note)
	} else {
		note = statusBarNoteStyle(note)
	}

	// Empty space
	padding := max(0,
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(pos)-
			ansi.PrintableRuneWidth(helpNote),
	)
	emptySpace := strings.Repeat(" ", padding)
	if showStatusMessage {
		emptySpace = statusBarMessageStyle(emptySpace)
	} else {
		emptySpace = statusBarNoteStyle(emptySpace)
	}

	fmt.Fprintf(b, "%s%s%s%s%s",
		logo,
		note,
		emptySpace,
		pos,
		helpNote,
	)
}

// engineNote summarises the narration settings, e.g.
// "notes.md · Alex · 1.25x · emotion on · playing".
func (m model) engineNote() string {
	var parts []string
	if m.cfg.Note != "" {
		parts = append(parts, m.cfg.Note)
	}
	if m.voice.IsZero() {
		parts = append(parts, "default voice")
	} else {
		parts = append(parts, m.voice.Name)
	}
	parts = append(parts, formatRate(m.rate))
	if m.emotion {
		parts = append(parts, "emotion on")
	} else {
		parts = append(parts, "emotion off")
	}
	if m.playing {
		parts = append(parts, "▶ playing")
	} else {
		parts = append(parts, "idle")
	}
	return strings.Join(parts, " · ")
}

func (m model) helpView() string {
	s := "\n" + m.help.FullHelpView(m.keys.FullHelp()) + "\n"
	s = indent(s, 2)

	// Fill up empty cells with spaces for background coloring
	if m.width > 0 {
		lines := strings.Split(strings.TrimSuffix(s, "\n"), "\n")
		for i := range lines {
			l := ansi.PrintableRuneWidth(lines[i])
			lines[i] += strings.Repeat(" ", max(m.width-l, 0))
		}
		s = strings.Join(lines, "\n")
	}
	return helpViewStyle(s)
}

func errorView(err error) string {
	s := fmt.Sprintf("%s\n\n%v\n\n%s",
		errorTitleStyle.Render("ERROR"),
		err,
		subtleStyle.Render("press r to retry or q to quit"),
	)
	return "\n" + indent(s, 3)
}

// COMMANDS

// analyse loads the source and runs it through the analyzer, waking the
// backend first when configured.
func (m model) analyse() tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), analyseTimeout)
		defer cancel()

		if deps.WaitReady != nil {
			err := deps.WaitReady(ctx, func(attempt, max int) {
				deps.Listener.send(wakeMsg{attempt: attempt, max: max})
			})
			if err != nil {
				return errMsg{err}
			}
		}

		if deps.Load == nil {
			return errMsg{errors.New("nothing to analyse")}
		}
		md, err := deps.Load()
		if err != nil {
			return errMsg{err}
		}

		r, err := deps.Analyzer.Analyze(ctx, textproc.Flatten(md))
		if err != nil {
			return errMsg{err}
		}
		return resultMsg{r}
	}
}

// narrate runs fn against the engine and reports the engine state after it.
func (m model) narrate(fn func(Narrator)) tea.Cmd {
	n := m.deps.Narrator
	if n == nil {
		return nil
	}
	return func() tea.Msg {
		fn(n)
		return engineStateMsg(n.State())
	}
}

func (m model) engineState() tea.Cmd {
	n := m.deps.Narrator
	if n == nil {
		return nil
	}
	return func() tea.Msg {
		return voicesMsg{voices: n.Voices(), selected: n.State().Voice}
	}
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64) + "x"
}

func waitForStatusMessageTimeout(t *time.Timer) tea.Cmd {
	return func() tea.Msg {
		<-t.C
		return statusMessageTimeoutMsg{}
	}
}

// ETC

// Lightweight version of reflow's indent function.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	l := strings.Split(s, "\n")
	b := strings.Builder{}
	i := strings.Repeat(" ", n)
	for _, v := range l {
		fmt.Fprintf(&b, "%s%s\n", i, v)
	}
	return b.String()
}
