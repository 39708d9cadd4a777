package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/sentispeech/internal/sentiment"
)

var (
	normalDim = lipgloss.AdaptiveColor{Light: "#A49FA5", Dark: "#777777"}
	gray      = lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}
	midGray   = lipgloss.AdaptiveColor{Light: "#B2B2B2", Dark: "#4A4A4A"}
	fuchsia   = lipgloss.Color("#EE6FF8")
	red       = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}
	green     = lipgloss.Color("#04B575")
	cream     = lipgloss.AdaptiveColor{Light: "#FFFDF5", Dark: "#FFFDF5"}

	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}

	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}
	highlightBg     = lipgloss.AdaptiveColor{Light: "#FFF7D6", Dark: "#2E2A1F"}
)

var sentimentColors = map[sentiment.Sentiment]lipgloss.TerminalColor{
	sentiment.Positive: green,
	sentiment.Neutral:  gray,
	sentiment.Negative: red,
}

func sentimentColor(s sentiment.Sentiment) lipgloss.TerminalColor {
	if c, ok := sentimentColors[s]; ok {
		return c
	}
	return gray
}

var (
	subtleStyle     = lipgloss.NewStyle().Foreground(midGray)
	dimStyle        = lipgloss.NewStyle().Foreground(normalDim)
	errorTitleStyle = lipgloss.NewStyle().Foreground(cream).Background(red).Padding(0, 1)
	titleStyle      = lipgloss.NewStyle().Foreground(cream).Background(fuchsia).Padding(0, 1)
	spinnerStyle    = lipgloss.NewStyle().Foreground(fuchsia)

	logoStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(fuchsia).
			Bold(true).
			Padding(0, 1)

	statusBarPosStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#949494", Dark: "#5A5A5A"}).
				Background(statusBarBg).
				Render

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg).
				Render

	statusBarHelpStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(lipgloss.AdaptiveColor{Light: "#DCDCDC", Dark: "#323232"}).
				Render

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen).
				Render

	statusBarMessageHelpStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("#B6FFE4")).
					Background(green).
					Render

	helpViewStyle = lipgloss.NewStyle().
			Foreground(statusBarNoteFg).
			Background(lipgloss.AdaptiveColor{Light: "#f2f2f2", Dark: "#1B1B1B"}).
			Render
)

func badgeStyle(s sentiment.Sentiment) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(cream).
		Background(sentimentColor(s)).
		Bold(true).
		Padding(0, 1)
}

func cardStyle(s sentiment.Sentiment, selected, speaking bool) lipgloss.Style {
	border := lipgloss.NormalBorder()
	if selected {
		border = lipgloss.ThickBorder()
	}
	st := lipgloss.NewStyle().
		Border(border, false, false, false, true).
		BorderForeground(sentimentColor(s)).
		PaddingLeft(1)
	if speaking {
		st = st.Background(highlightBg)
	}
	return st
}

func logoView() string {
	return logoStyle.Render("sentispeech")
}

var spinners = map[string]spinner.Spinner{
	"dot":    spinner.Dot,
	"line":   spinner.Line,
	"mini":   spinner.MiniDot,
	"pulse":  spinner.Pulse,
	"points": spinner.Points,
}

func newSpinner(cfg Config) spinner.Model {
	sp, ok := spinners[cfg.Spinner]
	if !ok {
		sp = spinner.Dot
	}
	return spinner.New(spinner.WithSpinner(sp), spinner.WithStyle(spinnerStyle))
}
