package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/sentispeech/internal/sentiment"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
)

const (
	maxBarWidth = 30
	speakingTag = "▶ speaking"
)

// Report renders r as markdown, suitable for the clipboard or glamour.
func Report(r *sentiment.Result) string {
	if r == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Sentiment report\n\n")
	fmt.Fprintf(&b, "**Overall:** %s (%s)\n\n", r.Overall.Sentiment.Label(), percent(r.Overall.Score))

	b.WriteString("| Sentiment | Paragraphs |\n|---|---|\n")
	counts := r.Counts()
	for _, s := range sentiment.Sentiments {
		fmt.Fprintf(&b, "| %s | %d |\n", s.Label(), counts[s])
	}

	if r.Len() > 0 {
		b.WriteString("\n## Paragraphs\n\n")
	}
	for i, p := range r.Paragraphs {
		fmt.Fprintf(&b, "%d. **%s** (%s): %s\n", i+1, p.Sentiment.Label(), percent(p.Score), p.Text)
	}
	return b.String()
}

func percent(score float64) string {
	return fmt.Sprintf("%.0f%%", score*100)
}

// resultsView is the rendered body of the results state along with the
// first line of every card, used to keep the selection in view.
type resultsView struct {
	content string
	offsets []int
	lines   int
}

func renderResults(r *sentiment.Result, width, selected, speaking int, showScores bool) resultsView {
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(overallView(r, showScores))
	b.WriteString("\n\n")
	b.WriteString(distributionView(r, width))
	b.WriteString("\n")

	line := strings.Count(b.String(), "\n")
	offsets := make([]int, 0, r.Len())
	for i, p := range r.Paragraphs {
		card := cardView(p, width, i == selected, i == speaking, showScores) + "\n"
		offsets = append(offsets, line)
		line += strings.Count(card, "\n")
		b.WriteString(card)
	}

	s := b.String()
	return resultsView{
		content: s,
		offsets: offsets,
		lines:   strings.Count(s, "\n"),
	}
}

func overallView(r *sentiment.Result, showScores bool) string {
	label := strings.ToUpper(r.Overall.Sentiment.Label())
	if showScores {
		label += " " + percent(r.Overall.Score)
	}
	return "  " + dimStyle.Render("Overall") + "  " + badgeStyle(r.Overall.Sentiment).Render(label)
}

// distributionView draws one horizontal bar per polarity, scaled to the
// largest count.
func distributionView(r *sentiment.Result, width int) string {
	counts := r.Counts()
	most := 0
	for _, n := range counts {
		most = max(most, n)
	}

	barWidth := min(maxBarWidth, max(width-24, 1))

	var b strings.Builder
	for _, s := range sentiment.Sentiments {
		n := counts[s]
		w := 0
		if most > 0 {
			w = n * barWidth / most
		}
		if n > 0 && w == 0 {
			w = 1
		}
		bar := lipgloss.NewStyle().Foreground(sentimentColor(s)).Render(strings.Repeat("█", w))
		fmt.Fprintf(&b, "  %s %s %s\n", runewidth.FillRight(s.Label(), 9), bar, dimStyle.Render(fmt.Sprint(n)))
	}
	return b.String()
}

func cardView(p sentiment.Paragraph, width int, selected, speaking, showScores bool) string {
	// border, padding and outer indent
	inner := max(width-6, 10)

	header := lipgloss.NewStyle().Foreground(sentimentColor(p.Sentiment)).Bold(true).Render(p.Sentiment.Label())
	if showScores {
		header += " " + dimStyle.Render(percent(p.Score))
	}
	if speaking {
		header += "  " + lipgloss.NewStyle().Foreground(fuchsia).Render(speakingTag)
	}

	body := header + "\n" + wordwrap.String(p.Text, inner)
	card := cardStyle(p.Sentiment, selected, speaking).Width(inner + 2).Render(body)
	return indent(card, 2)
}
