// Package sentiment defines the per-paragraph sentiment result exchanged with
// the analysis service, plus a local VADER-based analyzer producing it.
package sentiment

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Sentiment is the polarity of a span of text.
type Sentiment string

const (
	Positive Sentiment = "positive"
	Neutral  Sentiment = "neutral"
	Negative Sentiment = "negative"
)

// Sentiments lists every polarity in display order.
var Sentiments = []Sentiment{Positive, Neutral, Negative}

var titleCaser = cases.Title(language.English)

// Label returns the capitalized display label, e.g. "Positive".
func (s Sentiment) Label() string {
	if s == "" {
		return titleCaser.String(string(Neutral))
	}
	return titleCaser.String(string(s))
}

// Valid reports whether s is one of the known polarities.
func (s Sentiment) Valid() bool {
	switch s {
	case Positive, Neutral, Negative:
		return true
	}
	return false
}

// Score is a polarity with its confidence in [0,1].
type Score struct {
	Sentiment Sentiment `json:"sentiment"`
	Score     float64   `json:"score"`
}

// SpeechParams is a backend-provided voice adjustment. When present it is
// authoritative over any locally derived parameters.
type SpeechParams struct {
	RateMultiplier float64 `json:"rate"`
	Pitch          float64 `json:"pitch"`
	Volume         float64 `json:"volume"`
}

// Paragraph is the analysis of a single paragraph.
type Paragraph struct {
	Text         string        `json:"text"`
	Sentiment    Sentiment     `json:"sentiment"`
	Score        float64       `json:"score"`
	SpeechParams *SpeechParams `json:"speechParams,omitempty"`
}

// Result is the analysis of a whole document. It is not modified after it is
// produced.
type Result struct {
	Overall    Score       `json:"overall"`
	Paragraphs []Paragraph `json:"paragraphs"`
}

// Len returns the number of paragraphs, tolerating a nil result.
func (r *Result) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Paragraphs)
}

// Counts returns the number of paragraphs per polarity. Unknown polarities
// count as neutral.
func (r *Result) Counts() map[Sentiment]int {
	counts := map[Sentiment]int{Positive: 0, Neutral: 0, Negative: 0}
	if r == nil {
		return counts
	}
	for _, p := range r.Paragraphs {
		s := p.Sentiment
		if !s.Valid() {
			s = Neutral
		}
		counts[s]++
	}
	return counts
}
