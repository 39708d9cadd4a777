package narration

import (
	"github.com/dgnsrekt/sentispeech/internal/sentiment"
)

// Unit is a queued span of text with the sentiment that shapes its voice.
// Index points back into the paragraphs of the result it came from.
type Unit struct {
	Text      string
	Sentiment sentiment.Sentiment
	Score     float64
	Params    *sentiment.SpeechParams
	Index     int
}

func unitFrom(p sentiment.Paragraph, index int) Unit {
	return Unit{
		Text:      p.Text,
		Sentiment: p.Sentiment,
		Score:     p.Score,
		Params:    p.SpeechParams,
		Index:     index,
	}
}

func unitsFrom(r *sentiment.Result) []Unit {
	units := make([]Unit, 0, r.Len())
	for i, p := range r.Paragraphs {
		units = append(units, unitFrom(p, i))
	}
	return units
}
