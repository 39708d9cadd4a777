package sentiment

import (
	"math"
	"strings"

	"github.com/jonreiter/govader"
)

// Compound scores inside (-neutralBand, neutralBand) are neutral.
const neutralBand = 0.05

// Analyzer scores text locally with VADER.
type Analyzer struct {
	vader *govader.SentimentIntensityAnalyzer
}

// NewAnalyzer creates an analyzer. Loading the lexicon is not free, so keep
// one around.
func NewAnalyzer() *Analyzer {
	return &Analyzer{vader: govader.NewSentimentIntensityAnalyzer()}
}

// Analyze scores the whole text and each non-blank line of it.
func (a *Analyzer) Analyze(text string) *Result {
	res := &Result{
		Overall:    a.score(text),
		Paragraphs: []Paragraph{},
	}
	for _, p := range Split(text) {
		s := a.score(p)
		res.Paragraphs = append(res.Paragraphs, Paragraph{
			Text:         p,
			Sentiment:    s.Sentiment,
			Score:        s.Score,
			SpeechParams: DeriveSpeechParams(s.Sentiment, s.Score),
		})
	}
	return res
}

func (a *Analyzer) score(text string) Score {
	if strings.TrimSpace(text) == "" {
		return Score{Sentiment: Neutral, Score: 0.5}
	}
	return Normalize(a.vader.PolarityScores(text).Compound)
}

// Split breaks text into paragraphs: one per line, blank lines dropped.
func Split(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Normalize maps a VADER compound score in [-1,1] onto a polarity and a
// confidence in [0,1]. Polar scores land in [0.5,1], neutral ones in [0,1]
// across the neutral band.
func Normalize(compound float64) Score {
	switch {
	case compound >= neutralBand:
		return Score{Sentiment: Positive, Score: round2(0.5 + (compound-neutralBand)*0.5/(1-neutralBand))}
	case compound <= -neutralBand:
		return Score{Sentiment: Negative, Score: round2(0.5 + (math.Abs(compound)-neutralBand)*0.5/(1-neutralBand))}
	default:
		return Score{Sentiment: Neutral, Score: round2(0.5 * (compound + neutralBand) / (2 * neutralBand))}
	}
}

// DeriveSpeechParams returns the voice adjustment served alongside each
// paragraph. Strong polarities also nudge the volume.
func DeriveSpeechParams(s Sentiment, score float64) *SpeechParams {
	p := &SpeechParams{RateMultiplier: 1, Pitch: 1, Volume: 1}
	switch s {
	case Positive:
		p.RateMultiplier = 1.1 + 0.2*score
		p.Pitch = 1.1 + 0.2*score
		if score > 0.7 {
			p.Volume = 1.2
		}
	case Negative:
		p.RateMultiplier = 0.9 - 0.1*score
		p.Pitch = 0.9 - 0.1*score
		if score > 0.7 {
			p.Volume = 0.9
		}
	}
	return p
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
