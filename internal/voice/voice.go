// Package voice picks a synthesis voice from a driver's voice list.
package voice

import (
	"regexp"
	"strings"

	"github.com/dgnsrekt/sentispeech/internal/speech"
)

// Preferred lists voice-name fragments in priority order. The first voice
// whose name contains one of them becomes the default.
var Preferred = []string{
	"Google US English",
	"Microsoft David",
	"Microsoft Zira",
	"Daniel",
	"Samantha",
}

var englishTag = regexp.MustCompile(`(?i)^en[-_]`)

// IsEnglish reports whether the voice carries an English language tag with a
// region, e.g. "en-US" or "en_GB".
func IsEnglish(v speech.Voice) bool {
	return englishTag.MatchString(v.Lang)
}

// Partition returns English voices first, then all others. The relative order
// within each group is preserved.
func Partition(voices []speech.Voice) []speech.Voice {
	out := make([]speech.Voice, 0, len(voices))
	var rest []speech.Voice
	for _, v := range voices {
		if IsEnglish(v) {
			out = append(out, v)
		} else {
			rest = append(rest, v)
		}
	}
	return append(out, rest...)
}

// SelectDefault picks the default voice: the first voice matching the
// highest-priority entry of Preferred, else the first voice in partition
// order. It reports false for an empty list.
func SelectDefault(voices []speech.Voice) (speech.Voice, bool) {
	return selectFrom(voices, Preferred)
}

func selectFrom(voices []speech.Voice, preferred []string) (speech.Voice, bool) {
	if len(voices) == 0 {
		return speech.Voice{}, false
	}
	sorted := Partition(voices)
	for _, pref := range preferred {
		for _, v := range sorted {
			if strings.Contains(v.Name, pref) {
				return v, true
			}
		}
	}
	return sorted[0], true
}

// Find returns the voice matching want by name or id, case-insensitively.
func Find(voices []speech.Voice, want string) (speech.Voice, bool) {
	if want == "" {
		return speech.Voice{}, false
	}
	for _, v := range voices {
		if strings.EqualFold(v.Name, want) || (v.ID != "" && strings.EqualFold(v.ID, want)) {
			return v, true
		}
	}
	return speech.Voice{}, false
}

// Resolve keeps current when the list still offers it and falls back to the
// default selection otherwise. It reports false for an empty list.
func Resolve(voices []speech.Voice, current speech.Voice) (speech.Voice, bool) {
	if v, ok := Find(voices, current.Name); ok {
		return v, true
	}
	if v, ok := Find(voices, current.ID); ok {
		return v, true
	}
	return SelectDefault(voices)
}
