// Package moderation censors forbidden words in room messages before they
// are broadcast. Matching runs over a normalized view of the text so that
// spacing, punctuation, and case cannot be used to slip a word through.
package moderation

import (
	"log/slog"
	"unicode"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
	log         *slog.Logger
}

// NewModerator builds the Aho-Corasick automaton from the dictionary.
// Entries that normalize to nothing (pure punctuation, empty strings) are
// skipped instead of failing the build.
func NewModerator(dictionary []string, replacement rune, log *slog.Logger) (Moderator, error) {
	var patterns [][]rune
	for _, word := range dictionary {
		if p := normalize([]rune(word)); len(p) > 0 {
			patterns = append(patterns, p)
		}
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Moderator{}, err
	}
	return Moderator{matcher: m, replacement: replacement, log: log}, nil
}

// Censor replaces every matched span of the original text with the
// replacement rune, preserving spacing and punctuation inside the span.
// It returns the censored text and the matched (normalized) words.
func (m *Moderator) Censor(original string) (string, []string) {
	origRunes := []rune(original)

	// Normalized view plus a mapping back to original rune positions.
	norm := make([]rune, 0, len(origRunes))
	origIdx := make([]int, 0, len(origRunes))
	for i, r := range origRunes {
		if skippable(r) {
			continue
		}
		norm = append(norm, unicode.ToLower(r))
		origIdx = append(origIdx, i)
	}
	if len(norm) == 0 {
		return original, nil
	}

	spans := m.matcher.MultiPatternSearch(norm, false)
	if len(spans) == 0 {
		return original, nil
	}

	var matched []string
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		matched = append(matched, string(span.Word))

		// Mask everything between the first and last original rune of the
		// span, punctuation and spaces included.
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			origRunes[i] = m.replacement
		}
	}

	info := whatlanggo.Detect(original)
	m.log.Debug("Censored message content",
		"words", len(matched),
		"lang", info.Lang.String())

	return string(origRunes), matched
}

func normalize(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if skippable(r) {
			continue
		}
		out = append(out, unicode.ToLower(r))
	}
	return out
}

// skippable identifies characters ignored during pattern matching.
func skippable(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
