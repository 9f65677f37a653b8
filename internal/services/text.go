package services

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {}, "for": {},
	"from": {}, "has": {}, "in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {}, "or": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "with": {}, "there": {}, "some": {}, "into": {},
	"over": {}, "under": {}, "while": {}, "his": {}, "her": {}, "their": {}, "who": {}, "what": {},
}

// Tokens splits text into lower-case words, dropping punctuation and digits.
func Tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// Keywords returns up to n non-stop-words of text, most frequent first, ties alphabetical.
func Keywords(text string, n int) []string {
	counts := make(map[string]int)
	for _, tok := range Tokens(text) {
		if _, stop := stopWords[tok]; stop || len(tok) < 3 {
			continue
		}
		counts[tok]++
	}
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}

var fallbackTemplates = []string{
	"A glimpse of %[1]s...",
	"What if it was %[2]s?",
	"Imagine something with %[1]s...",
	"A scene with %[1]s and %[2]s...",
}

// FallbackClue builds a template clue from the keywords of description. pick selects the template.
func FallbackClue(description string, pick int) string {
	kw := Keywords(description, 2)
	kw = append(kw, "something", "mystical")
	if pick < 0 {
		pick = -pick
	}
	return fmt.Sprintf(fallbackTemplates[pick%len(fallbackTemplates)], kw[0], kw[1])
}

// RemoveRepetitions drops repeated words (case-insensitively), keeping the first occurrence.
func RemoveRepetitions(phrase string) string {
	seen := make(map[string]struct{})
	var out []string
	for _, w := range strings.Fields(phrase) {
		key := strings.ToLower(w)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

// ContainsBanned reports whether text contains any of the banned phrases, ignoring case.
func ContainsBanned(text string, banned []string) bool {
	lower := strings.ToLower(text)
	for _, b := range banned {
		if b != "" && strings.Contains(lower, strings.ToLower(b)) {
			return true
		}
	}
	return false
}
