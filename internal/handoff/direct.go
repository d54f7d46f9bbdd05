package handoff

import (
	"context"
	"regexp"
	"strings"
)

// addressWindow is how many tokens at either edge of a sentence count as direct address.
const addressWindow = 3

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]*`)

// DirectAddress matches "Sarah, ..." or "..., Sarah?" without calling a model.
type DirectAddress struct{}

// Name implements Strategy.
func (DirectAddress) Name() string { return "direct" }

// Detect implements Strategy. A name may span several tokens; it counts when
// it starts inside the leading window or ends inside the trailing one.
func (DirectAddress) Detect(_ context.Context, text string, candidates []Candidate) (string, bool) {
	for _, sentence := range sentencePattern.FindAllString(strings.ToLower(text), -1) {
		tokens := strings.Fields(sentence)
		n := len(tokens)
		for i := range tokens {
			for _, c := range candidates {
				for _, name := range c.Names {
					words := strings.Fields(name)
					last := i + len(words) - 1
					if len(words) == 0 || last >= n {
						continue
					}
					if i >= addressWindow && last < n-addressWindow {
						continue
					}
					if addressedBy(tokens[i:last+1], words) {
						return c.ID, true
					}
				}
			}
		}
	}
	return "", false
}

// addressedBy reports whether toks spell out words with a comma or question
// mark directly after the final word.
func addressedBy(toks, words []string) bool {
	first := strings.TrimLeft(toks[0], "\"'(“‘@")
	if len(toks) == 1 {
		return endsWithAddress(first, words[0])
	}
	if first != words[0] {
		return false
	}
	for j := 1; j < len(words)-1; j++ {
		if toks[j] != words[j] {
			return false
		}
	}
	return endsWithAddress(toks[len(toks)-1], words[len(words)-1])
}

func endsWithAddress(tok, word string) bool {
	if len(tok) <= len(word) || !strings.HasPrefix(tok, word) {
		return false
	}
	switch tok[len(word)] {
	case ',', '?':
		return true
	}
	return false
}
