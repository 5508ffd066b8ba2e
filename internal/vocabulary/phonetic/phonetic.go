// Package phonetic implements the optional sound-alike pass of the vocabulary
// corrector using Double Metaphone encoding combined with Jaro-Winkler string
// similarity.
//
// A word is replaced by a target only when both hold:
//
//  1. Phonetic overlap: a Double Metaphone code (primary or alternate) of the
//     word equals a code of the target.
//  2. Spelling similarity: the case-insensitive Jaro-Winkler score of word and
//     target reaches the threshold (default 0.90).
//
// Among qualifying targets the highest score wins; ties keep the earlier
// target. The high default threshold keeps the pass conservative, since it
// rewrites words no rule mentions explicitly.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const defaultThreshold = 0.90

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithThreshold sets the minimum Jaro-Winkler score for a phonetic match.
// Values outside (0, 1] are ignored.
func WithThreshold(threshold float64) Option {
	return func(m *Matcher) {
		if threshold > 0 && threshold <= 1 {
			m.threshold = threshold
		}
	}
}

// Matcher is read-only after construction and safe for concurrent use.
type Matcher struct {
	threshold float64
}

// New returns a [Matcher] configured with the supplied options.
func New(opts ...Option) *Matcher {
	m := &Matcher{threshold: defaultThreshold}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Threshold returns the configured Jaro-Winkler threshold.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Match finds the target in targets that best matches word. When matched is
// false, corrected equals word and confidence is 0.
func (m *Matcher) Match(word string, targets []string) (corrected string, confidence float64, matched bool) {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" || len(targets) == 0 {
		return word, 0, false
	}
	wordCodes := codes(w)
	if len(wordCodes) == 0 {
		return word, 0, false
	}

	var (
		best      string
		bestScore float64
	)
	for _, target := range targets {
		t := strings.ToLower(strings.TrimSpace(target))
		if t == "" || !overlaps(wordCodes, codes(t)) {
			continue
		}
		score := matchr.JaroWinkler(w, t, false)
		if score >= m.threshold && score > bestScore {
			best, bestScore = target, score
		}
	}
	if best == "" {
		return word, 0, false
	}
	return best, bestScore, true
}

// codes returns the non-empty Double Metaphone codes of s.
func codes(s string) map[string]struct{} {
	out := make(map[string]struct{}, 2)
	p, alt := matchr.DoubleMetaphone(s)
	if p != "" {
		out[p] = struct{}{}
	}
	if alt != "" {
		out[alt] = struct{}{}
	}
	return out
}

func overlaps(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for c := range a {
		if _, ok := b[c]; ok {
			return true
		}
	}
	return false
}
