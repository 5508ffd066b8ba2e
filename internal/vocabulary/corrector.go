// Package vocabulary normalises transcription errors in a transcript against
// user-maintained vocabulary files.
//
// Speech-to-text output routinely mangles project names, people and jargon
// ("nauster" for "Nostr"). A vocabulary file lists such fixes one per line as
// "incorrect -> correct". The [Corrector] applies them in up to three passes:
//
//  1. Token pass: every word token whose lower-cased form is a rule key is
//     replaced. Whitespace and punctuation between tokens are copied through
//     untouched.
//  2. Phrase pass: rules whose key contains whitespace are applied as
//     case-insensitive literal replacements over the token-corrected text.
//  3. Phonetic pass (optional): remaining words that sound like a known
//     single-word correction are replaced. See package phonetic.
//
// Every replacement reproduces the case pattern of the text it replaces. The
// result carries a line-level report of what changed, computed by position.
package vocabulary

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MrWong99/vibeline/internal/wordmatch"
)

// wordToken matches one word span: Unicode letters, digits and underscore.
var wordToken = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// PhoneticMatcher resolves a word to the most similar single-word target.
// When matched is false, corrected equals word.
type PhoneticMatcher interface {
	Match(word string, targets []string) (corrected string, confidence float64, matched bool)
}

// Option is a functional option for configuring a [Corrector].
type Option func(*Corrector)

// WithPhoneticMatcher enables the phonetic pass. When nil (the default), the
// pass is skipped.
func WithPhoneticMatcher(m PhoneticMatcher) Option {
	return func(c *Corrector) {
		c.phonetic = m
	}
}

// Corrector applies a fixed rule table. It is read-only after construction
// and safe for concurrent use.
type Corrector struct {
	rules    Rules
	phrases  []Rule
	targets  []string
	phonetic PhoneticMatcher
}

// New returns a Corrector for rules.
func New(rules Rules, opts ...Option) *Corrector {
	c := &Corrector{rules: rules}
	seen := make(map[string]struct{})
	for _, r := range rules.All() {
		if strings.ContainsFunc(r.Incorrect, unicode.IsSpace) {
			c.phrases = append(c.phrases, r)
			continue
		}
		if isSingleWord(r.Correct) {
			if _, dup := seen[r.Correct]; !dup {
				seen[r.Correct] = struct{}{}
				c.targets = append(c.targets, r.Correct)
			}
		}
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Clean is shorthand for New(Merge(ruleSets...)).Clean(text).
func Clean(text string, ruleSets ...Rules) (string, []CorrectionRecord) {
	return New(Merge(ruleSets...)).Clean(text)
}

// Clean returns the corrected text and the lines that changed. With no rules
// the text is returned unchanged with no records.
func (c *Corrector) Clean(text string) (string, []CorrectionRecord) {
	if c.rules.Len() == 0 {
		return text, nil
	}

	cleaned := c.tokenPass(text)
	cleaned = c.phrasePass(cleaned)
	if c.phonetic != nil && len(c.targets) > 0 {
		cleaned = c.phoneticPass(cleaned)
	}

	if cleaned == text {
		return text, nil
	}
	return cleaned, DiffLines(text, cleaned)
}

func (c *Corrector) tokenPass(text string) string {
	return wordToken.ReplaceAllStringFunc(text, func(tok string) string {
		repl, ok := c.rules.Lookup(tok)
		if !ok {
			return tok
		}
		return MatchCase(tok, repl)
	})
}

func (c *Corrector) phrasePass(text string) string {
	for _, r := range c.phrases {
		re := wordmatch.Pattern(r.Incorrect)
		text = re.ReplaceAllStringFunc(text, func(orig string) string {
			return MatchCase(orig, r.Correct)
		})
	}
	return text
}

// minPhoneticRunes keeps short function words out of the phonetic pass.
const minPhoneticRunes = 4

func (c *Corrector) phoneticPass(text string) string {
	known := make(map[string]struct{}, len(c.targets))
	for _, t := range c.targets {
		known[strings.ToLower(t)] = struct{}{}
	}
	return wordToken.ReplaceAllStringFunc(text, func(tok string) string {
		if utf8.RuneCountInString(tok) < minPhoneticRunes {
			return tok
		}
		if _, ok := known[strings.ToLower(tok)]; ok {
			return tok
		}
		if _, ok := c.rules.Lookup(tok); ok {
			return tok
		}
		corrected, _, matched := c.phonetic.Match(tok, c.targets)
		if !matched {
			return tok
		}
		return MatchCase(tok, corrected)
	})
}

// MatchCase adapts replacement to the case pattern of original: an all
// upper-case original upper-cases the replacement, an original starting with
// an upper-case letter capitalises the replacement's first letter, anything
// else keeps the replacement as written.
func MatchCase(original, replacement string) string {
	if replacement == "" {
		return replacement
	}
	if isUpper(original) {
		return strings.ToUpper(replacement)
	}
	first, _ := utf8.DecodeRuneInString(original)
	if unicode.IsUpper(first) {
		r, size := utf8.DecodeRuneInString(replacement)
		return string(unicode.ToUpper(r)) + replacement[size:]
	}
	return replacement
}

// isUpper reports whether s has at least one cased letter and no lower-case
// ones.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			return false
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			cased = true
		}
	}
	return cased
}

func isSingleWord(s string) bool {
	loc := wordToken.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}
