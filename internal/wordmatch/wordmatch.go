// Package wordmatch implements the whole-word, case-insensitive phrase test
// shared by plugin keyword matching and ignore_if suppression, and caches the
// case-insensitive literal patterns that vocabulary phrase correction reuses.
//
// A phrase matches when it occurs in the text (Unicode simple case folding)
// and the match is not glued to surrounding word characters. Boundaries are
// only enforced on a side where the phrase itself begins or ends with a word
// character, so a phrase like "c++" still matches inside "I like c++."
// Word characters are Unicode letters, digits and the underscore.
package wordmatch

import (
	"regexp"
	"unicode"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheSize bounds the number of compiled phrase patterns kept in memory.
const cacheSize = 1024

var patterns *lru.Cache[string, *regexp.Regexp]

func init() {
	c, err := lru.New[string, *regexp.Regexp](cacheSize)
	if err != nil {
		panic("wordmatch: " + err.Error())
	}
	patterns = c
}

// Pattern returns the compiled case-insensitive literal pattern for phrase.
// Patterns are cached; the returned value is safe for concurrent use.
func Pattern(phrase string) *regexp.Regexp {
	if re, ok := patterns.Get(phrase); ok {
		return re
	}
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(phrase))
	patterns.Add(phrase, re)
	return re
}

// Contains reports whether phrase occurs in text as a whole word.
// An empty phrase never matches.
func Contains(text, phrase string) bool {
	_, _, ok := Find(text, phrase, 0)
	return ok
}

// Find returns the byte offsets of the first whole-word match of phrase in
// text at or after byte offset from. A rejected candidate is retried one rune
// later so overlapping occurrences are not missed.
func Find(text, phrase string, from int) (start, end int, ok bool) {
	if phrase == "" || from > len(text) {
		return 0, 0, false
	}
	re := Pattern(phrase)
	checkLeft, checkRight := edgeIsWord(phrase)

	for pos := from; pos <= len(text); {
		loc := re.FindStringIndex(text[pos:])
		if loc == nil {
			return 0, 0, false
		}
		s, e := pos+loc[0], pos+loc[1]
		if (!checkLeft || !wordBefore(text, s)) && (!checkRight || !wordAfter(text, e)) {
			return s, e, true
		}
		_, size := utf8.DecodeRuneInString(text[s:])
		if size == 0 {
			size = 1
		}
		pos = s + size
	}
	return 0, 0, false
}

// Any reports whether at least one of phrases matches text.
func Any(text string, phrases []string) bool {
	for _, p := range phrases {
		if Contains(text, p) {
			return true
		}
	}
	return false
}

// All reports whether every phrase matches text. It is false for an empty
// phrase list so that a plugin without keywords never fires on its own.
func All(text string, phrases []string) bool {
	if len(phrases) == 0 {
		return false
	}
	for _, p := range phrases {
		if !Contains(text, p) {
			return false
		}
	}
	return true
}

// IsWordRune reports whether r counts as a word character.
func IsWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func edgeIsWord(phrase string) (first, last bool) {
	r, _ := utf8.DecodeRuneInString(phrase)
	l, _ := utf8.DecodeLastRuneInString(phrase)
	return IsWordRune(r), IsWordRune(l)
}

func wordBefore(text string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return IsWordRune(r)
}

func wordAfter(text string, i int) bool {
	if i >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return IsWordRune(r)
}
