package vocabulary

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/MrWong99/vibeline/internal/vocabulary/phonetic"
)

func mustParse(t testing.TB, src string) Rules {
	t.Helper()
	r, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return r
}

func TestParse(t *testing.T) {
	t.Parallel()

	rules := mustParse(t, `
# project names
Nauster -> Nostr
  block stream  ->   Blossom
malformed line
a -> b -> c
empty ->
-> nothing

nauster -> NOSTR
`)
	want := []Rule{
		{Incorrect: "nauster", Correct: "NOSTR"},
		{Incorrect: "block stream", Correct: "Blossom"},
	}
	if got := rules.All(); !reflect.DeepEqual(got, want) {
		t.Errorf("All() = %+v, want %+v", got, want)
	}
}

func TestMerge_LaterOverrides(t *testing.T) {
	t.Parallel()

	base := mustParse(t, "nauster -> Nostr\nkuber -> Kubernetes\n")
	personal := mustParse(t, "kuber -> k8s\nvibe line -> vibeline\n")
	merged := Merge(base, personal)

	if got, _ := merged.Lookup("KUBER"); got != "k8s" {
		t.Errorf("Lookup(kuber) = %q, want k8s", got)
	}
	want := []string{"nauster", "kuber", "vibe line"}
	var got []string
	for _, r := range merged.All() {
		got = append(got, r.Incorrect)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestLoadFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := filepath.Join(dir, "VOCABULARY.txt")
	if err := os.WriteFile(base, []byte("nauster -> Nostr\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rules, err := LoadFiles(base, "", filepath.Join(dir, "missing.txt"))
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	if rules.Len() != 1 {
		t.Errorf("Len() = %d, want 1", rules.Len())
	}
}

func TestClean_CasePreservation(t *testing.T) {
	t.Parallel()

	rules := mustParse(t, "nauster -> Nostr\n")
	tests := []struct {
		in, want string
	}{
		{"I said Nauster", "I said Nostr"},
		{"NAUSTER", "NOSTR"},
		{"nauster", "Nostr"},
		{"nausters and nauster.", "nausters and Nostr."},
		{"(nauster),Nauster!", "(Nostr),Nostr!"},
	}
	for _, tt := range tests {
		got, _ := Clean(tt.in, rules)
		if got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchCase(t *testing.T) {
	t.Parallel()

	tests := []struct {
		orig, repl, want string
	}{
		{"nauster", "nostr", "nostr"},
		{"Nauster", "nostr", "Nostr"},
		{"NAUSTER", "Nostr", "NOSTR"},
		{"N", "nostr", "NOSTR"},
		{"42", "forty-two", "forty-two"},
		{"Ärger", "ärger", "Ärger"},
		{"x", "", ""},
	}
	for _, tt := range tests {
		if got := MatchCase(tt.orig, tt.repl); got != tt.want {
			t.Errorf("MatchCase(%q, %q) = %q, want %q", tt.orig, tt.repl, got, tt.want)
		}
	}
}

func TestClean_PhrasePass(t *testing.T) {
	t.Parallel()

	rules := mustParse(t, "block stream -> Blossom\n")
	got, records := Clean("please use block stream now", rules)
	if got != "please use Blossom now" {
		t.Errorf("got %q", got)
	}
	if len(records) != 1 {
		t.Fatalf("records = %+v", records)
	}

	got, _ = Clean("Block Stream, then BLOCK STREAM", rules)
	if got != "Blossom, then BLOSSOM" {
		t.Errorf("got %q", got)
	}
}

func TestClean_PhraseMatchesInsideWords(t *testing.T) {
	t.Parallel()

	// Phrases are literal, not whole-word.
	rules := mustParse(t, "e mail -> email\n")
	got, _ := Clean("Female mail", rules)
	if got != "Femalemail" {
		t.Errorf("got %q, want Femalemail", got)
	}
}

func TestClean_PhraseRunsAfterTokens(t *testing.T) {
	t.Parallel()

	// The token rule rewrites "blok" first, which lets the phrase rule fire.
	rules := mustParse(t, "blok -> block\nblock stream -> Blossom\n")
	got, _ := Clean("blok stream", rules)
	if got != "Blossom" {
		t.Errorf("got %q, want Blossom", got)
	}
}

func TestClean_PreservesWhitespaceAndPunctuation(t *testing.T) {
	t.Parallel()

	rules := mustParse(t, "teh -> the\n")
	in := "  teh\tcat,  teh\r\ndog...\n\nteh"
	want := "  the\tcat,  the\r\ndog...\n\nthe"
	got, _ := Clean(in, rules)
	if got != want {
		t.Errorf("Clean = %q, want %q", got, want)
	}
}

func TestClean_Records(t *testing.T) {
	t.Parallel()

	rules := mustParse(t, "nauster -> Nostr\n")
	in := "first line\nabout nauster\nlast\nNauster again\n"
	_, records := Clean(in, rules)
	want := []CorrectionRecord{
		{LineNumber: 2, Original: "about nauster", Corrected: "about Nostr"},
		{LineNumber: 4, Original: "Nauster again", Corrected: "Nostr again"},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("records = %+v, want %+v", records, want)
	}
}

func TestClean_UnicodeTokens(t *testing.T) {
	t.Parallel()

	rules := mustParse(t, "müller -> Mueller\n")
	got, _ := Clean("Herr Müller kam", rules)
	if got != "Herr Mueller kam" {
		t.Errorf("got %q", got)
	}
}

func TestClean_Phonetic(t *testing.T) {
	t.Parallel()

	rules := mustParse(t, "kubernets -> Kubernetes\n")
	c := New(rules, WithPhoneticMatcher(phonetic.New()))

	got, _ := c.Clean("deploy to kubernetis and Kubernetis, not cubes")
	want := "deploy to Kubernetes and Kubernetes, not cubes"
	if got != want {
		t.Errorf("Clean = %q, want %q", got, want)
	}

	// Without the matcher the word is left alone.
	plain, _ := New(rules).Clean("deploy to kubernetis")
	if plain != "deploy to kubernetis" {
		t.Errorf("phonetic pass ran without a matcher: %q", plain)
	}
}

func TestDiffLines_PositionalOnly(t *testing.T) {
	t.Parallel()

	got := DiffLines("a\nb\nc", "a\nB")
	want := []CorrectionRecord{{LineNumber: 2, Original: "b", Corrected: "B"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DiffLines = %+v, want %+v", got, want)
	}
	if DiffLines("", "") != nil {
		t.Error("empty inputs must yield no records")
	}
}

// ── Properties ────────────────────────────────────────────────────────────────

func TestProperty_EmptyRulesIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		got, records := Clean(text)
		if got != text {
			t.Fatalf("Clean with no rules changed %q to %q", text, got)
		}
		if len(records) != 0 {
			t.Fatalf("Clean with no rules produced records: %+v", records)
		}
	})
}

func TestProperty_OnlyRuleTokensChange(t *testing.T) {
	rules := mustParse(t, "teh -> the\n")
	rapid.Check(t, func(t *rapid.T) {
		words := rapid.SliceOf(rapid.SampledFrom([]string{"teh", "Teh", "TEH", "cat", "tehs"})).Draw(t, "words")
		seps := rapid.SliceOfN(rapid.SampledFrom([]string{" ", ", ", "\n", "\t", "... ", "!"}), len(words), len(words)).Draw(t, "seps")

		var in, want strings.Builder
		for i, w := range words {
			in.WriteString(w)
			in.WriteString(seps[i])
			switch w {
			case "teh":
				want.WriteString("the")
			case "Teh":
				want.WriteString("The")
			case "TEH":
				want.WriteString("THE")
			default:
				want.WriteString(w)
			}
			want.WriteString(seps[i])
		}
		got, _ := Clean(in.String(), rules)
		if got != want.String() {
			t.Fatalf("Clean(%q) = %q, want %q", in.String(), got, want.String())
		}
	})
}
