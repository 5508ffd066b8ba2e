package todo

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/MrWong99/vibeline/internal/layout"
)

const modelOutput = `Here are the action items from the transcript:

- call the dentist (no deadline or priority mentioned)
* 1. Send invoice to Acme by Friday
  - nested detail that is ignored
+ **Review** the pull request!
- # Heading-like item
-
Rules were followed.
No action items beyond these.
plain prose line
`

func TestExtract(t *testing.T) {
	t.Parallel()

	want := []string{
		"call the dentist",
		"Send invoice to Acme by Friday",
		"Review** the pull request!",
		"Heading-like item",
	}
	if got := Extract(modelOutput); !reflect.DeepEqual(got, want) {
		t.Errorf("Extract =\n%q\nwant\n%q", got, want)
	}
}

func TestHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		stem, want string
	}{
		{"20240115_153000", "# Mon Jan 15 @ 03:30 PM"},
		{"20240230_120000", "# Action Items from 20240230_120000"},
		{"meeting-notes", "# Action Items from meeting-notes"},
	}
	for _, tt := range tests {
		if got := Header(tt.stem); got != tt.want {
			t.Errorf("Header(%q) = %q, want %q", tt.stem, got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	got := Format([]string{"call the dentist", "Ship it!", "why not?"}, "notes")
	want := "# Action Items from notes\n\n" +
		"- [ ] Call the dentist.\n" +
		"- [ ] Ship it!\n" +
		"- [ ] Why not?\n"
	if got != want {
		t.Errorf("Format =\n%s\nwant\n%s", got, want)
	}
	if got := Format(nil, "x"); got != "# No items found\n" {
		t.Errorf("Format(nil) = %q", got)
	}
}

func TestProcess(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	l := layout.New(root)
	src := filepath.Join(root, layout.ActionItemsDir)
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(src, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("20240115_093000.txt", "- buy milk\n")
	write("empty.txt", "No action items found.\n")

	existing := filepath.Join(root, layout.TodosDir, "kept.md")
	write("kept.txt", "- new item\n")
	if err := os.MkdirAll(filepath.Dir(existing), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(existing, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	sum, err := Process(l, Options{})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if sum != (Summary{Written: 1, Skipped: 1, Empty: 1}) {
		t.Errorf("summary = %+v", sum)
	}
	data, err := os.ReadFile(filepath.Join(root, layout.TodosDir, "20240115_093000.md"))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), "# Mon Jan 15 @ 09:30 AM\n\n- [ ] Buy milk.\n"; got != want {
		t.Errorf("todo file = %q, want %q", got, want)
	}
	if _, err := os.Stat(filepath.Join(root, layout.TodosDir, "empty.md")); err == nil {
		t.Error("file written for transcript without items")
	}

	if _, err := Process(l, Options{Force: true}); err != nil {
		t.Fatalf("Process force: %v", err)
	}
	data, _ = os.ReadFile(existing)
	if string(data) != "# Action Items from kept\n\n- [ ] New item.\n" {
		t.Errorf("forced rewrite = %q", data)
	}
}

func TestProcess_NoActionItemsDir(t *testing.T) {
	t.Parallel()

	sum, err := Process(layout.New(t.TempDir()), Options{})
	if err != nil || sum != (Summary{}) {
		t.Errorf("Process = (%+v, %v), want empty summary and nil", sum, err)
	}
}
