package vocabulary

import "strings"

// CorrectionRecord describes one line changed by cleaning. It is
// informational; the cleaned text is never rebuilt from records.
type CorrectionRecord struct {
	// LineNumber is 1-based.
	LineNumber int
	Original   string
	Corrected  string
}

// DiffLines compares original and cleaned line by line, by position, up to the
// shorter of the two, and reports every line that differs.
func DiffLines(original, cleaned string) []CorrectionRecord {
	a, b := splitLines(original), splitLines(cleaned)
	n := min(len(a), len(b))
	var out []CorrectionRecord
	for i := range n {
		if a[i] != b[i] {
			out = append(out, CorrectionRecord{LineNumber: i + 1, Original: a[i], Corrected: b[i]})
		}
	}
	return out
}

// splitLines splits on \n, drops a trailing \r per line and the empty element
// after a final newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
