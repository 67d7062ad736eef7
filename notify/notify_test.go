package notify

import (
	"strings"
	"testing"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{"short", "hello world", 55, "hello world"},
		{"reflow newlines", "one\ntwo  three", 55, "one two three"},
		{"break", "aaa bbb ccc", 7, "aaa bbb\nccc"},
		{"long word kept whole", "tiny supercalifragilistic end", 8, "tiny\nsupercalifragilistic\nend"},
		{"empty", "   ", 55, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Wrap(tt.text, tt.width, 10); got != tt.want {
				t.Errorf("Wrap(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestWrapLineLimit(t *testing.T) {
	text := strings.Repeat("word ", 200)
	got := Wrap(text, 55, 10)
	lines := strings.Split(got, "\n")
	if len(lines) != 10 {
		t.Fatalf("lines = %d, want 10", len(lines))
	}
	for _, l := range lines {
		if len(l) > 55 {
			t.Errorf("line %q longer than 55", l)
		}
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("  short  ", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := Preview("héllo wörld", 5); got != "héllo..." {
		t.Errorf("got %q", got)
	}
}
