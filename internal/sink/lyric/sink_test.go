package lyric

import (
	"bytes"
	"strings"
	"testing"

	"github.com/hapticlabs/hapticsync/internal/transcript"
)

func testWords() []transcript.Word {
	return []transcript.Word{
		{Start: 0, End: 0.4, Text: "hello"},
		{Start: 0.5, End: 0.9, Text: "cruel"},
		{Start: 1.0, End: 1.4, Text: "world"},
	}
}

func TestWriteHighlightsCurrentWord(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := New(&buf, testWords(), false)
	if err := s.Write(1); err != nil {
		t.Fatalf("Write error = %v", err)
	}
	if got := buf.String(); !strings.Contains(got, "hello [cruel] world") {
		t.Fatalf("rendered %q, want bracketed middle word", got)
	}
}

func TestWriteColorMode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := New(&buf, testWords(), true)
	if err := s.Write(0); err != nil {
		t.Fatalf("Write error = %v", err)
	}
	if got := buf.String(); !strings.Contains(got, "\x1b[7mhello\x1b[0m cruel world") {
		t.Fatalf("rendered %q, want inverted first word", got)
	}
}

func TestNeutralClearsHighlight(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := New(&buf, testWords(), false)
	if err := s.Write(s.Neutral()); err != nil {
		t.Fatalf("Write error = %v", err)
	}
	if got := renderedLine(t, buf.String()); got != "hello cruel world" {
		t.Fatalf("rendered %q, want plain line without highlight", got)
	}
}

func TestWriteToleratesOutOfRangeIndex(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := New(&buf, testWords(), false)
	if err := s.Write(99); err != nil {
		t.Fatalf("Write error = %v", err)
	}
	if got := renderedLine(t, buf.String()); got != "hello cruel world" {
		t.Fatalf("rendered %q, want plain line for out-of-range index", got)
	}
}

// renderedLine strips the carriage-return and clear-line prefix every Write
// emits, leaving just the lyric text.
func renderedLine(t *testing.T, out string) string {
	t.Helper()
	const prefix = "\r\x1b[K"
	if !strings.HasPrefix(out, prefix) {
		t.Fatalf("output %q does not start with the line rewrite prefix", out)
	}
	return strings.TrimPrefix(out, prefix)
}

func TestCloseEndsLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := New(&buf, testWords(), false)
	if err := s.Close(); err != nil {
		t.Fatalf("Close error = %v", err)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Fatalf("output %q does not end the line", buf.String())
	}
}
