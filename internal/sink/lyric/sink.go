// Package lyric renders karaoke-style word highlighting to a terminal.
// Values written to the sink are word indices; the neutral value -1 clears
// the highlight.
package lyric

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/hapticlabs/hapticsync/internal/playback"
	"github.com/hapticlabs/hapticsync/internal/transcript"
)

const (
	highlightOn  = "\x1b[7m"
	highlightOff = "\x1b[0m"
)

// Sink rewrites one terminal line per highlight change.
type Sink struct {
	mu    sync.Mutex
	out   io.Writer
	words []string
	color bool
}

// New builds a sink over the given words. When color is false the current
// word is bracketed instead of inverted, for dumb terminals and logs.
func New(out io.Writer, words []transcript.Word, color bool) *Sink {
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}
	return &Sink{out: out, words: texts, color: color}
}

// Write highlights the word at index v. Out-of-range indices render the
// plain line rather than failing, since a late word event is not worth
// killing a session over.
func (s *Sink) Write(v playback.Value) error {
	idx := -1
	if f := float64(v); !math.IsNaN(f) && f >= 0 && f < float64(len(s.words)) {
		idx = int(f)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprint(s.out, "\r\x1b[K"+s.render(idx)); err != nil {
		return fmt.Errorf("render lyric line: %w", err)
	}
	return nil
}

// Neutral clears the highlight.
func (s *Sink) Neutral() playback.Value { return -1 }

// Close finishes the in-place line with a newline.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.out)
	return err
}

func (s *Sink) render(current int) string {
	var b strings.Builder
	for i, w := range s.words {
		if i > 0 {
			b.WriteByte(' ')
		}
		if i != current {
			b.WriteString(w)
			continue
		}
		if s.color {
			b.WriteString(highlightOn)
			b.WriteString(w)
			b.WriteString(highlightOff)
		} else {
			b.WriteString("[" + w + "]")
		}
	}
	return b.String()
}
