// Package analysis loads pre-computed audio analysis documents and turns
// them into playback streams. A document carries the melody pitch track,
// beat onsets, and optionally word timings for one audio file; the analysis
// itself is produced offline.
package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/hapticlabs/hapticsync/internal/transcript"
)

// Sample is one point of the melody pitch track. Pitch is in Hz; zero or
// negative pitch marks an unvoiced frame.
type Sample struct {
	Time  float64 `json:"t"`
	Pitch float64 `json:"pitch"`
}

// Document is the analysis for one audio file.
type Document struct {
	File       string            `json:"file"`
	SampleRate int               `json:"sample_rate"`
	Melody     []Sample          `json:"melody"`
	Beats      []float64         `json:"beats"`
	Words      []transcript.Word `json:"words,omitempty"`
}

// Load reads and validates an analysis document from a JSON file.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read analysis %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parse analysis %s: %w", path, err)
	}
	if err := doc.Validate(); err != nil {
		return Document{}, fmt.Errorf("analysis %s: %w", path, err)
	}
	return doc, nil
}

// Validate checks the document for timing defects a stream builder would
// otherwise propagate.
func (d Document) Validate() error {
	if d.File == "" {
		return fmt.Errorf("missing audio file name")
	}
	prev := math.Inf(-1)
	for i, s := range d.Melody {
		if math.IsNaN(s.Time) || s.Time < 0 {
			return fmt.Errorf("melody sample %d: bad time %v", i, s.Time)
		}
		if s.Time < prev {
			return fmt.Errorf("melody sample %d: time %v before %v", i, s.Time, prev)
		}
		prev = s.Time
	}
	prev = math.Inf(-1)
	for i, b := range d.Beats {
		if math.IsNaN(b) || b < 0 {
			return fmt.Errorf("beat %d: bad time %v", i, b)
		}
		if b < prev {
			return fmt.Errorf("beat %d: time %v before %v", i, b, prev)
		}
		prev = b
	}
	for i, w := range d.Words {
		if math.IsNaN(w.Start) || w.Start < 0 || w.End < w.Start {
			return fmt.Errorf("word %d %q: bad span [%v, %v]", i, w.Text, w.Start, w.End)
		}
		if i > 0 && w.Start < d.Words[i-1].Start {
			return fmt.Errorf("word %d %q: starts before previous word", i, w.Text)
		}
	}
	return nil
}
