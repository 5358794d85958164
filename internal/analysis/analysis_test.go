package analysis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hapticlabs/hapticsync/internal/transcript"
)

func TestLoadParsesDocument(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "song.json")
	payload := `{
		"file": "song.wav",
		"sample_rate": 44100,
		"melody": [{"t": 0.0, "pitch": 220.0}, {"t": 0.5, "pitch": 440.0}],
		"beats": [0.0, 0.5, 1.0],
		"words": [{"start": 0.2, "end": 0.6, "word": "hello"}]
	}`
	if err := os.WriteFile(path, []byte(payload), 0o600); err != nil {
		t.Fatalf("write analysis file: %v", err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.File != "song.wav" || doc.SampleRate != 44100 {
		t.Fatalf("unexpected header: %+v", doc)
	}
	if len(doc.Melody) != 2 || len(doc.Beats) != 3 || len(doc.Words) != 1 {
		t.Fatalf("unexpected track sizes: %+v", doc)
	}
	if doc.Words[0].Text != "hello" {
		t.Fatalf("word = %+v", doc.Words[0])
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o600); err != nil {
		t.Fatalf("write analysis file: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateFlagsTimingDefects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		doc  Document
	}{
		{"missing file", Document{}},
		{"unsorted melody", Document{
			File:   "a.wav",
			Melody: []Sample{{Time: 1, Pitch: 220}, {Time: 0.5, Pitch: 220}},
		}},
		{"negative melody time", Document{
			File:   "a.wav",
			Melody: []Sample{{Time: -1, Pitch: 220}},
		}},
		{"unsorted beats", Document{File: "a.wav", Beats: []float64{1, 0.5}}},
		{"negative beat", Document{File: "a.wav", Beats: []float64{-0.1}}},
		{"inverted word span", Document{
			File:  "a.wav",
			Words: []transcript.Word{{Start: 1, End: 0.5, Text: "x"}},
		}},
		{"unsorted words", Document{
			File: "a.wav",
			Words: []transcript.Word{
				{Start: 1, End: 1.2, Text: "b"},
				{Start: 0.5, End: 0.8, Text: "a"},
			},
		}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if err := tc.doc.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateAcceptsWellFormedDocument(t *testing.T) {
	t.Parallel()

	doc := Document{
		File:   "a.wav",
		Melody: []Sample{{Time: 0, Pitch: 0}, {Time: 0.5, Pitch: 330}},
		Beats:  []float64{0, 0.5},
		Words:  []transcript.Word{{Start: 0.1, End: 0.4, Text: "a"}},
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}
