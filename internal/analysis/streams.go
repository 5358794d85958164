package analysis

import (
	"fmt"
	"time"

	"github.com/hapticlabs/hapticsync/internal/playback"
	"github.com/hapticlabs/hapticsync/internal/transcript"
)

// HapticParams shapes how analysis tracks map onto vibration duty cycles.
// Duties are percentages of the PWM period.
type HapticParams struct {
	BeatDuty      float64
	BeatHold      time.Duration
	MelodyMinDuty float64
	MelodyMaxDuty float64
}

// DefaultHapticParams returns the mapping tuned for coin vibration motors:
// beats punch at 75% for 80ms, melody rides between 20% and 60%.
func DefaultHapticParams() HapticParams {
	return HapticParams{
		BeatDuty:      75,
		BeatHold:      80 * time.Millisecond,
		MelodyMinDuty: 20,
		MelodyMaxDuty: 60,
	}
}

func (p HapticParams) validate() error {
	if p.MelodyMinDuty < 0 || p.MelodyMaxDuty > 100 || p.MelodyMinDuty > p.MelodyMaxDuty {
		return fmt.Errorf("melody duty range [%v, %v] out of order", p.MelodyMinDuty, p.MelodyMaxDuty)
	}
	if p.BeatDuty < 0 || p.BeatDuty > 100 {
		return fmt.Errorf("beat duty %v out of range", p.BeatDuty)
	}
	if p.BeatHold < 0 {
		return fmt.Errorf("beat hold %v is negative", p.BeatHold)
	}
	return nil
}

// MelodyStream builds the continuous duty curve from the pitch track. Pitch
// is normalized over the voiced range of this document and mapped linearly
// into [MelodyMinDuty, MelodyMaxDuty]; unvoiced frames fall to the minimum
// duty so the motor idles between phrases instead of going silent.
func MelodyStream(d Document, p HapticParams) (*playback.Stream, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	lo, hi, voiced := pitchRange(d.Melody)

	events := make([]playback.Event, 0, len(d.Melody))
	for _, s := range d.Melody {
		offset, err := playback.OffsetFromSeconds(s.Time)
		if err != nil {
			return nil, fmt.Errorf("melody sample at %v: %w", s.Time, err)
		}
		duty := p.MelodyMinDuty
		if voiced && s.Pitch > 0 {
			duty = mapPitch(s.Pitch, lo, hi, p.MelodyMinDuty, p.MelodyMaxDuty)
		}
		events = append(events, playback.Event{Offset: offset, Value: playback.Value(duty)})
	}
	return playback.NewCurveStream("melody", events)
}

// BeatStream builds the beat pulse train. Each onset drives the motor to
// BeatDuty and holds it for BeatHold; whatever stream writes next takes over
// from there.
func BeatStream(d Document, p HapticParams) (*playback.Stream, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	events := make([]playback.Event, 0, len(d.Beats))
	for _, b := range d.Beats {
		offset, err := playback.OffsetFromSeconds(b)
		if err != nil {
			return nil, fmt.Errorf("beat at %v: %w", b, err)
		}
		events = append(events, playback.Event{Offset: offset, Value: playback.Value(p.BeatDuty)})
	}
	return playback.NewPulseStream("beats", p.BeatHold, events)
}

// WordStream builds the lyric highlight track. Each event carries the index
// of the word whose highlight turn has come.
func WordStream(words []transcript.Word) (*playback.Stream, error) {
	events := make([]playback.Event, 0, len(words))
	for i, w := range words {
		offset, err := playback.OffsetFromSeconds(w.Start)
		if err != nil {
			return nil, fmt.Errorf("word %d %q: %w", i, w.Text, err)
		}
		events = append(events, playback.Event{Offset: offset, Value: playback.Value(i)})
	}
	return playback.NewPulseStream("words", 0, events)
}

// pitchRange finds the voiced pitch extent. voiced is false when the track
// has no voiced frames, or when all voiced frames share one pitch and a
// linear map would divide by zero.
func pitchRange(samples []Sample) (lo, hi float64, voiced bool) {
	for _, s := range samples {
		if s.Pitch <= 0 {
			continue
		}
		if !voiced {
			lo, hi = s.Pitch, s.Pitch
			voiced = true
			continue
		}
		if s.Pitch < lo {
			lo = s.Pitch
		}
		if s.Pitch > hi {
			hi = s.Pitch
		}
	}
	if voiced && hi == lo {
		voiced = false
	}
	return lo, hi, voiced
}

func mapPitch(pitch, lo, hi, minDuty, maxDuty float64) float64 {
	norm := (pitch - lo) / (hi - lo)
	if norm < 0 {
		norm = 0
	}
	if norm > 1 {
		norm = 1
	}
	return minDuty + norm*(maxDuty-minDuty)
}
