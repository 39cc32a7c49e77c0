// Package leadsheet reconstructs a lead sheet — melody plus chord symbols —
// from two standard MIDI files: an XF file carrying chord meta events and a
// performance file carrying the melody.
package leadsheet

import (
	"fmt"

	"github.com/ito55/smf-leadsheet-builder/pkg/leadsheet/xf"
)

// ChordEvent is one continuous span during which one chord symbol sounds.
// A file's chord sequence is sorted by StartTick and non-overlapping;
// consecutive chords may touch but never intersect.
type ChordEvent struct {
	StartTick int64
	EndTick   int64
	Chord     xf.Chord
	Label     string  // lead sheet symbol, e.g. "C", "Am7", "G7/B"
	Seconds   float64 // onset in wall-clock seconds per the chord file's tempo map
}

// NoteEvent is one melody note with tick-accurate boundaries.
type NoteEvent struct {
	StartTick int64
	EndTick   int64
	Key       uint8 // MIDI note number (0-127)
	Velocity  uint8
}

// MergedNote is a melody note annotated with the chord labels active during
// its span. Chords holds the distinct labels whose region intersects
// [StartTick, EndTick), ordered by chord onset; it is empty when no chord
// covers the note. The tie flags are set when the score builder splits a
// note at a measure boundary.
type MergedNote struct {
	NoteEvent
	Chords   []string
	TieStart bool // note continues into the next measure
	TieStop  bool // note continues from the previous measure
}

// TimeSignature is a bar meter, e.g. 4/4 or 6/8.
type TimeSignature struct {
	Numerator   uint8
	Denominator uint8
}

// String renders the signature as "num/denom".
func (ts TimeSignature) String() string {
	return fmt.Sprintf("%d/%d", ts.Numerator, ts.Denominator)
}

// TicksPerBar returns the bar length in ticks at the given resolution.
func (ts TimeSignature) TicksPerBar(ppq uint16) int64 {
	return int64(ppq) * 4 * int64(ts.Numerator) / int64(ts.Denominator)
}

// SignatureChange is a time signature taking effect at a tick.
type SignatureChange struct {
	Tick int64
	Sig  TimeSignature
}

// KeySignature is the declared key, decoded from the key signature meta.
type KeySignature struct {
	Fifths int8 // -7 (7 flats) through +7 (7 sharps)
	Minor  bool
}

// Measure is one bar of the score. Measures partition the melody's tick
// range with no gaps and no overlap; notes are clipped to the bar.
type Measure struct {
	Index     int // 0-based
	Sig       TimeSignature
	StartTick int64
	EndTick   int64
	Notes     []MergedNote
}

// Score is the abstract lead sheet handed to a document writer. It is built
// once by BuildScore and never mutated afterwards.
type Score struct {
	Title    string
	PPQ      uint16 // melody file resolution; all score ticks use it
	Key      KeySignature
	Tempo    float64 // BPM at the start of the melody file
	Measures []Measure
	Chords   []ChordEvent // chord timeline rescaled to PPQ, for symbol placement
}

// Warning is a recoverable extraction problem, reported alongside the score.
type Warning struct {
	Tick    int64
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("tick %d: %s", w.Tick, w.Message)
}

// ChordTrack is the chord extraction result for one XF file.
type ChordTrack struct {
	Events   []ChordEvent
	PPQ      uint16
	Clock    *TickClock
	Warnings []Warning
}

// MelodyTrack is the melody extraction result for one performance file.
// Time and key signatures ride along because the score builder partitions
// measures from the melody file's meta events.
type MelodyTrack struct {
	Notes      []NoteEvent
	PPQ        uint16
	Clock      *TickClock
	Channel    uint8 // configured channel, 1-16
	Signatures []SignatureChange
	Key        KeySignature
	Warnings   []Warning
}

// Options configures a build run.
type Options struct {
	Channel int    // melody channel 1-16; 0 means the default, channel 1
	Title   string // score title; defaults to the melody filename stem
}
