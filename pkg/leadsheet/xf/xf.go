// Package xf decodes Yamaha XF chord meta events embedded in standard MIDI files.
package xf

import (
	"fmt"
)

// XF chord meta event framing
const (
	MetaStatus       = 0xFF // meta event status byte
	MetaSeqSpecific  = 0x7F // sequencer-specific meta type
	XFManufacturerID = 0x43 // Yamaha manufacturer ID
	XFChordMarker    = 0x7B // XF chord event marker
	XFChordID        = 0x01 // XF chord data ID
	NoChordByte      = 0x7F // "no chord" sentinel for root and type bytes
)

// Root is a chord root or bass note, spelled as a letter step plus alteration.
type Root struct {
	Step  string `json:"step"`  // note letter, "C" through "B"
	Alter int    `json:"alter"` // -2 (double flat) through +2 (double sharp)
}

// String renders the root with its accidental, e.g. "C", "Bb", "F#".
func (r Root) String() string {
	switch r.Alter {
	case -2:
		return r.Step + "bb"
	case -1:
		return r.Step + "b"
	case 1:
		return r.Step + "#"
	case 2:
		return r.Step + "##"
	}
	return r.Step
}

// PitchClass returns the semitone 0-11 of the root, with C = 0.
func (r Root) PitchClass() int {
	pc := stepSemitones[r.Step] + r.Alter
	return ((pc % 12) + 12) % 12
}

var stepSemitones = map[string]int{
	"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11,
}

// Quality describes an XF chord type.
type Quality struct {
	Name   string `json:"name"`   // XF chart spelling, e.g. "Maj7", "min7(9)"
	Suffix string `json:"suffix"` // lead sheet suffix, e.g. "maj7", "m7(9)"
	Kind   string `json:"kind"`   // closest MusicXML harmony kind
}

// Chord is a decoded XF chord event.
type Chord struct {
	Root    Root    `json:"root"`
	Quality Quality `json:"quality"`
	Bass    *Root   `json:"bass,omitempty"` // set only for slash chords
	NoChord bool    `json:"noChord,omitempty"`
}

// Label renders the chord as a lead sheet symbol, e.g. "C", "Am7", "G7/B".
func (c Chord) Label() string {
	if c.NoChord {
		return "N.C."
	}
	label := c.Root.String() + c.Quality.Suffix
	if c.Bass != nil {
		label += "/" + c.Bass.String()
	}
	return label
}

// UnknownCodeError reports a chord byte outside the XF chart.
type UnknownCodeError struct {
	Field string // "root", "type" or "bass"
	Code  uint8
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("unknown XF chord %s byte 0x%02X", e.Field, e.Code)
}

// Unknown is the sentinel quality substituted for chord bytes outside the
// chart, so a chord timeline stays contiguous across undecodable events.
var Unknown = Quality{Name: "unknown", Suffix: "?", Kind: "other"}

// qualityChart maps XF chord type codes to chord qualities.
// Codes 0x00-0x22 follow the XF format specification chord chart.
var qualityChart = [0x23]Quality{
	0x00: {"Maj", "", "major"},
	0x01: {"Maj6", "6", "major-sixth"},
	0x02: {"Maj7", "maj7", "major-seventh"},
	0x03: {"Maj7(#11)", "maj7(#11)", "major-seventh"},
	0x04: {"Maj(9)", "add9", "major"},
	0x05: {"Maj7(9)", "maj7(9)", "major-ninth"},
	0x06: {"Maj6(9)", "6(9)", "major-sixth"},
	0x07: {"aug", "aug", "augmented"},
	0x08: {"min", "m", "minor"},
	0x09: {"min6", "m6", "minor-sixth"},
	0x0A: {"min7", "m7", "minor-seventh"},
	0x0B: {"min7b5", "m7b5", "half-diminished"},
	0x0C: {"min(9)", "m(9)", "minor"},
	0x0D: {"min7(9)", "m7(9)", "minor-ninth"},
	0x0E: {"min7(11)", "m7(11)", "minor-11th"},
	0x0F: {"minMaj7", "mM7", "major-minor"},
	0x10: {"minMaj7(9)", "mM7(9)", "major-minor"},
	0x11: {"dim", "dim", "diminished"},
	0x12: {"dim7", "dim7", "diminished-seventh"},
	0x13: {"7th", "7", "dominant"},
	0x14: {"7sus4", "7sus4", "suspended-fourth"},
	0x15: {"7b5", "7b5", "dominant"},
	0x16: {"7(9)", "7(9)", "dominant-ninth"},
	0x17: {"7(#11)", "7(#11)", "dominant"},
	0x18: {"7(13)", "7(13)", "dominant-13th"},
	0x19: {"7(b9)", "7(b9)", "dominant"},
	0x1A: {"7(b13)", "7(b13)", "dominant"},
	0x1B: {"7(#9)", "7(#9)", "dominant"},
	0x1C: {"Maj7aug", "maj7aug", "major-seventh"},
	0x1D: {"7aug", "7aug", "augmented-seventh"},
	0x1E: {"1+8", "1+8", "other"},
	0x1F: {"1+5", "5", "power"},
	0x20: {"sus4", "sus4", "suspended-fourth"},
	0x21: {"1+2+5", "1+2+5", "other"},
	0x22: {"cc", "cc", "other"},
}

// ChartEntry pairs an XF chord type code with its quality, for listings.
type ChartEntry struct {
	Code uint8 `json:"code"`
	Quality
}

// Chart returns the full XF chord type chart in code order.
func Chart() []ChartEntry {
	entries := make([]ChartEntry, 0, len(qualityChart))
	for code, q := range qualityChart {
		entries = append(entries, ChartEntry{Code: uint8(code), Quality: q})
	}
	return entries
}

// IsChordMeta reports whether raw meta bytes carry an XF chord event.
// The raw layout is FF 7F <len> 43 7B 01 cr ct [bn bt].
func IsChordMeta(msg []byte) bool {
	return len(msg) >= 8 &&
		msg[0] == MetaStatus &&
		msg[1] == MetaSeqSpecific &&
		msg[3] == XFManufacturerID &&
		msg[4] == XFChordMarker &&
		msg[5] == XFChordID
}

// Decode parses the raw bytes of an XF chord meta event.
//
// The chord data holds two mandatory bytes plus two optional bass bytes:
//
//	cr: root       high nibble accidental (1=bb 2=b 3=natural 4=# 5=##),
//	               low nibble letter (1=C 2=D 3=E 4=F 5=G 6=A 7=B)
//	ct: chord type 0x00-0x22 per the XF chord chart
//	bn: bass note  same encoding as cr, 0x7F when absent
//	bt: bass type  unused here
//
// A root and type of 0x7F 0x7F marks "no chord", which ends the current
// chord region without opening a new one.
//
// Bytes outside the chart return a best-effort chord with the undecodable
// parts replaced by the Unknown sentinel, along with an *UnknownCodeError.
// Callers that must keep the chord timeline contiguous can keep the sentinel
// chord and downgrade the error to a warning.
func Decode(msg []byte) (Chord, error) {
	if !IsChordMeta(msg) {
		return Chord{}, fmt.Errorf("not an XF chord meta event (% X)", msg)
	}

	cr := msg[6]
	ct := msg[7]

	if cr == NoChordByte && ct == NoChordByte {
		return Chord{NoChord: true}, nil
	}

	root, err := decodeRoot(cr, "root")
	if err != nil {
		return Chord{Quality: Unknown}, err
	}

	if int(ct) >= len(qualityChart) {
		return Chord{Root: root, Quality: Unknown}, &UnknownCodeError{Field: "type", Code: ct}
	}

	chord := Chord{Root: root, Quality: qualityChart[ct]}

	// Optional bass bytes make a slash chord when the bass differs from the root.
	if len(msg) >= 10 && msg[8] != NoChordByte {
		bass, err := decodeRoot(msg[8], "bass")
		if err != nil {
			return chord, err
		}
		if bass != root {
			chord.Bass = &bass
		}
	}

	return chord, nil
}

func decodeRoot(b uint8, field string) (Root, error) {
	letter := b & 0x0F
	accidental := b >> 4

	if letter < 1 || letter > 7 || accidental < 1 || accidental > 5 {
		return Root{}, &UnknownCodeError{Field: field, Code: b}
	}

	return Root{
		Step:  rootSteps[letter-1],
		Alter: int(accidental) - 3, // 3 = natural
	}, nil
}

var rootSteps = [7]string{"C", "D", "E", "F", "G", "A", "B"}
