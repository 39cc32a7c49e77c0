package musicxml

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/ito55/smf-leadsheet-builder/pkg/leadsheet"
	"github.com/ito55/smf-leadsheet-builder/pkg/leadsheet/xf"
)

var (
	cMaj = xf.Chord{Root: xf.Root{Step: "C"}, Quality: xf.Quality{Name: "Maj", Suffix: "", Kind: "major"}}
	gDom = xf.Chord{Root: xf.Root{Step: "G"}, Quality: xf.Quality{Name: "7th", Suffix: "7", Kind: "dominant"}}
)

func render(t *testing.T, score *leadsheet.Score) string {
	t.Helper()

	var buf bytes.Buffer
	if err := Write(&buf, score); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()
	wellFormed(t, out)
	return out
}

func wellFormed(t *testing.T, doc string) {
	t.Helper()

	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		if err != nil {
			t.Fatalf("output is not well formed XML: %v\n%s", err, doc)
		}
	}
}

func fourFour() leadsheet.TimeSignature {
	return leadsheet.TimeSignature{Numerator: 4, Denominator: 4}
}

func TestWriteDocumentShape(t *testing.T) {
	score := &leadsheet.Score{
		Title: "Demo",
		PPQ:   480,
		Tempo: 120,
		Key:   leadsheet.KeySignature{Fifths: 2},
		Measures: []leadsheet.Measure{{
			Index: 0, Sig: fourFour(), StartTick: 0, EndTick: 1920,
			Notes: []leadsheet.MergedNote{{
				NoteEvent: leadsheet.NoteEvent{StartTick: 0, EndTick: 480, Key: 60, Velocity: 100},
				Chords:    []string{"C"},
			}},
		}},
		Chords: []leadsheet.ChordEvent{
			{StartTick: 0, EndTick: 1920, Chord: cMaj, Label: "C"},
		},
	}

	out := render(t, score)

	for _, want := range []string{
		`<!DOCTYPE score-partwise`,
		`<score-partwise version="3.1">`,
		`<work-title>Demo</work-title>`,
		`<divisions>480</divisions>`,
		`<fifths>2</fifths>`,
		`<mode>major</mode>`,
		`<beats>4</beats>`,
		`<beat-type>4</beat-type>`,
		`<sound tempo="120"/>`,
		`<root-step>C</root-step>`,
		`<kind text="">major</kind>`,
		`<step>C</step>`,
		`<octave>4</octave>`,
		`<duration>480</duration>`,
		`<type>quarter</type>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s\n%s", want, out)
		}
	}
}

func TestWriteTiedFragments(t *testing.T) {
	// A half note split across the barline: tie start, then tie stop.
	score := &leadsheet.Score{
		PPQ: 480, Tempo: 120,
		Measures: []leadsheet.Measure{
			{
				Index: 0, Sig: fourFour(), StartTick: 0, EndTick: 1920,
				Notes: []leadsheet.MergedNote{{
					NoteEvent: leadsheet.NoteEvent{StartTick: 1440, EndTick: 1920, Key: 67, Velocity: 100},
					TieStart:  true,
				}},
			},
			{
				Index: 1, Sig: fourFour(), StartTick: 1920, EndTick: 3840,
				Notes: []leadsheet.MergedNote{{
					NoteEvent: leadsheet.NoteEvent{StartTick: 1920, EndTick: 2400, Key: 67, Velocity: 100},
					TieStop:   true,
				}},
			},
		},
	}

	out := render(t, score)

	for _, want := range []string{
		`<tie type="start"/>`,
		`<tie type="stop"/>`,
		`<tied type="start"/>`,
		`<tied type="stop"/>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s\n%s", want, out)
		}
	}
}

func TestWriteRests(t *testing.T) {
	// One quarter note, then silence to the end of the bar, then an empty
	// measure rendered as a whole-measure rest.
	score := &leadsheet.Score{
		PPQ: 480, Tempo: 120,
		Measures: []leadsheet.Measure{
			{
				Index: 0, Sig: fourFour(), StartTick: 0, EndTick: 1920,
				Notes: []leadsheet.MergedNote{{
					NoteEvent: leadsheet.NoteEvent{StartTick: 0, EndTick: 480, Key: 60, Velocity: 100},
				}},
			},
			{Index: 1, Sig: fourFour(), StartTick: 1920, EndTick: 3840},
		},
	}

	out := render(t, score)

	if !strings.Contains(out, `<rest/>`) {
		t.Errorf("output missing the gap rest\n%s", out)
	}
	if !strings.Contains(out, `<duration>1440</duration>`) {
		t.Errorf("output missing the 1440-tick gap duration\n%s", out)
	}
	if !strings.Contains(out, `<rest measure="yes"/>`) {
		t.Errorf("output missing the whole-measure rest\n%s", out)
	}
}

func TestWriteHarmonyOffset(t *testing.T) {
	// Chord change halfway through a whole note: the second symbol rides on
	// an offset instead of splitting the note.
	score := &leadsheet.Score{
		PPQ: 480, Tempo: 120,
		Measures: []leadsheet.Measure{{
			Index: 0, Sig: fourFour(), StartTick: 0, EndTick: 1920,
			Notes: []leadsheet.MergedNote{{
				NoteEvent: leadsheet.NoteEvent{StartTick: 0, EndTick: 1920, Key: 60, Velocity: 100},
				Chords:    []string{"C", "G7"},
			}},
		}},
		Chords: []leadsheet.ChordEvent{
			{StartTick: 0, EndTick: 960, Chord: cMaj, Label: "C"},
			{StartTick: 960, EndTick: 1920, Chord: gDom, Label: "G7"},
		},
	}

	out := render(t, score)

	if !strings.Contains(out, `<kind text="7">dominant</kind>`) {
		t.Errorf("output missing the dominant kind\n%s", out)
	}
	if !strings.Contains(out, `<offset>960</offset>`) {
		t.Errorf("output missing the mid-note harmony offset\n%s", out)
	}
	if got := strings.Count(out, "<harmony>"); got != 2 {
		t.Errorf("harmony count = %d, want 2\n%s", got, out)
	}
}

func TestWriteSlashChord(t *testing.T) {
	gOverB := xf.Chord{
		Root:    xf.Root{Step: "G"},
		Quality: xf.Quality{Name: "Maj", Suffix: "", Kind: "major"},
		Bass:    &xf.Root{Step: "B"},
	}
	score := &leadsheet.Score{
		PPQ: 480, Tempo: 120,
		Measures: []leadsheet.Measure{{
			Index: 0, Sig: fourFour(), StartTick: 0, EndTick: 1920,
			Notes: []leadsheet.MergedNote{{
				NoteEvent: leadsheet.NoteEvent{StartTick: 0, EndTick: 1920, Key: 59, Velocity: 100},
				Chords:    []string{"G/B"},
			}},
		}},
		Chords: []leadsheet.ChordEvent{
			{StartTick: 0, EndTick: 1920, Chord: gOverB, Label: "G/B"},
		},
	}

	out := render(t, score)

	if !strings.Contains(out, `<bass-step>B</bass-step>`) {
		t.Errorf("output missing the slash chord bass\n%s", out)
	}
}

func TestWriteSignatureChange(t *testing.T) {
	threeFour := leadsheet.TimeSignature{Numerator: 3, Denominator: 4}
	score := &leadsheet.Score{
		PPQ: 480, Tempo: 120,
		Measures: []leadsheet.Measure{
			{Index: 0, Sig: fourFour(), StartTick: 0, EndTick: 1920},
			{Index: 1, Sig: threeFour, StartTick: 1920, EndTick: 3360},
			{Index: 2, Sig: threeFour, StartTick: 3360, EndTick: 4800},
		},
	}

	out := render(t, score)

	if got := strings.Count(out, "<beats>3</beats>"); got != 1 {
		t.Errorf("3/4 emitted %d times, want once at the change", got)
	}
	if got := strings.Count(out, "<attributes>"); got != 2 {
		t.Errorf("attributes blocks = %d, want 2 (opening and the change)", got)
	}
}

func TestWriteEscapesText(t *testing.T) {
	score := &leadsheet.Score{
		Title: "Beans & Rice <live>",
		PPQ:   480, Tempo: 120,
		Measures: []leadsheet.Measure{
			{Index: 0, Sig: fourFour(), StartTick: 0, EndTick: 1920},
		},
	}

	out := render(t, score)

	if !strings.Contains(out, "<work-title>Beans &amp; Rice &lt;live&gt;</work-title>") {
		t.Errorf("title not escaped\n%s", out)
	}
}

func TestWriteFlatKeySpelling(t *testing.T) {
	// MIDI 61 is C sharp in sharp keys and D flat in flat keys.
	base := func(fifths int8) *leadsheet.Score {
		return &leadsheet.Score{
			PPQ: 480, Tempo: 120,
			Key: leadsheet.KeySignature{Fifths: fifths},
			Measures: []leadsheet.Measure{{
				Index: 0, Sig: fourFour(), StartTick: 0, EndTick: 1920,
				Notes: []leadsheet.MergedNote{{
					NoteEvent: leadsheet.NoteEvent{StartTick: 0, EndTick: 480, Key: 61, Velocity: 100},
				}},
			}},
		}
	}

	sharp := render(t, base(1))
	if !strings.Contains(sharp, "<step>C</step>") || !strings.Contains(sharp, "<alter>1</alter>") {
		t.Errorf("sharp key spelling wrong\n%s", sharp)
	}

	flat := render(t, base(-1))
	if !strings.Contains(flat, "<step>D</step>") || !strings.Contains(flat, "<alter>-1</alter>") {
		t.Errorf("flat key spelling wrong\n%s", flat)
	}
}

func TestNoteType(t *testing.T) {
	cases := []struct {
		ticks int64
		name  string
		dot   bool
	}{
		{1920, "whole", false},
		{1440, "half", true},
		{960, "half", false},
		{720, "quarter", true},
		{480, "quarter", false},
		{240, "eighth", false},
		{120, "16th", false},
		{60, "32nd", false},
		{30, "64th", false},
		{100, "32nd", false}, // off grid: largest class that fits
	}
	for _, c := range cases {
		name, dot := noteType(c.ticks, 480)
		if name != c.name || dot != c.dot {
			t.Errorf("noteType(%d, 480) = %q dot %v, want %q dot %v", c.ticks, name, dot, c.name, c.dot)
		}
	}
}
