package leadsheet

import (
	"reflect"
	"testing"
)

func TestBuildScoreMeasureSplit(t *testing.T) {
	// 4/4 at PPQ 480: bar length 1920. A note over [3360, 4320) crosses the
	// boundary at 3840 and must split into exactly two tied fragments.
	melody := &MelodyTrack{PPQ: 480}
	notes := []MergedNote{{
		NoteEvent: NoteEvent{StartTick: 3360, EndTick: 4320, Key: 60, Velocity: 100},
		Chords:    []string{"C"},
	}}

	score := BuildScore(notes, melody, "split")

	if len(score.Measures) != 3 {
		t.Fatalf("measures = %d, want 3", len(score.Measures))
	}

	first := score.Measures[1].Notes
	second := score.Measures[2].Notes
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("fragments per measure = %d, %d, want 1 and 1", len(first), len(second))
	}

	f1, f2 := first[0], second[0]
	if f1.StartTick != 3360 || f1.EndTick != 3840 {
		t.Errorf("fragment 1 span = [%d, %d), want [3360, 3840)", f1.StartTick, f1.EndTick)
	}
	if f2.StartTick != 3840 || f2.EndTick != 4320 {
		t.Errorf("fragment 2 span = [%d, %d), want [3840, 4320)", f2.StartTick, f2.EndTick)
	}
	if !f1.TieStart || f1.TieStop {
		t.Errorf("fragment 1 ties = start %v stop %v, want start only", f1.TieStart, f1.TieStop)
	}
	if !f2.TieStop || f2.TieStart {
		t.Errorf("fragment 2 ties = start %v stop %v, want stop only", f2.TieStart, f2.TieStop)
	}
	if !reflect.DeepEqual(f1.Chords, f2.Chords) {
		t.Errorf("fragment chords differ: %v vs %v", f1.Chords, f2.Chords)
	}
	// The two spans union back to the original note.
	if f1.EndTick != f2.StartTick {
		t.Errorf("fragments do not meet: %d vs %d", f1.EndTick, f2.StartTick)
	}
}

func TestBuildScoreMultiBarNote(t *testing.T) {
	melody := &MelodyTrack{PPQ: 480}
	notes := []MergedNote{{
		NoteEvent: NoteEvent{StartTick: 1440, EndTick: 5280, Key: 67, Velocity: 100},
	}}

	score := BuildScore(notes, melody, "")

	if len(score.Measures) != 3 {
		t.Fatalf("measures = %d, want 3", len(score.Measures))
	}
	if len(score.Measures[1].Notes) != 1 || len(score.Measures[2].Notes) != 1 {
		t.Fatalf("fragments per measure = %d, %d, want 1 and 1",
			len(score.Measures[1].Notes), len(score.Measures[2].Notes))
	}

	mid := score.Measures[1].Notes[0]
	if !mid.TieStop || !mid.TieStart {
		t.Errorf("middle fragment ties = start %v stop %v, want both", mid.TieStart, mid.TieStop)
	}
	if mid.StartTick != 1920 || mid.EndTick != 3840 {
		t.Errorf("middle fragment span = [%d, %d), want the whole bar [1920, 3840)", mid.StartTick, mid.EndTick)
	}

	last := score.Measures[2].Notes[0]
	if !last.TieStop || last.TieStart {
		t.Errorf("last fragment ties = start %v stop %v, want stop only", last.TieStart, last.TieStop)
	}
}

func TestBuildScoreEmptyMeasuresPreserved(t *testing.T) {
	melody := &MelodyTrack{PPQ: 480}
	notes := []MergedNote{
		{NoteEvent: NoteEvent{StartTick: 0, EndTick: 480, Key: 60, Velocity: 100}},
		{NoteEvent: NoteEvent{StartTick: 7680, EndTick: 8160, Key: 64, Velocity: 100}},
	}

	score := BuildScore(notes, melody, "")

	if len(score.Measures) != 5 {
		t.Fatalf("measures = %d, want 5 (rests kept)", len(score.Measures))
	}
	for i := 1; i <= 3; i++ {
		if len(score.Measures[i].Notes) != 0 {
			t.Errorf("measure %d notes = %d, want 0 (rest)", i, len(score.Measures[i].Notes))
		}
	}
	// Measures must partition the range with no gaps.
	for i := 1; i < len(score.Measures); i++ {
		if score.Measures[i].StartTick != score.Measures[i-1].EndTick {
			t.Errorf("measure %d starts at %d, previous ends at %d",
				i, score.Measures[i].StartTick, score.Measures[i-1].EndTick)
		}
	}
}

func TestBuildScoreSignatureChange(t *testing.T) {
	melody := &MelodyTrack{
		PPQ: 480,
		Signatures: []SignatureChange{
			{Tick: 0, Sig: TimeSignature{Numerator: 4, Denominator: 4}},
			{Tick: 1920, Sig: TimeSignature{Numerator: 3, Denominator: 4}},
		},
	}
	notes := []MergedNote{{
		NoteEvent: NoteEvent{StartTick: 0, EndTick: 4000, Key: 60, Velocity: 100},
	}}

	score := BuildScore(notes, melody, "")

	wantBars := []struct {
		start, end int64
		sig        TimeSignature
	}{
		{0, 1920, TimeSignature{Numerator: 4, Denominator: 4}},
		{1920, 3360, TimeSignature{Numerator: 3, Denominator: 4}},
		{3360, 4800, TimeSignature{Numerator: 3, Denominator: 4}},
	}
	if len(score.Measures) != len(wantBars) {
		t.Fatalf("measures = %d, want %d", len(score.Measures), len(wantBars))
	}
	for i, want := range wantBars {
		m := score.Measures[i]
		if m.StartTick != want.start || m.EndTick != want.end || m.Sig != want.sig {
			t.Errorf("measure %d = [%d, %d) %s, want [%d, %d) %s",
				i, m.StartTick, m.EndTick, m.Sig, want.start, want.end, want.sig)
		}
	}
}

func TestBuildScoreMidBarSignatureSnaps(t *testing.T) {
	// A change landing mid-bar applies from the next bar boundary.
	melody := &MelodyTrack{
		PPQ: 480,
		Signatures: []SignatureChange{
			{Tick: 960, Sig: TimeSignature{Numerator: 3, Denominator: 4}},
		},
	}
	notes := []MergedNote{{
		NoteEvent: NoteEvent{StartTick: 0, EndTick: 2400, Key: 60, Velocity: 100},
	}}

	score := BuildScore(notes, melody, "")

	if len(score.Measures) != 2 {
		t.Fatalf("measures = %d, want 2", len(score.Measures))
	}
	if got := score.Measures[0]; got.EndTick != 1920 || got.Sig != (TimeSignature{Numerator: 4, Denominator: 4}) {
		t.Errorf("measure 0 = [%d, %d) %s, want a full 4/4 bar", got.StartTick, got.EndTick, got.Sig)
	}
	if got := score.Measures[1]; got.StartTick != 1920 || got.EndTick != 3360 || got.Sig != (TimeSignature{Numerator: 3, Denominator: 4}) {
		t.Errorf("measure 1 = [%d, %d) %s, want 3/4 from tick 1920", got.StartTick, got.EndTick, got.Sig)
	}
}

func TestBuildScoreRoundsUpToWholeMeasure(t *testing.T) {
	melody := &MelodyTrack{PPQ: 480}
	notes := []MergedNote{{
		NoteEvent: NoteEvent{StartTick: 0, EndTick: 2400, Key: 60, Velocity: 100},
	}}

	score := BuildScore(notes, melody, "")

	if len(score.Measures) != 2 {
		t.Fatalf("measures = %d, want 2", len(score.Measures))
	}
	if last := score.Measures[1]; last.EndTick != 3840 {
		t.Errorf("score end = %d, want 3840 (whole measure)", last.EndTick)
	}
}

func TestBuildScoreDefaults(t *testing.T) {
	melody := &MelodyTrack{PPQ: 480}
	notes := []MergedNote{{
		NoteEvent: NoteEvent{StartTick: 0, EndTick: 480, Key: 60, Velocity: 100},
	}}

	score := BuildScore(notes, melody, "Songbook Page One")

	if score.Title != "Songbook Page One" {
		t.Errorf("Title = %q", score.Title)
	}
	if score.Tempo != 120 {
		t.Errorf("Tempo = %v, want the 120 BPM default", score.Tempo)
	}
	if score.Key != (KeySignature{}) {
		t.Errorf("Key = %+v, want C major", score.Key)
	}
	if len(score.Measures) != 1 {
		t.Fatalf("measures = %d, want 1", len(score.Measures))
	}
	if sig := score.Measures[0].Sig; sig != (TimeSignature{Numerator: 4, Denominator: 4}) {
		t.Errorf("default signature = %s, want 4/4", sig)
	}
}
