package leadsheet

import (
	"math"
	"sort"
)

// MergeTimelines aligns a chord track and a melody track onto the melody's
// tick axis and labels every melody note with the chords active during its
// span. Notes are never split here; a note under a mid-note chord change
// carries all intersecting labels and the document layer decides how to
// show them. The rescaled chord timeline is returned alongside the notes so
// renderers can place chord symbols on the shared axis.
//
// Chord ticks are rescaled by melodyPPQ/chordPPQ before matching. The
// factor must be positive and finite or the two files cannot share an axis
// (IncompatibleTimeBaseError). Residual rounding error is bounded to ±1
// tick, acceptable because chord boundaries are beat-level while note
// boundaries are fine-grained.
//
// Spans are half-open, which decides the tie at a chord change landing
// exactly on a note onset: the note belongs to the chord starting there,
// never to the one ending there. Notes in a chord coverage gap keep an
// empty label list — a stale chord is never carried forward.
func MergeTimelines(chords *ChordTrack, melody *MelodyTrack) ([]MergedNote, []ChordEvent, error) {
	factor := float64(melody.PPQ) / float64(chords.PPQ)
	if factor <= 0 || math.IsInf(factor, 0) || math.IsNaN(factor) {
		return nil, nil, &IncompatibleTimeBaseError{ChordPPQ: chords.PPQ, MelodyPPQ: melody.PPQ}
	}

	scaled := make([]ChordEvent, 0, len(chords.Events))
	for _, ev := range chords.Events {
		ev.StartTick = int64(math.Round(float64(ev.StartTick) * factor))
		ev.EndTick = int64(math.Round(float64(ev.EndTick) * factor))
		if ev.StartTick >= ev.EndTick {
			continue // crushed to nothing by rounding
		}
		scaled = append(scaled, ev)
	}

	merged := make([]MergedNote, 0, len(melody.Notes))
	for _, n := range melody.Notes {
		mn := MergedNote{NoteEvent: n}

		// First chord still sounding at the note onset.
		i := sort.Search(len(scaled), func(i int) bool {
			return scaled[i].EndTick > n.StartTick
		})
		for ; i < len(scaled) && scaled[i].StartTick < n.EndTick; i++ {
			label := scaled[i].Label
			dup := false
			for _, l := range mn.Chords {
				if l == label {
					dup = true
					break
				}
			}
			if !dup {
				mn.Chords = append(mn.Chords, label)
			}
		}

		merged = append(merged, mn)
	}

	return merged, scaled, nil
}
