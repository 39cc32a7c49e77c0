package leadsheet

import (
	"sort"
)

// BuildScore partitions merged notes into measures, using the melody file's
// time signatures for bar lengths (4/4 when the file declares none). The
// score runs from tick 0 to the last note's end rounded up to a whole
// measure; measures with no notes stay in as rests so the measure count
// matches the melody's real duration.
//
// A note crossing a bar boundary is split at the boundary into tied
// fragments, one per measure, each keeping the original chord labels. No
// chord logic happens here — this is pure grouping and clipping.
func BuildScore(notes []MergedNote, melody *MelodyTrack, title string) *Score {
	score := &Score{
		Title: title,
		PPQ:   melody.PPQ,
		Key:   melody.Key,
		Tempo: 120,
	}
	if melody.Clock != nil {
		score.Tempo = melody.Clock.BPMAt(0)
	}

	var lastEnd int64
	for _, n := range notes {
		if n.EndTick > lastEnd {
			lastEnd = n.EndTick
		}
	}

	score.Measures = measureSkeleton(melody.Signatures, melody.PPQ, lastEnd)

	for _, n := range notes {
		mi := sort.Search(len(score.Measures), func(i int) bool {
			return score.Measures[i].EndTick > n.StartTick
		})
		for ; mi < len(score.Measures) && score.Measures[mi].StartTick < n.EndTick; mi++ {
			m := &score.Measures[mi]
			frag := n
			frag.StartTick = max(n.StartTick, m.StartTick)
			frag.EndTick = min(n.EndTick, m.EndTick)
			frag.TieStop = n.StartTick < m.StartTick
			frag.TieStart = n.EndTick > m.EndTick
			m.Notes = append(m.Notes, frag)
		}
	}

	return score
}

// measureSkeleton lays out empty measures over [0, endTick). A signature
// change taking effect mid-bar applies from the next bar boundary; bars are
// never fractional.
func measureSkeleton(sigs []SignatureChange, ppq uint16, endTick int64) []Measure {
	if ppq == 0 {
		return nil
	}
	cur := TimeSignature{Numerator: 4, Denominator: 4}
	sigIdx := 0

	var measures []Measure
	var start int64
	for idx := 0; start < endTick; idx++ {
		for sigIdx < len(sigs) && sigs[sigIdx].Tick <= start {
			cur = sigs[sigIdx].Sig
			sigIdx++
		}
		// A broken signature must not stall the loop.
		if cur.Numerator == 0 || cur.Denominator == 0 {
			cur = TimeSignature{Numerator: 4, Denominator: 4}
		}
		length := cur.TicksPerBar(ppq)
		measures = append(measures, Measure{
			Index:     idx,
			Sig:       cur,
			StartTick: start,
			EndTick:   start + length,
		})
		start += length
	}
	return measures
}
