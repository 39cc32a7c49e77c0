package leadsheet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/ito55/smf-leadsheet-builder/pkg/leadsheet/xf"
)

// ExtractChords decodes the XF chord meta events of a parsed SMF into a
// sorted, non-overlapping ChordTrack.
//
// Chords are defined by onset only: each chord-set event opens a region and
// closes the previous one at the same tick, a "no chord" event closes the
// open region without opening a new one, and the final region runs to the
// file's total tick length. Undecodable chord bytes keep their span under a
// sentinel label so the timeline stays contiguous; they surface as warnings,
// not errors. A file with no chord events at all is also only a warning — a
// melody with no labels is still a valid, if degraded, lead sheet.
func ExtractChords(s *smf.SMF) (*ChordTrack, error) {
	clock, err := ClockFor(s)
	if err != nil {
		return nil, fmt.Errorf("chord file: %w", err)
	}

	track := &ChordTrack{PPQ: clock.PPQ(), Clock: clock}

	type rawChord struct {
		tick int64
		msg  smf.Message
	}
	var raws []rawChord
	var totalTicks int64

	for _, events := range s.Tracks {
		var absTicks int64
		for _, ev := range events {
			absTicks += int64(ev.Delta)
			if absTicks > totalTicks {
				totalTicks = absTicks
			}
			if xf.IsChordMeta(ev.Message) {
				raws = append(raws, rawChord{tick: absTicks, msg: ev.Message})
			}
		}
	}

	sort.SliceStable(raws, func(i, j int) bool {
		return raws[i].tick < raws[j].tick
	})

	var open *ChordEvent
	closeOpen := func(endTick int64) {
		if open == nil {
			return
		}
		if endTick > open.StartTick {
			open.EndTick = endTick
			track.Events = append(track.Events, *open)
		} else {
			track.warnf(open.StartTick, "chord %q replaced at the same tick, dropped", open.Label)
		}
		open = nil
	}

	for _, raw := range raws {
		chord, err := xf.Decode(raw.msg)
		if err != nil {
			var ucErr *xf.UnknownCodeError
			if !errors.As(err, &ucErr) {
				track.warnf(raw.tick, "undecodable chord meta event: %v", err)
				continue
			}
			// Keep the sentinel chord; the timeline must stay contiguous.
			track.warnf(raw.tick, "%v, using %q", err, chord.Label())
		}

		if chord.NoChord {
			closeOpen(raw.tick)
			continue
		}

		closeOpen(raw.tick)
		open = &ChordEvent{
			StartTick: raw.tick,
			Chord:     chord,
			Label:     chord.Label(),
			Seconds:   clock.TicksToSeconds(raw.tick),
		}
	}
	closeOpen(totalTicks)

	if len(track.Events) == 0 {
		track.warnf(0, "no XF chord events found; the melody will be unlabeled")
	}

	return track, nil
}

func (t *ChordTrack) warnf(tick int64, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logrus.Warnf("chord extraction: tick %d: %s", tick, msg)
	t.Warnings = append(t.Warnings, Warning{Tick: tick, Message: msg})
}
