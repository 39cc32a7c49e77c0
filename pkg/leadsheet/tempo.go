package leadsheet

import (
	"errors"
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"
)

// defaultMicrosPerBeat is the SMF default tempo, 120 BPM.
const defaultMicrosPerBeat = 500000

// TempoChange is one tempo map point.
type TempoChange struct {
	Tick          int64
	MicrosPerBeat uint32 // microseconds per quarter note
}

// TickClock converts absolute ticks into wall-clock seconds by walking a
// file's tempo map. Each source file gets its own clock, built once and
// immutable afterwards.
type TickClock struct {
	ppq     uint16
	changes []TempoChange
}

// NewTickClock validates a tempo map and builds a clock. Tempo change ticks
// must be strictly increasing; a map that doubles back cannot be trusted for
// timing at all.
func NewTickClock(ppq uint16, changes []TempoChange) (*TickClock, error) {
	if ppq == 0 {
		return nil, errors.New("tick clock needs a non-zero PPQ")
	}
	for i := 1; i < len(changes); i++ {
		if changes[i].Tick <= changes[i-1].Tick {
			return nil, &MalformedTempoMapError{Tick: changes[i].Tick}
		}
	}
	cs := make([]TempoChange, len(changes))
	copy(cs, changes)
	return &TickClock{ppq: ppq, changes: cs}, nil
}

// PPQ returns the resolution the clock was built with.
func (c *TickClock) PPQ() uint16 {
	return c.ppq
}

// TicksToSeconds returns elapsed seconds from the file start to tick,
// accumulated segment by segment across the tempo map. Ticks before the
// first recorded change run at the SMF default of 120 BPM.
func (c *TickClock) TicksToSeconds(tick int64) float64 {
	var sec float64
	var segStart int64
	micros := uint32(defaultMicrosPerBeat)

	for _, tc := range c.changes {
		if tc.Tick >= tick {
			break
		}
		sec += float64(tc.Tick-segStart) / float64(c.ppq) * float64(micros) / 1e6
		segStart = tc.Tick
		micros = tc.MicrosPerBeat
	}

	return sec + float64(tick-segStart)/float64(c.ppq)*float64(micros)/1e6
}

// BPMAt returns the tempo in beats per minute in effect at tick.
func (c *TickClock) BPMAt(tick int64) float64 {
	micros := uint32(defaultMicrosPerBeat)
	for _, tc := range c.changes {
		if tc.Tick > tick {
			break
		}
		micros = tc.MicrosPerBeat
	}
	return 60e6 / float64(micros)
}

// TempoChanges collects tempo metas (FF 51 03 t1 t2 t3) across every track
// of a parsed SMF, in absolute tick order. Zero tempo values are skipped;
// no player can honor them either.
func TempoChanges(s *smf.SMF) []TempoChange {
	var changes []TempoChange

	for _, track := range s.Tracks {
		var absTicks int64
		for _, ev := range track {
			absTicks += int64(ev.Delta)
			msg := ev.Message
			if len(msg) >= 6 && msg[0] == 0xFF && msg[1] == 0x51 && msg[2] == 0x03 {
				micros := uint32(msg[3])<<16 | uint32(msg[4])<<8 | uint32(msg[5])
				if micros > 0 {
					changes = append(changes, TempoChange{Tick: absTicks, MicrosPerBeat: micros})
				}
			}
		}
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].Tick < changes[j].Tick
	})
	return changes
}

// ClockFor builds a TickClock from a parsed SMF's time division and tempo
// metas. SMPTE time division is rejected; everything here counts in metric
// ticks.
func ClockFor(s *smf.SMF) (*TickClock, error) {
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("unsupported SMF time format %v: need metric ticks", s.TimeFormat)
	}
	return NewTickClock(mt.Resolution(), TempoChanges(s))
}
