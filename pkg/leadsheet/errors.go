package leadsheet

import "fmt"

// MalformedTempoMapError reports tempo changes whose ticks are not strictly
// increasing. Timing cannot be trusted past that point, so the whole run
// aborts.
type MalformedTempoMapError struct {
	Tick int64 // tick of the offending tempo change
}

func (e *MalformedTempoMapError) Error() string {
	return fmt.Sprintf("malformed tempo map: tempo change at tick %d does not advance past the previous change", e.Tick)
}

// NoNotesFoundError reports a melody channel that yielded zero notes.
// A lead sheet without a melody is meaningless, so this aborts the run.
type NoNotesFoundError struct {
	Channel uint8 // configured channel, 1-16
}

func (e *NoNotesFoundError) Error() string {
	return fmt.Sprintf("no notes found on channel %d", e.Channel)
}

// IncompatibleTimeBaseError reports a pair of file resolutions whose rescale
// factor is zero or non-finite.
type IncompatibleTimeBaseError struct {
	ChordPPQ  uint16
	MelodyPPQ uint16
}

func (e *IncompatibleTimeBaseError) Error() string {
	return fmt.Sprintf("incompatible time bases: cannot rescale chord ticks (PPQ %d) onto the melody axis (PPQ %d)", e.ChordPPQ, e.MelodyPPQ)
}
