package leadsheet

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2/smf"
)

// noteBoundary is one side of a note, collected before pairing.
type noteBoundary struct {
	tick    int64
	key     uint8
	vel     uint8
	start   bool
	dropped bool
}

// ExtractMelody isolates one channel's note stream from a parsed SMF and
// pairs note starts with note ends into a MelodyTrack. The channel is the
// 1-16 numbering printed on hardware; 0 picks the default, channel 1.
//
// Notes land across all tracks. A note on with velocity zero counts as a
// note off. A note restarted while still sounding forces the prior note
// closed at the new onset. Zero length notes are dropped as extraction
// noise. Time and key signature metas are collected along the way because
// measure partitioning follows the melody file.
//
// A channel that yields no notes at all is a hard error: there is nothing
// to build a lead sheet from.
func ExtractMelody(s *smf.SMF, channel int) (*MelodyTrack, error) {
	if channel == 0 {
		channel = 1
	}
	if channel < 1 || channel > 16 {
		return nil, fmt.Errorf("melody channel %d out of range 1-16", channel)
	}

	clock, err := ClockFor(s)
	if err != nil {
		return nil, fmt.Errorf("melody file: %w", err)
	}

	track := &MelodyTrack{PPQ: clock.PPQ(), Clock: clock, Channel: uint8(channel)}
	wire := uint8(channel - 1)

	var bounds []noteBoundary
	var totalTicks int64
	keySeen := false

	for _, events := range s.Tracks {
		var absTicks int64
		// Unmatched starts at the current tick, for catching a note on
		// immediately followed by its note off.
		pending := map[uint8]int{}
		pendingTick := int64(-1)

		for _, ev := range events {
			absTicks += int64(ev.Delta)
			if absTicks > totalTicks {
				totalTicks = absTicks
			}
			if absTicks != pendingTick {
				pending = map[uint8]int{}
				pendingTick = absTicks
			}

			var ch, key, vel uint8
			var num, denom, cpt, dsqpq uint8
			switch {
			case ev.Message.GetNoteStart(&ch, &key, &vel):
				if ch != wire {
					continue
				}
				pending[key] = len(bounds)
				bounds = append(bounds, noteBoundary{tick: absTicks, key: key, vel: vel, start: true})

			case ev.Message.GetNoteEnd(&ch, &key):
				if ch != wire {
					continue
				}
				if i, ok := pending[key]; ok {
					bounds[i].dropped = true
					delete(pending, key)
					track.warnf(absTicks, "zero length note %d dropped", key)
					continue
				}
				bounds = append(bounds, noteBoundary{tick: absTicks, key: key})

			case ev.Message.GetMetaTimeSig(&num, &denom, &cpt, &dsqpq):
				track.Signatures = append(track.Signatures, SignatureChange{
					Tick: absTicks,
					Sig:  TimeSignature{Numerator: num, Denominator: denom},
				})

			default:
				// Key signature meta: FF 59 02 sf mi. The first one declares
				// the score's key; a lead sheet carries a single key context.
				msg := ev.Message
				if !keySeen && len(msg) >= 5 && msg[0] == 0xFF && msg[1] == 0x59 && msg[2] == 0x02 {
					track.Key = KeySignature{Fifths: int8(msg[3]), Minor: msg[4] == 1}
					keySeen = true
				}
			}
		}
	}

	kept := bounds[:0]
	for _, b := range bounds {
		if !b.dropped {
			kept = append(kept, b)
		}
	}
	bounds = kept

	// Note ends sort before note starts at the same tick, so adjacent notes
	// pair up instead of tripping the restart rule.
	sort.SliceStable(bounds, func(i, j int) bool {
		if bounds[i].tick != bounds[j].tick {
			return bounds[i].tick < bounds[j].tick
		}
		return !bounds[i].start && bounds[j].start
	})

	var notes []NoteEvent
	active := map[uint8]NoteEvent{}

	for _, b := range bounds {
		if b.start {
			if prior, ok := active[b.key]; ok {
				track.warnf(b.tick, "note %d restarted while sounding, closing the prior note", b.key)
				if b.tick > prior.StartTick {
					prior.EndTick = b.tick
					notes = append(notes, prior)
				}
			}
			active[b.key] = NoteEvent{StartTick: b.tick, Key: b.key, Velocity: b.vel}
			continue
		}

		prior, ok := active[b.key]
		if !ok {
			track.warnf(b.tick, "note off without a matching note on: key %d", b.key)
			continue
		}
		delete(active, b.key)
		if b.tick <= prior.StartTick {
			track.warnf(b.tick, "zero length note %d dropped", b.key)
			continue
		}
		prior.EndTick = b.tick
		notes = append(notes, prior)
	}

	// Anything still sounding is closed at the end of the file.
	if len(active) > 0 {
		keys := make([]uint8, 0, len(active))
		for k := range active {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, k := range keys {
			n := active[k]
			track.warnf(n.StartTick, "missing note off for key %d, closing at end of file", k)
			if totalTicks > n.StartTick {
				n.EndTick = totalTicks
				notes = append(notes, n)
			}
		}
	}

	if len(notes) == 0 {
		return nil, &NoNotesFoundError{Channel: uint8(channel)}
	}

	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].StartTick != notes[j].StartTick {
			return notes[i].StartTick < notes[j].StartTick
		}
		return notes[i].Key < notes[j].Key
	})
	track.Notes = notes

	sort.SliceStable(track.Signatures, func(i, j int) bool {
		return track.Signatures[i].Tick < track.Signatures[j].Tick
	})
	// The last signature at any given tick wins.
	var sigs []SignatureChange
	for _, sc := range track.Signatures {
		if n := len(sigs); n > 0 && sigs[n-1].Tick == sc.Tick {
			sigs[n-1] = sc
			continue
		}
		sigs = append(sigs, sc)
	}
	track.Signatures = sigs

	return track, nil
}

func (t *MelodyTrack) warnf(tick int64, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logrus.Warnf("melody extraction: tick %d: %s", tick, msg)
	t.Warnings = append(t.Warnings, Warning{Tick: tick, Message: msg})
}
