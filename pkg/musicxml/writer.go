// Package musicxml renders a lead sheet score as an uncompressed MusicXML
// score-partwise document, readable by MuseScore, Finale and friends.
package musicxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ito55/smf-leadsheet-builder/pkg/leadsheet"
)

const doctype = `<!DOCTYPE score-partwise PUBLIC "-//Recordare//DTD MusicXML 3.1 Partwise//EN" "http://www.musicxml.org/dtds/partwise.dtd">`

// xmlWriter emits indented XML with a sticky error, so document assembly
// reads top to bottom without error plumbing at every line.
type xmlWriter struct {
	w     io.Writer
	level int
	err   error
}

func (wr *xmlWriter) printf(format string, args ...interface{}) {
	if wr.err != nil {
		return
	}
	_, wr.err = fmt.Fprintf(wr.w, "%s%s\n", strings.Repeat("  ", wr.level), fmt.Sprintf(format, args...))
}

// tag opens an element and returns the matching closer, meant for
// defer wr.tag("note")() or a named closeX() call mid-function.
func (wr *xmlWriter) tag(name string, attrs ...interface{}) func() {
	wr.printf("<%s>", withAttrs(name, attrs))
	wr.level++
	return func() {
		wr.level--
		wr.printf("</%s>", name)
	}
}

func (wr *xmlWriter) emptyTag(name string, attrs ...interface{}) {
	wr.printf("<%s/>", withAttrs(name, attrs))
}

func (wr *xmlWriter) contentTag(name string, content interface{}) {
	if s, ok := content.(string); ok {
		content = escape(s)
	}
	wr.printf("<%s>%v</%s>", name, content, name)
}

func withAttrs(name string, attrs []interface{}) string {
	tag := name
	for i := 0; i+1 < len(attrs); i += 2 {
		tag = fmt.Sprintf(`%s %v="%s"`, tag, attrs[i], escape(fmt.Sprint(attrs[i+1])))
	}
	return tag
}

func escape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

// Write renders the score to w. Tick durations carry over unchanged, with
// divisions set to the score's pulses per quarter note.
func Write(w io.Writer, score *leadsheet.Score) error {
	wr := &xmlWriter{w: w}
	wr.printf("%s", strings.TrimSuffix(xml.Header, "\n"))
	wr.printf("%s", doctype)

	closeScore := wr.tag("score-partwise", "version", "3.1")
	if score.Title != "" {
		closeWork := wr.tag("work")
		wr.contentTag("work-title", score.Title)
		closeWork()
	}
	writeIdent(wr)

	closeList := wr.tag("part-list")
	closePart := wr.tag("score-part", "id", "P1")
	wr.contentTag("part-name", "Melody")
	closePart()
	closeList()

	writePart(wr, score)
	closeScore()
	return wr.err
}

// WriteFile renders the score to a file, creating or truncating it.
func WriteFile(path string, score *leadsheet.Score) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, score); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeIdent(wr *xmlWriter) {
	defer wr.tag("identification")()
	defer wr.tag("encoding")()
	wr.contentTag("software", "leadsheet")
	wr.contentTag("encoding-date", time.Now().Format("2006-01-02"))
}

func writePart(wr *xmlWriter, score *leadsheet.Score) {
	defer wr.tag("part", "id", "P1")()

	ci := 0 // next chord symbol to place, monotonic across measures
	var prevSig leadsheet.TimeSignature
	for _, m := range score.Measures {
		writeMeasure(wr, score, m, &ci, m.Sig != prevSig)
		prevSig = m.Sig
	}
}

func writeMeasure(wr *xmlWriter, score *leadsheet.Score, m leadsheet.Measure, ci *int, sigChanged bool) {
	defer wr.tag("measure", "number", m.Index+1)()

	if m.Index == 0 {
		closeAttr := wr.tag("attributes")
		wr.contentTag("divisions", score.PPQ)
		closeKey := wr.tag("key")
		wr.contentTag("fifths", score.Key.Fifths)
		mode := "major"
		if score.Key.Minor {
			mode = "minor"
		}
		wr.contentTag("mode", mode)
		closeKey()
		writeTime(wr, m.Sig)
		closeClef := wr.tag("clef")
		wr.contentTag("sign", "G")
		wr.contentTag("line", 2)
		closeClef()
		closeAttr()
		wr.emptyTag("sound", "tempo", score.Tempo)
	} else if sigChanged {
		closeAttr := wr.tag("attributes")
		writeTime(wr, m.Sig)
		closeAttr()
	}

	pos := m.StartTick
	prevStart, prevEnd := int64(-1), int64(-1)
	for _, n := range m.Notes {
		if n.StartTick > pos {
			writePendingHarmonies(wr, score, ci, pos, n.StartTick)
			writeRest(wr, score.PPQ, n.StartTick-pos, false)
			pos = n.StartTick
		}
		writePendingHarmonies(wr, score, ci, pos, n.EndTick)

		// A second note over the exact same span stacks on the previous one.
		if n.StartTick == prevStart && n.EndTick == prevEnd {
			writeNote(wr, score, n, true)
			continue
		}

		if n.StartTick < pos {
			// Overlapping voice: step back to its onset, then return to
			// the high-water mark so rests stay truthful.
			closeBackup := wr.tag("backup")
			wr.contentTag("duration", pos-n.StartTick)
			closeBackup()
			writeNote(wr, score, n, false)
			if n.EndTick < pos {
				closeForward := wr.tag("forward")
				wr.contentTag("duration", pos-n.EndTick)
				closeForward()
			} else {
				pos = n.EndTick
			}
		} else {
			writeNote(wr, score, n, false)
			pos = n.EndTick
		}
		prevStart, prevEnd = n.StartTick, n.EndTick
	}

	if pos < m.EndTick {
		writePendingHarmonies(wr, score, ci, pos, m.EndTick)
		writeRest(wr, score.PPQ, m.EndTick-pos, pos == m.StartTick)
	}
}

func writeTime(wr *xmlWriter, sig leadsheet.TimeSignature) {
	defer wr.tag("time")()
	wr.contentTag("beats", sig.Numerator)
	wr.contentTag("beat-type", sig.Denominator)
}

// writePendingHarmonies emits every chord symbol starting before limit that
// has not been placed yet. A symbol not landing exactly on the current
// position carries an offset in divisions.
func writePendingHarmonies(wr *xmlWriter, score *leadsheet.Score, ci *int, pos, limit int64) {
	for *ci < len(score.Chords) && score.Chords[*ci].StartTick < limit {
		writeHarmony(wr, score.Chords[*ci], score.Chords[*ci].StartTick-pos)
		*ci++
	}
}

func writeHarmony(wr *xmlWriter, ev leadsheet.ChordEvent, offset int64) {
	defer wr.tag("harmony")()

	closeRoot := wr.tag("root")
	if ev.Chord.Root.Step == "" {
		// Undecoded root: hide the placeholder letter, the kind text shows "?".
		wr.printf(`<root-step text="">C</root-step>`)
	} else {
		wr.contentTag("root-step", ev.Chord.Root.Step)
		if ev.Chord.Root.Alter != 0 {
			wr.contentTag("root-alter", ev.Chord.Root.Alter)
		}
	}
	closeRoot()

	kind := ev.Chord.Quality.Kind
	if kind == "" {
		kind = "other"
	}
	wr.printf(`<kind text="%s">%s</kind>`, escape(ev.Chord.Quality.Suffix), kind)

	if ev.Chord.Bass != nil {
		closeBass := wr.tag("bass")
		wr.contentTag("bass-step", ev.Chord.Bass.Step)
		if ev.Chord.Bass.Alter != 0 {
			wr.contentTag("bass-alter", ev.Chord.Bass.Alter)
		}
		closeBass()
	}

	if offset != 0 {
		wr.contentTag("offset", offset)
	}
}

func writeNote(wr *xmlWriter, score *leadsheet.Score, n leadsheet.MergedNote, stacked bool) {
	defer wr.tag("note")()

	if stacked {
		wr.emptyTag("chord")
	}
	writePitch(wr, score.Key, n.Key)
	wr.contentTag("duration", n.EndTick-n.StartTick)
	if n.TieStop {
		wr.emptyTag("tie", "type", "stop")
	}
	if n.TieStart {
		wr.emptyTag("tie", "type", "start")
	}
	wr.contentTag("voice", 1)
	name, dot := noteType(n.EndTick-n.StartTick, score.PPQ)
	wr.contentTag("type", name)
	if dot {
		wr.emptyTag("dot")
	}
	if n.TieStart || n.TieStop {
		closeNotations := wr.tag("notations")
		if n.TieStop {
			wr.emptyTag("tied", "type", "stop")
		}
		if n.TieStart {
			wr.emptyTag("tied", "type", "start")
		}
		closeNotations()
	}
}

func writeRest(wr *xmlWriter, ppq uint16, ticks int64, wholeMeasure bool) {
	defer wr.tag("note")()

	if wholeMeasure {
		wr.emptyTag("rest", "measure", "yes")
		wr.contentTag("duration", ticks)
		wr.contentTag("voice", 1)
		return
	}
	wr.emptyTag("rest")
	wr.contentTag("duration", ticks)
	wr.contentTag("voice", 1)
	name, dot := noteType(ticks, ppq)
	wr.contentTag("type", name)
	if dot {
		wr.emptyTag("dot")
	}
}

type spelling struct {
	step  string
	alter int
}

// Twelve pitch classes spelled for sharp and flat key signatures.
var (
	sharpSpellings = [12]spelling{
		{"C", 0}, {"C", 1}, {"D", 0}, {"D", 1}, {"E", 0}, {"F", 0},
		{"F", 1}, {"G", 0}, {"G", 1}, {"A", 0}, {"A", 1}, {"B", 0},
	}
	flatSpellings = [12]spelling{
		{"C", 0}, {"D", -1}, {"D", 0}, {"E", -1}, {"E", 0}, {"F", 0},
		{"G", -1}, {"G", 0}, {"A", -1}, {"A", 0}, {"B", -1}, {"B", 0},
	}
)

func writePitch(wr *xmlWriter, key leadsheet.KeySignature, midiKey uint8) {
	defer wr.tag("pitch")()

	table := &sharpSpellings
	if key.Fifths < 0 {
		table = &flatSpellings
	}
	sp := table[midiKey%12]
	wr.contentTag("step", sp.step)
	if sp.alter != 0 {
		wr.contentTag("alter", sp.alter)
	}
	wr.contentTag("octave", int(midiKey)/12-1)
}

var noteTypes = []struct {
	quarters float64
	name     string
}{
	{4, "whole"}, {2, "half"}, {1, "quarter"}, {0.5, "eighth"},
	{0.25, "16th"}, {0.125, "32nd"}, {0.0625, "64th"},
}

// noteType picks the notated duration class for a tick span. Exact matches
// map directly and a 3/2 multiple gets a dot; anything else, common in
// humanized performances, falls to the largest class that fits.
func noteType(ticks int64, ppq uint16) (string, bool) {
	q := float64(ticks) / float64(ppq)
	for _, nt := range noteTypes {
		if q == nt.quarters {
			return nt.name, false
		}
		if q == nt.quarters*1.5 {
			return nt.name, true
		}
	}
	for _, nt := range noteTypes {
		if q > nt.quarters {
			return nt.name, false
		}
	}
	return "64th", false
}
