package leadsheet

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2/smf"
)

// ParseSMF decodes a standard MIDI file held in memory.
//
// smf.ReadFrom panics on some malformed inputs instead of returning an
// error (https://github.com/gomidi/midi/issues/20), so the panic is caught
// here and surfaced as one.
func ParseSMF(data []byte) (s *smf.SMF, err error) {
	defer func() {
		if r := recover(); r != nil {
			s = nil
			err = fmt.Errorf("malformed SMF data: %v", r)
		}
	}()

	s, err = smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reading SMF: %w", err)
	}
	return s, nil
}

// Build reconstructs a lead sheet from the raw bytes of an XF chord file
// and a melody file. The two extraction passes are independent and run
// concurrently. The returned warnings describe events that were repaired or
// dropped along the way; they never abort a build.
func Build(chordData, melodyData []byte, opts Options) (*Score, []Warning, error) {
	chordSMF, err := ParseSMF(chordData)
	if err != nil {
		return nil, nil, fmt.Errorf("chord file: %w", err)
	}
	melodySMF, err := ParseSMF(melodyData)
	if err != nil {
		return nil, nil, fmt.Errorf("melody file: %w", err)
	}

	var (
		wg        sync.WaitGroup
		chords    *ChordTrack
		chordErr  error
		melody    *MelodyTrack
		melodyErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		chords, chordErr = ExtractChords(chordSMF)
	}()
	go func() {
		defer wg.Done()
		melody, melodyErr = ExtractMelody(melodySMF, opts.Channel)
	}()
	wg.Wait()

	if chordErr != nil {
		return nil, nil, chordErr
	}
	if melodyErr != nil {
		return nil, nil, melodyErr
	}

	merged, timeline, err := MergeTimelines(chords, melody)
	if err != nil {
		return nil, nil, err
	}

	score := BuildScore(merged, melody, opts.Title)
	score.Chords = timeline

	warnings := make([]Warning, 0, len(chords.Warnings)+len(melody.Warnings))
	warnings = append(warnings, chords.Warnings...)
	warnings = append(warnings, melody.Warnings...)
	return score, warnings, nil
}

// BuildFiles is Build for files on disk. When opts.Title is empty it
// defaults to the melody file name without its extension.
func BuildFiles(chordPath, melodyPath string, opts Options) (*Score, []Warning, error) {
	chordData, err := os.ReadFile(chordPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading chord file: %w", err)
	}
	melodyData, err := os.ReadFile(melodyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading melody file: %w", err)
	}

	if opts.Title == "" {
		base := filepath.Base(melodyPath)
		opts.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return Build(chordData, melodyData, opts)
}
