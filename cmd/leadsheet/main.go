// Package main is the entry point for the leadsheet CLI
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ito55/smf-leadsheet-builder/pkg/api"
	"github.com/ito55/smf-leadsheet-builder/pkg/leadsheet"
	"github.com/ito55/smf-leadsheet-builder/pkg/musicxml"
	"github.com/ito55/smf-leadsheet-builder/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	chordFile  string
	melodyFile string
	outputFile string
	channel    int
	title      string
	serverPort int
	verbose    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "leadsheet",
	Short: "Build lead sheets from XF chord and melody MIDI files",
	Long: `leadsheet reconstructs a melody-plus-chord-symbols score from a pair of
standard MIDI files: one carrying XF chord metadata, one carrying the melody.

The two timelines are merged onto the melody's tick resolution and written
out as an uncompressed MusicXML lead sheet.

Examples:
  leadsheet build --chord-file song_xf.mid --melody-file song_melody.mid
  leadsheet build --chord-file xf.mid --melody-file mel.mid -o out.musicxml --channel 2
  leadsheet chords song_xf.mid
  leadsheet melody song_melody.mid --channel 2
  leadsheet tui
  leadsheet serve --port 8080`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a MusicXML lead sheet from a chord file and a melody file",
	Long: `Extracts the XF chord timeline from the chord file, the note stream from
the melody file, merges them onto the melody's resolution and writes a
MusicXML lead sheet.`,
	RunE: runBuild,
}

var chordsCmd = &cobra.Command{
	Use:   "chords <input.mid>",
	Short: "Dump the XF chord events found in a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runChords,
}

var melodyCmd = &cobra.Command{
	Use:   "melody <input.mid>",
	Short: "Dump the melody notes found in a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runMelody,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Build command
	buildCmd.Flags().StringVar(&chordFile, "chord-file", "", "MIDI file carrying XF chord events (required)")
	buildCmd.Flags().StringVar(&melodyFile, "melody-file", "", "MIDI file carrying the melody (required)")
	buildCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .musicxml file path")
	buildCmd.Flags().IntVar(&channel, "channel", 0, "Melody channel 1-16 (default: 1)")
	buildCmd.Flags().StringVarP(&title, "title", "t", "", "Score title (default: melody file name)")
	_ = buildCmd.MarkFlagRequired("chord-file")
	_ = buildCmd.MarkFlagRequired("melody-file")

	// Melody command
	melodyCmd.Flags().IntVar(&channel, "channel", 0, "Melody channel 1-16 (default: 1)")

	// Serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	// Add commands
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(chordsCmd)
	rootCmd.AddCommand(melodyCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func getOutputPath(input, defaultExt string) string {
	if outputFile != "" {
		return outputFile
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + defaultExt
}

func runBuild(cmd *cobra.Command, args []string) error {
	opts := leadsheet.Options{Channel: channel, Title: title}
	score, warnings, err := leadsheet.BuildFiles(chordFile, melodyFile, opts)
	if err != nil {
		return err
	}

	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	output := getOutputPath(melodyFile, ".musicxml")
	if err := musicxml.WriteFile(output, score); err != nil {
		return err
	}

	fmt.Printf("Built %s (%d measures, %d warnings)\n", output, len(score.Measures), len(warnings))
	return nil
}

func runChords(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	s, err := leadsheet.ParseSMF(data)
	if err != nil {
		return err
	}

	track, err := leadsheet.ExtractChords(s)
	if err != nil {
		return err
	}

	for _, w := range track.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	fmt.Printf("%s: PPQ %d, %d chord(s)\n", args[0], track.PPQ, len(track.Events))
	fmt.Printf("%10s %10s %10s  %s\n", "START", "END", "SECONDS", "CHORD")
	for _, ev := range track.Events {
		fmt.Printf("%10d %10d %9.3fs  %s\n", ev.StartTick, ev.EndTick, ev.Seconds, ev.Label)
	}
	return nil
}

func runMelody(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	s, err := leadsheet.ParseSMF(data)
	if err != nil {
		return err
	}

	track, err := leadsheet.ExtractMelody(s, channel)
	if err != nil {
		return err
	}

	for _, w := range track.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	fmt.Printf("%s: PPQ %d, channel %d, %d note(s)\n", args[0], track.PPQ, track.Channel, len(track.Notes))
	fmt.Printf("%10s %10s %10s  %4s %4s\n", "START", "END", "SECONDS", "KEY", "VEL")
	for _, n := range track.Notes {
		fmt.Printf("%10d %10d %9.3fs  %4d %4d\n",
			n.StartTick, n.EndTick, track.Clock.TicksToSeconds(n.StartTick), n.Key, n.Velocity)
	}
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run()
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", serverPort)
	return api.StartServer(serverPort)
}
