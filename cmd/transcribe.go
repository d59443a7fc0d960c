// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pitchmidi/internal/config"
	applog "pitchmidi/internal/log"
	"pitchmidi/internal/midi"
	"pitchmidi/internal/pitch"
	"pitchmidi/internal/report"
	"pitchmidi/internal/segment"
	"pitchmidi/internal/transport"
	"pitchmidi/internal/watch"
)

type transcribeOptions struct {
	configPath string
	outDir     string
	writeJSON  bool
	publish    bool
	watch      bool
	verbose    bool

	threshold   float64
	minHz       float64
	maxHz       float64
	split       float64
	minDuration float64
	grace       float64
	tempo       float64
	velocity    int
}

// Result describes one transcribed input file.
type Result struct {
	Source   string
	MidiPath string
	JSONPath string // Empty unless a JSON export was requested
	Export   *report.Export
}

func newTranscribeCommand() *cobra.Command {
	opts := &transcribeOptions{}

	c := &cobra.Command{
		Use:   "transcribe [files...]",
		Short: "Convert pitch tracks (.json or .csv) into MIDI files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(c)
			if err != nil {
				return err
			}
			return runTranscribe(c, cfg, opts, args)
		},
	}

	f := c.Flags()
	f.StringVar(&opts.configPath, "config", "", "Path to a YAML config file (default: search pitchmidi.yaml, config.yaml)")
	f.StringVarP(&opts.outDir, "out-dir", "o", "", "Directory for output files (default: next to each input)")
	f.BoolVar(&opts.writeJSON, "json", false, "Also write a JSON export with frame decisions, notes and stats")
	f.BoolVar(&opts.publish, "publish", false, "Serve results to WebSocket clients until interrupted")
	f.BoolVarP(&opts.watch, "watch", "w", false, "Transcribe again whenever an input file changes, until interrupted")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Show debug output")

	f.Float64Var(&opts.threshold, "threshold", config.DefaultConfidenceThreshold, "Confidence a frame must exceed to count as voiced")
	f.Float64Var(&opts.minHz, "min-hz", config.DefaultMinHz, "Lowest admissible pitch in Hz")
	f.Float64Var(&opts.maxHz, "max-hz", config.DefaultMaxHz, "Highest admissible pitch in Hz")
	f.Float64Var(&opts.split, "split", config.DefaultSplitSemitoneThreshold, "Pitch jump in semitones that starts a new note")
	f.Float64Var(&opts.minDuration, "min-duration", config.DefaultMinNoteDuration, "Shortest note kept, in seconds")
	f.Float64Var(&opts.grace, "grace", config.DefaultUnvoicedGracePeriod, "Silence tolerated inside a note, in seconds")
	f.Float64Var(&opts.tempo, "tempo", config.DefaultTempoBPM, "Tempo written to the MIDI file, in BPM")
	f.IntVar(&opts.velocity, "velocity", config.DefaultVelocity, "Note-on velocity (0-127)")

	return c
}

// loadConfig reads the config file and lets explicitly set flags win over it.
func (o *transcribeOptions) loadConfig(c *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}

	f := c.Flags()
	if f.Changed("threshold") {
		cfg.Voicing.ConfidenceThreshold = o.threshold
	}
	if f.Changed("min-hz") {
		cfg.Voicing.MinHz = o.minHz
	}
	if f.Changed("max-hz") {
		cfg.Voicing.MaxHz = o.maxHz
	}
	if f.Changed("split") {
		cfg.Segmentation.SplitSemitoneThreshold = o.split
	}
	if f.Changed("min-duration") {
		cfg.Segmentation.MinNoteDuration = o.minDuration
	}
	if f.Changed("grace") {
		cfg.Segmentation.UnvoicedGracePeriod = o.grace
	}
	if f.Changed("tempo") {
		cfg.Midi.TempoBPM = o.tempo
	}
	if f.Changed("velocity") {
		cfg.Midi.Velocity = o.velocity
	}
	if o.publish {
		cfg.Transport.WebSocketEnabled = true
	}
	if o.verbose {
		cfg.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := applog.Configure(cfg.LogLevel, cfg.Debug); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runTranscribe(c *cobra.Command, cfg *config.Config, opts *transcribeOptions, inputs []string) error {
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.outDir != "" {
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	targets, err := outputPaths(inputs, opts.outDir)
	if err != nil {
		return err
	}

	results := make([]*Result, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := TranscribeFile(in, targets[i], cfg, opts.writeJSON)
			if err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	tr := newTransport(cfg)
	defer func() {
		if err := tr.Close(); err != nil {
			applog.Warnf("transcribe: Error closing transport: %v", err)
		}
	}()

	out := c.OutOrStdout()
	for _, res := range results {
		emit(out, tr, res)
	}

	if cfg.Transport.WebSocketEnabled {
		fmt.Fprintf(out, "Serving results on ws://%s/ws, press Ctrl+C to stop\n", cfg.Transport.WebSocketAddress)
	}
	if opts.watch {
		return watchInputs(ctx, out, tr, cfg, opts.writeJSON, inputs, targets)
	}
	if cfg.Transport.WebSocketEnabled {
		<-ctx.Done()
	}
	return nil
}

// emit reports a result and publishes its export.
func emit(out io.Writer, tr transport.Transport, res *Result) {
	fmt.Fprintf(out, "%s: %d notes -> %s\n", res.Source, res.Export.Stats.Notes, res.MidiPath)
	if res.JSONPath != "" {
		fmt.Fprintf(out, "%s: export -> %s\n", res.Source, res.JSONPath)
	}
	if err := tr.Send(res.Export); err != nil {
		applog.Warnf("transcribe: Failed to publish %s: %v", res.Source, err)
	}
}

// watchInputs re-transcribes inputs as they change until ctx is done. A
// failed run is logged and the previous output is left in place.
func watchInputs(ctx context.Context, out io.Writer, tr transport.Transport, cfg *config.Config, writeJSON bool, inputs, targets []string) error {
	w, err := watch.New(inputs, watch.DefaultDebounce)
	if err != nil {
		return err
	}

	byPath := make(map[string]int, len(inputs))
	for i, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return err
		}
		byPath[abs] = i
	}

	fmt.Fprintf(out, "Watching %d file(s), press Ctrl+C to stop\n", len(inputs))
	return w.Run(ctx, func(path string) {
		i, ok := byPath[path]
		if !ok {
			return
		}
		res, err := TranscribeFile(inputs[i], targets[i], cfg, writeJSON)
		if err != nil {
			applog.Errorf("transcribe: %s: %v", inputs[i], err)
			return
		}
		emit(out, tr, res)
	})
}

// newTransport picks where results are published. Tests replace it.
var newTransport = func(cfg *config.Config) transport.Transport {
	if cfg.Transport.WebSocketEnabled {
		ws := transport.NewWebSocketTransport()
		ws.ListenAndServe(cfg.Transport.WebSocketAddress)
		return ws
	}
	return transport.NewLoggingTransport()
}

// outputPaths maps each input to the MIDI path it will be written to.
// Two inputs that would write the same file are rejected up front.
func outputPaths(inputs []string, outDir string) ([]string, error) {
	paths := make([]string, len(inputs))
	seen := make(map[string]string, len(inputs))
	for i, in := range inputs {
		base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in)) + ".mid"
		dir := outDir
		if dir == "" {
			dir = filepath.Dir(in)
		}
		p := filepath.Join(dir, base)
		if prev, ok := seen[p]; ok {
			return nil, fmt.Errorf("%s and %s would both write %s", prev, in, p)
		}
		seen[p] = in
		paths[i] = p
	}
	return paths, nil
}

// exportSuffix keeps the export from overwriting a .json input in the same
// directory.
const exportSuffix = ".notes.json"

// TranscribeFile runs one pitch track through voicing, segmentation and
// encoding, and writes the MIDI file to midiPath. With writeJSON the export
// is written alongside it as <name>.notes.json.
func TranscribeFile(input, midiPath string, cfg *config.Config, writeJSON bool) (*Result, error) {
	series, err := pitch.Load(input)
	if err != nil {
		return nil, err
	}
	frames, err := series.Frames()
	if err != nil {
		return nil, err
	}

	band := cfg.Band()
	params := cfg.SegmentParams()
	voiced := band.Classify(frames)
	notes, err := segment.Segment(frames, voiced, params)
	if err != nil {
		return nil, err
	}
	applog.Debugf("transcribe: %s: %d frames, %d notes", input, len(frames), len(notes))

	data, err := midi.Encode(notes, cfg.MidiOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to encode MIDI: %w", err)
	}
	if err := os.WriteFile(midiPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write MIDI file: %w", err)
	}

	settings := report.Settings{
		Voicing:      band,
		Segmentation: params,
		TempoBPM:     cfg.Midi.TempoBPM,
		Velocity:     cfg.Midi.Velocity,
	}
	export, err := report.New(input, settings, frames, voiced, notes)
	if err != nil {
		return nil, err
	}

	res := &Result{Source: input, MidiPath: midiPath, Export: export}
	if writeJSON {
		res.JSONPath = strings.TrimSuffix(midiPath, filepath.Ext(midiPath)) + exportSuffix
		if err := writeExport(res.JSONPath, export); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func writeExport(path string, export *report.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export: %w", err)
	}
	if err := export.WriteJSON(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write export: %w", err)
	}
	return f.Close()
}
