package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/liamnightingale/OrbitSim/internal/kepler"
	"github.com/liamnightingale/OrbitSim/internal/propagation"
	"github.com/liamnightingale/OrbitSim/internal/tle"
	"github.com/liamnightingale/OrbitSim/internal/transform"
	"github.com/liamnightingale/OrbitSim/internal/writers"
	"github.com/spf13/cobra"
)

var propagateFlags struct {
	samples  int
	periods  float64
	duration float64
	workers  int
	format   string
	frame    string
	velocity bool
	output   string
}

var propagateCmd = &cobra.Command{
	Use:   "propagate [FILE]",
	Short: "Propagate every satellite in a TLE file and write position arrays",
	Long: `Propagates each satellite over a shared grid of offsets from its own
epoch. By default the grid spans two periods of the slowest satellite in
500 samples. Samples that cannot be solved are written as empty/null
values and do not affect their neighbours.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPropagate,
}

func init() {
	f := propagateCmd.Flags()
	f.IntVarP(&propagateFlags.samples, "samples", "n", 0, "samples per satellite (default from config, 500)")
	f.Float64VarP(&propagateFlags.periods, "periods", "k", 0, "timeline length in periods of the slowest satellite (default from config, 2)")
	f.Float64Var(&propagateFlags.duration, "duration", 0, "timeline length in seconds; overrides --periods")
	f.IntVar(&propagateFlags.workers, "workers", 0, "worker goroutines (default from config)")
	f.StringVarP(&propagateFlags.format, "format", "f", "csv", "output format ("+strings.Join(writers.TrackFormats(), "|")+")")
	f.StringVar(&propagateFlags.frame, "frame", "eci", "output frame (eci|ecef)")
	f.BoolVar(&propagateFlags.velocity, "velocity", false, "include velocities")
	f.StringVarP(&propagateFlags.output, "output", "o", "-", "output file, - for stdout")
}

func runPropagate(cmd *cobra.Command, args []string) error {
	pf := propagateFlags
	if !writers.HasTrackFormat(pf.format) {
		return fmt.Errorf("unknown format %q (want %s)", pf.format, strings.Join(writers.TrackFormats(), ", "))
	}
	if pf.frame != "eci" && pf.frame != "ecef" {
		return fmt.Errorf("unknown frame %q (want eci or ecef)", pf.frame)
	}
	if pf.duration < 0 || pf.duration > kepler.MaxOffset {
		return fmt.Errorf("--duration must be positive and at most %.0f seconds", kepler.MaxOffset)
	}

	path, err := tleFile(args)
	if err != nil {
		return err
	}
	res, err := tle.Load(path, logger)
	if err != nil {
		return err
	}

	pc := cfg.Prop
	if pf.samples > 0 {
		pc.Samples = pf.samples
	}
	if pf.periods > 0 {
		pc.PeriodMultiple = pf.periods
	}
	if pf.workers > 0 {
		pc.Workers = pf.workers
	}
	pc.Velocity = pf.velocity
	prop := propagation.NewPropagator(pc, logger)

	times := prop.Timeline(res.Elements)
	if pf.duration > 0 {
		times = kepler.Linspace(0, pf.duration, prop.Config().Samples)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	batch, err := prop.Propagate(ctx, res.Elements, times)
	if err != nil {
		return err
	}

	if pf.frame == "ecef" {
		for i := range batch.Tracks {
			tr := &batch.Tracks[i]
			tr.Result = transform.ToECEF(tr.Result, tr.Elements.Epoch(), times)
		}
	}

	ok, failed := batch.SampleCounts()
	logger.Info("propagation finished",
		"satellites", len(batch.Tracks),
		"skipped_records", len(res.Failures),
		"samples_ok", ok,
		"samples_failed", failed,
		"duration_ms", batch.Duration.Milliseconds(),
	)

	out, closeOut, err := openOutput(cmd, pf.output)
	if err != nil {
		return err
	}
	set := writers.TrackSet{Frame: pf.frame, Times: times, Tracks: batch.Tracks}
	if err := writers.WriteTracks(pf.format, out, set); err != nil && !writers.IsBrokenPipe(err) {
		closeOut()
		return err
	}
	return closeOut()
}

// openOutput returns the command's stdout for "-" and a created file otherwise.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output: %w", err)
	}
	return f, f.Close, nil
}
