package main

import (
	"fmt"
	"strings"

	"github.com/liamnightingale/OrbitSim/internal/orbit"
	"github.com/liamnightingale/OrbitSim/internal/tle"
	"github.com/liamnightingale/OrbitSim/internal/writers"
	"github.com/spf13/cobra"
)

var reportFormat string

var reportCmd = &cobra.Command{
	Use:   "report [FILE]",
	Short: "Print the orbital elements of every satellite in a TLE file",
	Long: `Parses FILE (or ORBITSIM_TLE_FILE) and prints one row per satellite:
semi-major axis, eccentricity, inclination, period and apsis altitudes.
Records that fail validation are logged and skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "text",
		"output format ("+strings.Join(writers.ReportFormats(), "|")+")")
}

func runReport(cmd *cobra.Command, args []string) error {
	if !writers.HasReportFormat(reportFormat) {
		return fmt.Errorf("unknown format %q (want %s)", reportFormat, strings.Join(writers.ReportFormats(), ", "))
	}
	path, err := tleFile(args)
	if err != nil {
		return err
	}
	res, err := tle.Load(path, logger)
	if err != nil {
		return err
	}

	reports := make([]orbit.Report, 0, len(res.Elements))
	for _, el := range res.Elements {
		reports = append(reports, el.Report())
	}

	if err := writers.WriteReports(reportFormat, cmd.OutOrStdout(), reports); err != nil && !writers.IsBrokenPipe(err) {
		return err
	}
	if len(res.Failures) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d record(s) skipped\n", len(res.Failures))
	}
	return nil
}

// tleFile returns the positional file argument, or the configured file.
func tleFile(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfg.TLE.File != "" {
		return cfg.TLE.File, nil
	}
	return "", fmt.Errorf("no TLE file given (pass FILE or set ORBITSIM_TLE_FILE)")
}
