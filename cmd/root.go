package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/simlir/simlir/sim"
	"github.com/simlir/simlir/sim/registry"
	"github.com/simlir/simlir/sim/report"
)

var (
	// CLI flags for run setup
	scenarioPath string // YAML scenario describing the hierarchy
	registryPath string // delegated-format registry data file
	logLevel     string // Log verbosity level
	outputPath   string // CSV destination for the resolution records
	showSummary  bool   // Print request statistics after the run

	// CLI flags overriding scenario/registry defaults
	seed        int64
	width       int
	maxTime     int64
	stopDry     bool
	snapshotInt int64 // Interval between utilisation log lines
	epoch       string // YYYYMMDD mapped to simulation time 0
	rirRefill   int    // Prefix length an RIR requests from the root
	rirKind     string // Registry behaviour: static, replay, or none
	rirSpan     uint64 // Static registry request size
	rirInterval int64  // Static registry cadence
	lirKind     string // Holder behaviour: static or replay
	lirSpan     uint64 // Static behaviour request size
	lirInterval int64  // Static behaviour cadence
	lirJitter   int64  // Extra random delay per interval
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "simlir",
	Short: "Discrete-event simulator for hierarchical address-space delegation",
}

// runCmd executes the simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the delegation simulation",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		var cfg sim.RunConfig
		var records []sim.EntityRecord

		switch {
		case scenarioPath != "":
			cfg, records, err = LoadScenario(scenarioPath)
			if err != nil {
				logrus.Fatalf("loading scenario: %v", err)
			}
		case registryPath != "":
			allocs, err := registry.ParseFile(registryPath)
			if err != nil {
				logrus.Fatalf("loading registry data: %v", err)
			}
			records, err = registry.BuildRecords(allocs, registry.BuildOptions{
				Epoch:              epoch,
				RIRReplenishLength: rirRefill,
				RIRBehaviour:       registryBehaviour(),
				LIRBehaviour:       holderBehaviour(),
			})
			if err != nil {
				logrus.Fatalf("building hierarchy: %v", err)
			}
			cfg = sim.RunConfig{
				Width:             width,
				MaxTime:           maxTime,
				Seed:              seed,
				StopWhenExhausted: stopDry,
				SnapshotInterval:  snapshotInt,
			}
		default:
			logrus.Fatalf("either --scenario or --registry-data is required")
		}

		s, err := sim.NewSimulator(cfg, records)
		if err != nil {
			logrus.Fatalf("building simulator: %v", err)
		}

		status := s.Run()
		s.Metrics.Print(status)

		if showSummary {
			report.Summarize(s.Report).Write(os.Stdout)
		}
		if outputPath != "" {
			if err := writeRecordsCSV(s.Report, outputPath); err != nil {
				logrus.Fatalf("writing %s: %v", outputPath, err)
			}
			logrus.Infof("wrote %d records to %s", len(s.Report.Records), outputPath)
		}
	},
}

// registryBehaviour builds the behaviour template applied to every regional
// registry created from registry data. Registries are passive by default:
// they replenish on demand instead of requesting on a schedule.
func registryBehaviour() *sim.BehaviourConfig {
	if rirKind == "" || rirKind == "none" {
		return nil
	}
	return &sim.BehaviourConfig{
		Kind:     rirKind,
		Span:     rirSpan,
		Interval: rirInterval,
	}
}

// holderBehaviour builds the behaviour template applied to every holder
// created from registry data.
func holderBehaviour() *sim.BehaviourConfig {
	switch lirKind {
	case "":
		return nil
	case "replay":
		return &sim.BehaviourConfig{Kind: "replay"}
	default:
		return &sim.BehaviourConfig{
			Kind:     lirKind,
			Span:     lirSpan,
			Interval: lirInterval,
			Jitter:   lirJitter,
		}
	}
}

func writeRecordsCSV(r *report.RunReport, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.WriteCSV(f)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "YAML scenario file describing the run")
	runCmd.Flags().StringVar(&registryPath, "registry-data", "", "Delegated-format registry statistics file")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&outputPath, "output", "", "Write resolution records to this CSV file")
	runCmd.Flags().BoolVar(&showSummary, "summary", false, "Print request statistics after the run")

	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for deterministic behaviour jitter")
	runCmd.Flags().IntVar(&width, "width", sim.DefaultWidth, "Address-space bit width")
	runCmd.Flags().Int64Var(&maxTime, "max-time", 0, "Stop before events later than this time (0 = no limit)")
	runCmd.Flags().BoolVar(&stopDry, "stop-when-exhausted", false, "Halt once every supplier has run dry")
	runCmd.Flags().Int64Var(&snapshotInt, "snapshot-interval", 0, "Log supplier utilisation every N time units (0 = off)")

	// Registry-data mode configuration
	runCmd.Flags().StringVar(&epoch, "epoch", registry.DefaultDate, "YYYYMMDD date mapped to simulation time 0")
	runCmd.Flags().IntVar(&rirRefill, "rir-replenish-length", 8, "Prefix length an RIR requests from the root when dry")
	runCmd.Flags().StringVar(&rirKind, "rir-behaviour", "none", "Registry behaviour (none, static, replay)")
	runCmd.Flags().Uint64Var(&rirSpan, "rir-span", 1<<24, "Addresses per static registry request")
	runCmd.Flags().Int64Var(&rirInterval, "rir-interval", sim.DefaultRequestInterval, "Time units between static registry requests")
	runCmd.Flags().StringVar(&lirKind, "lir-behaviour", "static", "Holder behaviour (static, replay)")
	runCmd.Flags().Uint64Var(&lirSpan, "lir-span", 2048, "Addresses per static holder request")
	runCmd.Flags().Int64Var(&lirInterval, "lir-interval", sim.DefaultRequestInterval, "Time units between static holder requests")
	runCmd.Flags().Int64Var(&lirJitter, "lir-jitter", 0, "Max extra random delay per interval")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
