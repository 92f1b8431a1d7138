package cmd

import (
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ensemble-sim/ensemble-sim/comms"
	"github.com/ensemble-sim/ensemble-sim/gen"
	"github.com/ensemble-sim/ensemble-sim/manager"
)

var (
	// CLI flags for the demo ensemble run
	logLevel           string // Log verbosity level
	workers            int    // Worker pool size
	batches            int    // Number of sampling batches
	batchSize          int    // Input records per batch
	seed               int64  // Seed for the sampling generator
	historyPath        string // SQLite history path ("" keeps history in memory)
	ensembleConfigPath string // YAML ensemble config (schema fields + bounds)
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "ensemble-sim",
	Short: "Ensemble-computing orchestrator for batched simulation evaluations",
}

// runCmd runs a sampling generator against the in-process manager and
// worker pool using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a sampling ensemble against the built-in objective",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := DefaultEnsembleConfig()
		if ensembleConfigPath != "" {
			cfg, err = LoadEnsembleConfig(ensembleConfigPath)
			if err != nil {
				logrus.Fatalf("Ensemble config: %v", err)
			}
		}

		mgr, genCh, err := manager.New(manager.Config{
			Workers:     workers,
			HistoryPath: historyPath,
		}, SixHumpCamel)
		if err != nil {
			logrus.Fatalf("Manager: %v", err)
		}
		mgr.Start()
		defer mgr.Shutdown()

		eval := comms.NewCommEval(genCh, 0, cfg.Schema())
		sampler, err := gen.NewSampler(gen.SamplerConfig{
			Schema:    cfg.Schema(),
			Lower:     cfg.Lower,
			Upper:     cfg.Upper,
			Seed:      seed,
			BatchSize: batchSize,
			Batches:   batches,
		})
		if err != nil {
			logrus.Fatalf("Sampler: %v", err)
		}

		futures, err := sampler.Run(eval)
		if err != nil {
			logrus.Fatalf("Run: %v", err)
		}

		best := math.Inf(1)
		for _, f := range futures {
			if f.Cancelled() {
				continue
			}
			res, err := f.Result()
			if err != nil {
				logrus.Fatalf("Result for sim %d: %v", f.ID(), err)
			}
			if v := res["f"]; v < best {
				best = v
			}
		}
		logrus.Infof("Evaluated %d simulations across %d workers; best objective %.6f",
			eval.Started, eval.Workers, best)
	},
}

func init() {
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")
	runCmd.Flags().IntVar(&workers, "workers", 4, "Number of simulation workers")
	runCmd.Flags().IntVar(&batches, "batches", 4, "Number of sampling batches to submit")
	runCmd.Flags().IntVar(&batchSize, "batch-size", 8, "Input records per batch")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Seed for the sampling generator")
	runCmd.Flags().StringVar(&historyPath, "history-db", "", "SQLite path for the evaluation history (empty = in-memory)")
	runCmd.Flags().StringVar(&ensembleConfigPath, "config", "", "YAML ensemble config with schema fields and bounds")
	rootCmd.AddCommand(runCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
