// Command arbor runs the growth simulation headless: one or more seasons
// of daily steps, with windowed stats on stdout and optional CSV/snapshot
// output for downstream visualization.
package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/arbor/config"
	"github.com/pthm-cable/arbor/sim"
	"github.com/pthm-cable/arbor/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	genotype := flag.String("genotype", "", "Genotype name from the config table (empty = first)")
	seasons := flag.Int("seasons", 1, "Number of growing seasons to run")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	logStats := flag.Bool("log-stats", false, "Output windowed stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and snapshots")
	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Structured logging: JSON to stdout
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	simulator, err := sim.NewSimulator(sim.Options{
		Genotype: *genotype,
		Seed:     rngSeed,
	})
	if err != nil {
		slog.Error("failed to create simulator", "error", err)
		os.Exit(1)
	}

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output manager", "error", err)
		os.Exit(1)
	}
	defer output.Close()

	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
		os.Exit(1)
	}

	collector := telemetry.NewCollector(cfg.Telemetry.WindowSteps)
	onStep := func(step sim.StepResult) {
		collector.Record(step)
		if !collector.ShouldFlush() {
			return
		}
		stats := collector.Flush(simulator.Tree())
		if *logStats {
			slog.Info("window", "stats", stats)
		}
		if err := output.WriteStats(stats); err != nil {
			slog.Error("failed to write stats", "error", err)
		}
	}

	for i := 0; i < *seasons; i++ {
		result, err := simulator.RunSeason(onStep)
		if err != nil {
			slog.Error("season failed", "season", i+1, "error", err)
			os.Exit(1)
		}
		slog.Info("season",
			"season", i+1,
			"assimilation", result.TotalAssimilation,
			"net_carbon", result.NetCarbon,
			"new_metamers", result.NewMetamers,
			"metamers", simulator.Tree().ActiveCount(),
		)
	}

	if path, err := output.WriteSnapshot(simulator.Tree().Snapshot(), simulator.Tick()); err != nil {
		slog.Error("failed to write snapshot", "error", err)
	} else if path != "" {
		slog.Info("snapshot written", "path", path)
	}
}
