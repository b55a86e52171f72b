// Command pdessim is a minimal CLI entry point that wires together the
// engine and topology packages: load config, load the topology graph,
// build an engine, run the window loop, and exit with the resulting exit
// code. Grounded on github.com/inference-sim/inference-sim's cmd/root.go
// (cobra root + run subcommand, logrus level flag).
package main

import (
	"context"
	"errors"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"

	"github.com/iti/pdessim/config"
	"github.com/iti/pdessim/engine"
	"github.com/iti/pdessim/simtime"
	"github.com/iti/pdessim/topology"
)

var (
	configPath string
	logLevel   string
)

// validLogLevels are the level names logrus.ParseLevel accepts; checked
// up front so a typo'd --log produces a clear error listing the choices
// instead of logrus.ParseLevel's generic one.
var validLogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}

var rootCmd = &cobra.Command{
	Use:   "pdessim",
	Short: "Conservative parallel discrete-event network simulator core",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load a configuration and topology, then run the window loop",
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runSimulation())
	},
}

// runSimulation performs the load -> build -> run -> teardown sequence
// and returns the process exit code (engine.ExitOK on success).
func runSimulation() int {
	if !slices.Contains(validLogLevels, logLevel) {
		logrus.Fatalf("invalid log level %q, want one of %v", logLevel, validLogLevels)
	}
	level, _ := logrus.ParseLevel(logLevel)
	logrus.SetLevel(level)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logrus.Errorf("loading config: %v", err)
		return engine.ExitConfigInvalid
	}
	if err := cfg.Validate(); err != nil {
		logrus.Errorf("invalid config: %v", err)
		return engine.ExitConfigInvalid
	}

	// Hosts are registered by the application embedding this core (spec.md
	// treats Host as an external black box); this entry point only proves
	// the topology loads and validates before the engine starts.
	if _, err := topology.New(cfg.TopologyPath); err != nil {
		logrus.Errorf("loading topology: %v", err)
		switch {
		case errors.Is(err, topology.ErrUnconnectedTopology):
			return engine.ExitUnconnectedTopology
		default:
			return engine.ExitGraphUnloadable
		}
	}

	e, err := engine.New(engine.Params{
		MinTimeJump: simtime.SimulationTime(cfg.MinTimeJumpNs),
		EndTime:     simtime.SimulationTime(cfg.EndTimeNs),
		Seed:        cfg.Seed,
	})
	if err != nil {
		logrus.Errorf("constructing engine: %v", err)
		return engine.ExitConfigInvalid
	}

	if err := e.SetupWorkers(cfg.NWorkers); err != nil {
		logrus.Errorf("setting up workers: %v", err)
		return engine.ExitWorkerPoolFailure
	}
	defer e.TeardownWorkers()

	logrus.Infof("running: minTimeJumpNs=%d endTimeNs=%d nWorkers=%d seed=%d",
		cfg.MinTimeJumpNs, cfg.EndTimeNs, cfg.NWorkers, cfg.Seed)

	code := e.Run(context.Background())
	logrus.Infof("run complete: exitCode=%d clock=%d", code, e.Clock())
	return code
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "path to the simulation config YAML")
	runCmd.Flags().StringVar(&logLevel, "log", "info", "log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(runCmd)
}

func main() {
	Execute()
}
