// Package main - sim-runner
// Runs the scripted playthrough suite against a headless engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MRamiBalles/ReactorIdle/server/internal/domain/catalog"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/config"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/logger"
	"github.com/MRamiBalles/ReactorIdle/server/internal/platform/optimization"
	"github.com/MRamiBalles/ReactorIdle/server/internal/sim"
)

func main() {
	seed := flag.Int64("seed", 1, "Random seed for every scenario engine")
	only := flag.String("scenario", "", "Comma-separated scenario names (default: all)")
	level := flag.String("log", "warn", "Log level")
	flag.Parse()

	var names []string
	if *only != "" {
		names = strings.Split(*only, ",")
	}
	scenarios, err := sim.Find(names)
	if err != nil {
		config.Exitf("%v", err)
	}
	cat, err := catalog.Load()
	if err != nil {
		config.Exitf("catalog: %v", err)
	}

	fmt.Println("REACTOR IDLE - SIMULATION SUITE")
	fmt.Println(strings.Repeat("=", 60))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	runner := sim.NewRunner(cat, *seed, logger.NewConsole(*level))
	results := runner.Run(ctx, scenarios)

	for _, r := range results {
		mark := "PASS"
		if !r.Passed {
			mark = "FAIL"
		}
		fmt.Printf("[%s] %-20s %4d actions %4d frames %8s  %s\n", mark, r.Scenario, r.Actions, r.Frames, r.Duration.Round(time.Microsecond), r.Reason)
	}

	passed, failed := sim.Summary(results)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Passed: %d\n", passed)
	fmt.Printf("Failed: %d\n", failed)

	rec := optimization.Analyze(runner.Metrics().Snapshot(), optimization.DefaultConfig())
	for _, note := range rec.Notes {
		fmt.Println("Tuning: " + note)
	}

	if failed > 0 || len(results) < len(scenarios) {
		os.Exit(1)
	}
}
