package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/dynstep/internal/automation"
	"github.com/san-kum/dynstep/internal/experiment"
	"github.com/san-kum/dynstep/internal/storage"
)

func compareSteppers(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[:1])
	if err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	steppers := args[1:]
	if len(steppers) == 0 {
		steppers = registry.ListSteppers()
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("comparing steppers for %s (dt=%.4f, duration=%.1fs)\n\n", cfg.System, cfg.Dt, cfg.Duration)

	start := time.Now()
	results, err := experiment.Compare(ctx, registry, cfg, steppers, slog.Default())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("%-12s  %12s  %12s  %12s  %8s  %s\n", "stepper", "final_x0", "energy_drift", "constraint", "newton", "status")
	fmt.Println(strings.Repeat("-", 74))

	for i, name := range steppers {
		res := results[i]
		finalX0 := 0.0
		if final := res.Final(); len(final) > 0 {
			finalX0 = final[0]
		}
		status := "ok"
		if err := res.Err(); err != nil {
			status = err.Error()
		}
		constraint := "-"
		if v, ok := res.Metrics["constraint_drift"]; ok {
			constraint = fmt.Sprintf("%.2e", v)
		}
		newton := "-"
		if v := res.Metrics["newton_iterations"]; v > 0 {
			newton = fmt.Sprintf("%.2f", v)
		}
		fmt.Printf("%-12s  %12.6f  %12.2e  %12s  %8s  %s\n", name, finalX0, res.EnergyDrift, constraint, newton, status)
	}

	fmt.Printf("\n%d runs in %v\n", len(results), elapsed)
	return nil
}

func observedOrder(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	rows, err := experiment.ObservedOrder(ctx, experiment.NewRegistry(), cfg, orderLevels, slog.Default())
	if err != nil {
		return err
	}

	fmt.Printf("observed order of %s on %s (duration=%.1fs)\n\n", cfg.Stepper, cfg.System, cfg.Duration)
	fmt.Printf("%-12s  %14s  %8s\n", "dt", "|y(dt)-y(dt/2)|", "order")
	fmt.Println(strings.Repeat("-", 38))
	for _, r := range rows {
		order := "-"
		if !math.IsNaN(r.Order) {
			order = fmt.Sprintf("%.3f", r.Order)
		}
		fmt.Printf("%-12g  %14.4e  %8s\n", r.Dt, r.Difference, order)
	}
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := signalContext()
	defer cancel()

	registry := experiment.NewRegistry()
	fmt.Printf("scenario %q: %d runs\n", sc.Name, len(sc.Runs))
	results, err := automation.RunScenario(ctx, sc, registry, slog.Default())
	if err != nil {
		return err
	}

	for i, res := range results {
		run := sc.Runs[i]
		sys, err := registry.GetSystem(run.System, run.Params)
		if err != nil {
			return err
		}
		meta := storage.RunMetadata{
			System:      run.System,
			Stepper:     run.Stepper,
			Dt:          run.Dt,
			Duration:    run.Duration,
			SampleEvery: run.SampleEvery,
			Params:      sys.GetParams(),
			InitState:   run.InitState,
			Labels:      sys.Labels(),
		}
		id, err := st.Save(context.Background(), meta, res)
		if err != nil {
			return err
		}
		status := "ok"
		if err := res.Err(); err != nil {
			status = err.Error()
		}
		fmt.Printf("  %-24s %s  drift=%.2e  %s\n", run.Name, id, res.EnergyDrift, status)
	}
	return nil
}

var (
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
)

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunSweep(ctx, &automation.Sweep{
		Base:  cfg,
		Param: sweepParam,
		Min:   sweepMin,
		Max:   sweepMax,
		Steps: sweepSteps,
	}, experiment.NewRegistry(), slog.Default())
	if err != nil {
		return err
	}

	fmt.Printf("sweep of %s for %s on %s\n\n", sweepParam, cfg.Stepper, cfg.System)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSTABLE\tSTEPS\tDRIFT\tNEWTON\tFAILURES\n", strings.ToUpper(sweepParam))
	for _, r := range results {
		fmt.Fprintf(w, "%.6g\t%v\t%d\t%.2e\t%.2f\t%.0f\n",
			r.Value, r.Stable, r.StepsTaken, r.EnergyDrift, r.NewtonIterations, r.NewtonFailures)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if limit, ok := automation.StabilityLimit(results); ok {
		fmt.Printf("\nlast stable %s: %.6g\n", sweepParam, limit)
	}
	return nil
}
