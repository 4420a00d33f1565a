package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/dynstep/internal/config"
	"github.com/san-kum/dynstep/internal/experiment"
	"github.com/san-kum/dynstep/internal/storage"
	"github.com/san-kum/dynstep/internal/viz"
)

var (
	dataDir     string
	verbose     bool
	dt          float64
	duration    float64
	stepper     string
	sampleEvery int
	maxIters    int
	tolerance   float64
	initState   []float64
	params      map[string]string
	configFile  string
	preset      string

	filterSystem  string
	filterStepper string
	listLimit     int

	exportFormat string
	exportOut    string

	orderLevels int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "dynstep",
		Short:         "time integration of constrained mechanical systems",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(verbose)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".dynstep", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [system]",
		Short: "run a simulation and store it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&filterSystem, "system", "", "only runs of this system")
	listCmd.Flags().StringVar(&filterStepper, "stepper", "", "only runs with this stepper")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum number of runs")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the states of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a stored run as json or csv",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "json or csv")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")

	deleteCmd := &cobra.Command{
		Use:   "delete [run_id]...",
		Short: "delete stored runs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  deleteRuns,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "dominant frequency of each state component",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	phaseCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y-axis")
	phaseCmd.Flags().StringVar(&svgFile, "svg", "", "write an svg file instead of text")

	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "rebuild the run catalog from the data directory",
		Args:  cobra.NoArgs,
		RunE:  reindexRuns,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [system] [stepper]...",
		Short: "run several steppers on the same system",
		Args:  cobra.MinimumNArgs(1),
		RunE:  compareSteppers,
	}
	addSimFlags(compareCmd)

	orderCmd := &cobra.Command{
		Use:   "order [system]",
		Short: "estimate the observed order of accuracy by step halving",
		Args:  cobra.MaximumNArgs(1),
		RunE:  observedOrder,
	}
	addSimFlags(orderCmd)
	orderCmd.Flags().IntVar(&orderLevels, "levels", 4, "number of step halvings")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run and store every run of a yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [system]",
		Short: "sweep dt or a system parameter and report stability",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addSimFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "vary", "dt", "dt or a system parameter")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.001, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 0.1, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 10, "number of values")

	liveCmd := &cobra.Command{
		Use:   "live [system]",
		Short: "run a simulation with a live terminal view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addSimFlags(liveCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets [system]",
		Short: "list presets for a system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for system: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				cfg := config.GetPreset(args[0], p)
				fmt.Printf("  %-8s %s dt=%g t=%g\n", p, cfg.Stepper, cfg.Dt, cfg.Duration)
			}
			return nil
		},
	}

	systemsCmd := &cobra.Command{
		Use:   "systems",
		Short: "list systems and steppers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			reg := experiment.NewRegistry()
			fmt.Printf("systems:  %s\n", strings.Join(reg.ListSystems(), ", "))
			fmt.Printf("steppers: %s\n", strings.Join(reg.ListSteppers(), ", "))
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, analyzeCmd, phaseCmd, exportCmd, deleteCmd, reindexCmd,
		compareCmd, orderCmd, scenarioCmd, sweepCmd, liveCmd, presetsCmd, systemsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func addSimFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "time step")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().StringVar(&stepper, "stepper", config.DefaultStepper, "stepper kind")
	cmd.Flags().IntVar(&sampleEvery, "sample-every", config.DefaultSampleEvery, "record every nth step")
	cmd.Flags().IntVar(&maxIters, "max-iters", config.DefaultMaxIters, "newton iteration limit (implicit)")
	cmd.Flags().Float64Var(&tolerance, "tol", config.DefaultTolerance, "newton tolerance (implicit)")
	cmd.Flags().Float64SliceVar(&initState, "init", nil, "initial state [x..., v...]")
	cmd.Flags().StringToStringVar(&params, "param", nil, "system parameter, name=value")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
}

// buildConfig layers defaults, then a preset, then a config file, then any
// flags given explicitly on the command line.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.System = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.System, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.System))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if len(args) > 0 && loaded.System != args[0] {
			return nil, fmt.Errorf("config file is for %s, not %s", loaded.System, args[0])
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("dt") || (preset == "" && configFile == "") {
		cfg.Dt = dt
	}
	if flags.Changed("time") || (preset == "" && configFile == "") {
		cfg.Duration = duration
	}
	if flags.Changed("stepper") {
		cfg.Stepper = stepper
	}
	if flags.Changed("sample-every") {
		cfg.SampleEvery = sampleEvery
	}
	if flags.Changed("max-iters") {
		cfg.Newton.MaxIters = maxIters
	}
	if flags.Changed("tol") {
		cfg.Newton.Tolerance = tolerance
	}
	if flags.Changed("init") {
		cfg.InitState = initState
	}
	if len(params) > 0 {
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64)
		}
		for name, raw := range params {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("param %s: %w", name, err)
			}
			cfg.Params[name] = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore() (*storage.Store, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	registry := experiment.NewRegistry()
	exp := experiment.New(cfg, slog.Default())
	if err := exp.Setup(registry); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %s with %s...\n", cfg.System, cfg.Stepper)
	start := time.Now()

	result, err := exp.Run(ctx)
	if result == nil {
		return err
	}
	if err != nil {
		slog.Warn("run interrupted, saving partial result", "error", err)
	}
	elapsed := time.Since(start)

	meta := storage.RunMetadata{
		System:      cfg.System,
		Stepper:     cfg.Stepper,
		Dt:          cfg.Dt,
		Duration:    cfg.Duration,
		SampleEvery: cfg.SampleEvery,
		Params:      exp.System().GetParams(),
		InitState:   cfg.InitState,
		Labels:      exp.System().Labels(),
	}
	if cfg.Stepper == "implicit" {
		meta.Newton = &storage.NewtonMetadata{MaxIters: cfg.Newton.MaxIters, Tolerance: cfg.Newton.Tolerance}
	}

	runID, err := st.Save(context.Background(), meta, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	for _, e := range result.Errors {
		fmt.Printf("error: %v\n", e)
	}
	fmt.Println("\nmetrics:")
	printMetrics(result.Metrics)

	return nil
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-18s %.6g\n", name+":", m[name])
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List(context.Background(), storage.Filter{
		System:  filterSystem,
		Stepper: filterStepper,
		Limit:   listLimit,
	})
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYSTEM\tSTEPPER\tTIME\tDURATION\tDT\tSTEPS\tDRIFT\tOK")

	for _, run := range runs {
		ok := "yes"
		if len(run.Errors) > 0 {
			ok = "no"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%.2e\t%s\n",
			run.ID,
			run.System,
			run.Stepper,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.StepsTaken,
			run.EnergyDrift,
			ok,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("system: %s (%s)\n", meta.System, meta.Stepper)
	fmt.Printf("samples: %d\n\n", len(states))

	numVars := len(states[0])
	maxPlots := 6
	if numVars > maxPlots {
		numVars = maxPlots
	}

	for varIdx := 0; varIdx < numVars; varIdx++ {
		data := make([]float64, len(states))
		for i := range states {
			if varIdx < len(states[i]) {
				data[i] = states[i][varIdx]
			}
		}

		caption := fmt.Sprintf("x%d vs time", varIdx)
		if varIdx < len(meta.Labels) {
			caption = meta.Labels[varIdx] + " vs time"
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	states, times, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	out := os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	switch exportFormat {
	case "json":
		err = storage.ExportJSON(out, meta, times, states)
	case "csv":
		err = storage.WriteStatesCSV(out, meta.Labels, times, states)
	default:
		return fmt.Errorf("unknown format %q (json or csv)", exportFormat)
	}
	if err != nil {
		return err
	}
	if exportOut != "" {
		fmt.Fprintf(os.Stderr, "exported %d samples to %s\n", len(times), exportOut)
	}
	return nil
}

func deleteRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	for _, id := range args {
		if err := st.Delete(context.Background(), id); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", id)
	}
	return nil
}

func reindexRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.Reindex(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d runs\n", n)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	// warnings would tear the TUI
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	registry := experiment.NewRegistry()
	exp := experiment.New(cfg, logger)
	if err := exp.Setup(registry); err != nil {
		return err
	}

	p := tea.NewProgram(viz.NewModel(exp, registry))
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
