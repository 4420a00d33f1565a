package main

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/dynstep/internal/analysis"
	"github.com/san-kum/dynstep/internal/storage"
)

var (
	xAxis   int
	yAxis   int
	svgFile string
)

func analyzeRun(cmd *cobra.Command, args []string) error {
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
	if len(times) < 2 {
		return fmt.Errorf("run %s has too few samples", runID)
	}
	sampleDt := times[1] - times[0]

	fmt.Printf("run: %s (%s, %s)\n", meta.ID, meta.System, meta.Stepper)
	fmt.Printf("samples: %d every %.4gs\n\n", len(times), sampleDt)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COMPONENT\tFREQ (Hz)\tPERIOD (s)")
	for i := range states[0] {
		col := make([]float64, len(states))
		for j := range states {
			col[j] = states[j][i]
		}
		f, err := analysis.DominantFrequency(col, sampleDt)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("x%d", i)
		if i < len(meta.Labels) {
			name = meta.Labels[i]
		}
		fmt.Fprintf(w, "%s\t%.5f\t%.5f\n", name, f, 1/f)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if exact, ok := oscillatorFrequency(meta); ok {
		measured, err := analysis.DominantFrequency(firstComponent(states), sampleDt)
		if err != nil {
			return err
		}
		fmt.Printf("\nexact damped frequency: %.5f Hz (relative error %.2e)\n",
			exact, math.Abs(measured-exact)/exact)
	}
	return nil
}

// oscillatorFrequency is the analytic damped frequency of a stored
// oscillator run, if its parameters were recorded and it is underdamped.
func oscillatorFrequency(meta *storage.RunMetadata) (float64, bool) {
	if meta.System != "oscillator" {
		return 0, false
	}
	m, k, c := meta.Params["mass"], meta.Params["stiffness"], meta.Params["damping"]
	if m <= 0 || k <= 0 {
		return 0, false
	}
	w2 := k/m - (c/(2*m))*(c/(2*m))
	if w2 <= 0 {
		return 0, false
	}
	return math.Sqrt(w2) / (2 * math.Pi), true
}

func firstComponent(states [][]float64) []float64 {
	out := make([]float64, len(states))
	for i, s := range states {
		out[i] = s[0]
	}
	return out
}

func phasePlot(cmd *cobra.Command, args []string) error {
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

	portrait, err := analysis.NewPhasePortrait(states, xAxis, yAxis)
	if err != nil {
		return err
	}

	if svgFile != "" {
		if err := os.WriteFile(svgFile, []byte(portrait.SVG(800, 600, "#00ff88")), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgFile)
		return nil
	}

	label := func(i int) string {
		if i < len(meta.Labels) {
			return meta.Labels[i]
		}
		return fmt.Sprintf("x%d", i)
	}
	fmt.Printf("phase portrait: %s vs %s (%s)\n\n", label(yAxis), label(xAxis), meta.ID)
	fmt.Print(portrait.ASCII(80, 30))
	return nil
}
