package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// WriteStatesCSV writes one row per sample: the time followed by the state.
// Columns are named by labels when they match the state width.
func WriteStatesCSV(out io.Writer, labels []string, times []float64, states [][]float64) error {
	w := csv.NewWriter(out)

	if len(states) == 0 {
		w.Flush()
		return w.Error()
	}

	header := []string{"time"}
	if len(labels) == len(states[0]) {
		header = append(header, labels...)
	} else {
		for i := range states[0] {
			header = append(header, fmt.Sprintf("x%d", i))
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range states {
		row := make([]string, 0, len(states[i])+1)
		row = append(row, formatFloat(times[i]))
		for _, val := range states[i] {
			row = append(row, formatFloat(val))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

type ExportData struct {
	Run    *RunMetadata `json:"run"`
	Steps  int          `json:"steps"`
	Times  []float64    `json:"times"`
	States [][]float64  `json:"states"`
}

// ExportJSON writes a run's metadata and states as one indented document.
func ExportJSON(out io.Writer, meta *RunMetadata, times []float64, states [][]float64) error {
	data := ExportData{
		Run:    meta,
		Steps:  len(times),
		Times:  times,
		States: states,
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
