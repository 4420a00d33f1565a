package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/dynstep/internal/sim"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
	catalogFile  = "catalog.db"
)

var ErrRunNotFound = errors.New("storage: run not found")

// Store keeps each run in its own directory under baseDir and indexes them in
// a SQLite catalog.
type Store struct {
	baseDir string
	catalog *catalog
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Init creates the base directory and opens the catalog. An empty catalog is
// rebuilt from the run directories already on disk.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return err
	}
	c, err := openCatalog(filepath.Join(s.baseDir, catalogFile))
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	s.catalog = c

	ctx := context.Background()
	n, err := c.count(ctx)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if n == 0 {
		if _, err := s.Reindex(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.catalog == nil {
		return nil
	}
	return s.catalog.close()
}

type NewtonMetadata struct {
	MaxIters  int     `json:"max_iters"`
	Tolerance float64 `json:"tolerance"`
}

type RunMetadata struct {
	ID          string             `json:"id"`
	System      string             `json:"system"`
	Stepper     string             `json:"stepper"`
	Timestamp   time.Time          `json:"timestamp"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	SampleEvery int                `json:"sample_every,omitempty"`
	Newton      *NewtonMetadata    `json:"newton,omitempty"`
	Params      map[string]float64 `json:"params,omitempty"`
	InitState   []float64          `json:"init_state,omitempty"`
	Labels      []string           `json:"labels,omitempty"`
	StepsTaken  int                `json:"steps_taken"`
	EnergyDrift float64            `json:"energy_drift"`
	Metrics     map[string]float64 `json:"metrics"`
	Errors      []string           `json:"errors,omitempty"`
}

// NewRunID returns "<system>_<8 hex digits>".
func NewRunID(system string) string {
	return fmt.Sprintf("%s_%s", system, uuid.NewString()[:8])
}

// Save writes metadata.json and states.csv for a run and records it in the
// catalog. ID and Timestamp are filled in when empty; the result's metrics,
// step count, energy drift and errors override whatever meta holds.
func (s *Store) Save(ctx context.Context, meta RunMetadata, result *sim.Result) (string, error) {
	if meta.ID == "" {
		meta.ID = NewRunID(meta.System)
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now().UTC()
	}
	meta.StepsTaken = result.StepsTaken
	meta.EnergyDrift = result.EnergyDrift
	meta.Metrics = result.Metrics
	meta.Errors = nil
	for _, err := range result.Errors {
		meta.Errors = append(meta.Errors, err.Error())
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeMetadata(filepath.Join(runDir, metadataFile), &meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, statesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteStatesCSV(csvFile, meta.Labels, result.Times, result.States); err != nil {
		return "", err
	}

	if s.catalog != nil {
		if err := s.catalog.insert(ctx, &meta); err != nil {
			return "", fmt.Errorf("storage: %w", err)
		}
	}

	return meta.ID, nil
}

func writeMetadata(path string, meta *RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	System  string
	Stepper string
	Limit   int
}

// List returns catalogued runs, newest first. Without a catalog it falls back
// to scanning the run directories.
func (s *Store) List(ctx context.Context, f Filter) ([]RunMetadata, error) {
	if s.catalog != nil {
		runs, err := s.catalog.list(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		return runs, nil
	}

	runs, err := s.scan()
	if err != nil {
		return nil, err
	}
	out := runs[:0]
	for _, r := range runs {
		if (f.System == "" || r.System == f.System) && (f.Stepper == "" || r.Stepper == f.Stepper) {
			out = append(out, r)
		}
	}
	sortByTime(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) scan() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	return runs, nil
}

// Reindex rebuilds the catalog from the run directories and returns the
// number of runs found.
func (s *Store) Reindex(ctx context.Context) (int, error) {
	if s.catalog == nil {
		return 0, fmt.Errorf("storage: not initialised")
	}
	runs, err := s.scan()
	if err != nil {
		return 0, err
	}
	for i := range runs {
		if err := s.catalog.insert(ctx, &runs[i]); err != nil {
			return i, fmt.Errorf("storage: %w", err)
		}
	}
	return len(runs), nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}

	return &meta, nil
}

func (s *Store) LoadStates(runID string) ([][]float64, []float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) < 2 {
		return [][]float64{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	states := make([][]float64, 0, len(records)-1)

	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) == 0 {
			continue
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("storage: %s line %d: %w", runID, i+1, err)
		}
		times = append(times, t)

		state := make([]float64, 0, len(record)-1)
		for j := 1; j < len(record); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("storage: %s line %d: %w", runID, i+1, err)
			}
			state = append(state, val)
		}
		states = append(states, state)
	}

	return states, times, nil
}

// Delete removes a run's directory and its catalog entry.
func (s *Store) Delete(ctx context.Context, runID string) error {
	runDir := filepath.Join(s.baseDir, runID)
	if _, err := os.Stat(filepath.Join(runDir, metadataFile)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return err
	}
	if s.catalog != nil {
		if _, err := s.catalog.remove(ctx, runID); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}
	return os.RemoveAll(runDir)
}
