package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/dynstep/internal/config"
	"github.com/san-kum/dynstep/internal/experiment"
	"github.com/san-kum/dynstep/internal/sim"
)

var ErrEmptyScenario = errors.New("automation: scenario has no runs")

// Scenario is a scripted batch of runs loaded from YAML. Each run is a full
// config; fields it leaves out take the config defaults.
type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Runs        []ScenarioRun `yaml:"runs"`
}

type ScenarioRun struct {
	Name          string `yaml:"name"`
	config.Config `yaml:",inline"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var raw struct {
		Name        string      `yaml:"name"`
		Description string      `yaml:"description"`
		Runs        []yaml.Node `yaml:"runs"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if len(raw.Runs) == 0 {
		return nil, ErrEmptyScenario
	}

	sc := &Scenario{Name: raw.Name, Description: raw.Description}
	for i, node := range raw.Runs {
		run := ScenarioRun{Config: *config.DefaultConfig()}
		if err := node.Decode(&run); err != nil {
			return nil, fmt.Errorf("run %d: %w", i+1, err)
		}
		if run.Name == "" {
			run.Name = fmt.Sprintf("%s-%s-%d", run.System, run.Stepper, i+1)
		}
		if err := run.Validate(); err != nil {
			return nil, fmt.Errorf("run %s: %w", run.Name, err)
		}
		sc.Runs = append(sc.Runs, run)
	}
	return sc, nil
}

// RunScenario executes every run concurrently and returns the results in
// scenario order.
func RunScenario(ctx context.Context, sc *Scenario, reg *experiment.Registry, logger *slog.Logger) ([]*sim.Result, error) {
	if len(sc.Runs) == 0 {
		return nil, ErrEmptyScenario
	}
	jobs := make([]sim.Job, len(sc.Runs))
	for i := range sc.Runs {
		jobs[i] = reg.Job(sc.Runs[i].Name, &sc.Runs[i].Config, logger)
	}
	return sim.RunBatch(ctx, jobs)
}
