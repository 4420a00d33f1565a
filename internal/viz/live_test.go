package viz

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/dynstep/internal/config"
	"github.com/san-kum/dynstep/internal/experiment"
)

func newTestModel(t *testing.T, system, stepper string) Model {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.System = system
	cfg.Stepper = stepper
	cfg.Dt = 0.01

	reg := experiment.NewRegistry()
	exp := experiment.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, exp.Setup(reg))
	return NewModel(exp, reg)
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTickAdvances(t *testing.T) {
	m := newTestModel(t, "pendulum", "implicit")

	for i := 0; i < 5; i++ {
		m = update(t, m, TickMsg(time.Now()))
	}
	assert.InDelta(t, 0.05, m.Time(), 1e-12)
	assert.Len(t, m.energyHistory, 5)
	assert.Len(t, m.newtonHistory, 5)
	require.NotNil(t, m.newton)
	assert.True(t, m.newton.Converged)
}

func TestPauseAndSingleStep(t *testing.T) {
	m := newTestModel(t, "oscillator", "rk4")

	m = update(t, m, key(" "))
	assert.False(t, m.Running())
	m = update(t, m, TickMsg(time.Now()))
	assert.Zero(t, m.Time())

	m = update(t, m, key("."))
	assert.InDelta(t, 0.01, m.Time(), 1e-15)
	assert.Nil(t, m.newton)
}

func TestReset(t *testing.T) {
	m := newTestModel(t, "spring_chain", "leapfrog")
	for i := 0; i < 10; i++ {
		m = update(t, m, TickMsg(time.Now()))
	}
	require.Greater(t, m.Time(), 0.0)

	m = update(t, m, key("r"))
	assert.Zero(t, m.Time())
	assert.Empty(t, m.energyHistory)
	assert.Empty(t, m.trail)
}

func TestAdjustParam(t *testing.T) {
	m := newTestModel(t, "pendulum", "implicit")
	require.Equal(t, []string{"damping", "gravity", "length", "mass"}, m.paramKeys)

	m = update(t, m, key("tab"))
	m = update(t, m, key("up"))
	assert.InDelta(t, 9.81*1.05, m.exp.System().GetParams()["gravity"], 1e-12)
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, "oscillator", "euler")
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestView(t *testing.T) {
	m := newTestModel(t, "pendulum", "implicit")
	m = update(t, m, TickMsg(time.Now()))
	m = update(t, m, TickMsg(time.Now()))

	out := m.View()
	assert.Contains(t, out, "PENDULUM")
	assert.Contains(t, out, "Newton")
	assert.Contains(t, out, "|C|")
	assert.True(t, strings.ContainsRune(out, '⠀'))
}

func TestCanvasLine(t *testing.T) {
	c := NewCanvas(2, 1)
	c.DrawLine(0, 0, 3, 0)
	assert.Equal(t, "⠉⠉\n", c.String())

	c.Clear()
	c.Set(-1, 0)
	c.Set(4, 0)
	assert.Equal(t, "⠀⠀\n", c.String())
}

func TestViewportProject(t *testing.T) {
	vp := Viewport{OriginX: 10, OriginY: 10, Scale: 4}
	x, y := vp.Project(1, 1)
	assert.Equal(t, 14, x)
	assert.Equal(t, 6, y)
}

func TestDoublePendulumTrailFollowsOuterBob(t *testing.T) {
	m := newTestModel(t, "double_pendulum", "implicit")

	for i := 0; i < 3; i++ {
		m = update(t, m, TickMsg(time.Now()))
	}
	require.Len(t, m.trail, 3)
	state := m.exp.System().Snapshot()
	assert.Equal(t, [2]float64{state[2], state[3]}, m.trail[2])
	assert.Contains(t, m.View(), "DOUBLE_PENDULUM")
}
