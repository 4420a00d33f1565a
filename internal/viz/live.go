package viz

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/dynstep/internal/experiment"
	"github.com/san-kum/dynstep/internal/sim"
	"github.com/san-kum/dynstep/internal/timestep"
)

const (
	width           = 60
	height          = 20
	historyCapacity = 300
	trailLength     = 80
	frameRate       = time.Second / 60
)

var (
	canvasStyle      = lipgloss.NewStyle().Padding(1, 2)
	statsStyle       = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(44)
	headerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeParamStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	warnStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffaa00")).Bold(true)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444")).Bold(true)
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Model steps an experiment in real time and renders it.
type Model struct {
	exp     *experiment.Experiment
	reg     *experiment.Registry
	name    string
	dt      float64
	canvas  *Canvas
	trail   [][2]float64
	running bool
	err     error

	energyHistory []float64
	newtonHistory []float64
	newton        *timestep.NewtonStats
	failures      int

	params    map[string]float64
	paramKeys []string
	selected  int
}

// NewModel builds a live view over an experiment that has already been set
// up with reg. Reset rebuilds it from reg.
func NewModel(exp *experiment.Experiment, reg *experiment.Registry) Model {
	m := Model{
		exp:     exp,
		reg:     reg,
		name:    exp.Config().System,
		dt:      exp.Config().Dt,
		canvas:  NewCanvas(width, height),
		running: true,
	}
	m.loadParams()
	return m
}

func (m *Model) loadParams() {
	m.params = m.exp.System().GetParams()
	delete(m.params, "masses")
	m.paramKeys = m.paramKeys[:0]
	for k := range m.params {
		m.paramKeys = append(m.paramKeys, k)
	}
	sort.Strings(m.paramKeys)
	if m.selected >= len(m.paramKeys) {
		m.selected = 0
	}
}

func tick() tea.Cmd {
	return tea.Tick(frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case ".":
			if !m.running {
				m.step()
			}
		case "r":
			m.reset()
		case "tab":
			if len(m.paramKeys) > 0 {
				m.selected = (m.selected + 1) % len(m.paramKeys)
			}
		case "up", "k":
			m.adjustParam(1.05)
		case "down", "j":
			m.adjustParam(0.95)
		}
	case TickMsg:
		if m.running && m.err == nil {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) adjustParam(factor float64) {
	if len(m.paramKeys) == 0 {
		return
	}
	key := m.paramKeys[m.selected]
	val := m.params[key] * factor
	if val == 0 {
		val = 1e-3 * factor
	}
	if err := m.exp.System().SetParam(key, val); err != nil {
		return
	}
	m.params[key] = val
}

func (m *Model) step() {
	m.exp.Stepper().Advance(m.dt)

	state := m.exp.System().Snapshot()
	for _, v := range state {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			m.err = sim.SimError{Time: m.exp.Stepper().Time(), Message: "state is not finite"}
			m.running = false
			return
		}
	}

	if len(state) >= 2 {
		tip := [2]float64{state[0], state[1]}
		if m.name == "double_pendulum" && len(state) >= 4 {
			tip = [2]float64{state[2], state[3]}
		}
		m.trail = append(m.trail, tip)
		if len(m.trail) > trailLength {
			m.trail = m.trail[1:]
		}
	}
	if e, ok := m.exp.System().(sim.Energetic); ok {
		m.energyHistory = appendCapped(m.energyHistory, e.Energy())
	}
	if nr, ok := m.exp.Stepper().(sim.NewtonReporter); ok {
		stats := nr.LastNewton()
		m.newton = &stats
		m.newtonHistory = appendCapped(m.newtonHistory, float64(stats.Iterations))
		if !stats.Converged {
			m.failures++
		}
	}
}

func appendCapped(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyCapacity {
		h = h[1:]
	}
	return h
}

func (m *Model) reset() {
	if err := m.exp.Setup(m.reg); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.trail = m.trail[:0]
	m.energyHistory = m.energyHistory[:0]
	m.newtonHistory = m.newtonHistory[:0]
	m.newton = nil
	m.failures = 0
	m.loadParams()
}

// Time is the simulated time reached so far.
func (m Model) Time() float64 { return m.exp.Stepper().Time() }

func (m Model) Running() bool { return m.running }

func (m Model) Err() error { return m.err }

func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.name)+" · "+m.exp.Config().Stepper) + "\n")

	switch {
	case m.err != nil:
		s.WriteString(errorStyle.Render("STOPPED: "+m.err.Error()) + "\n\n")
	case m.running:
		s.WriteString("RUNNING\n\n")
	default:
		s.WriteString("PAUSED\n\n")
	}

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Energy"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	if len(m.newtonHistory) > 1 {
		chart := asciigraph.Plot(m.newtonHistory, asciigraph.Height(3), asciigraph.Width(30), asciigraph.Caption("Newton iterations"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.3fs", m.Time())) + "\n")
	s.WriteString(labelStyle.Render("dt") + valueStyle.Render(fmt.Sprintf("%g", m.dt)) + "\n")
	if n := len(m.energyHistory); n > 0 {
		s.WriteString(labelStyle.Render("Energy") + valueStyle.Render(fmt.Sprintf("%.5f", m.energyHistory[n-1])) + "\n")
	}
	if c, ok := m.exp.System().(sim.Constrained); ok {
		s.WriteString(labelStyle.Render("|C|") + valueStyle.Render(fmt.Sprintf("%.2e", math.Abs(c.ConstraintViolation()))) + "\n")
	}
	if m.newton != nil {
		s.WriteString(labelStyle.Render("Newton") + valueStyle.Render(fmt.Sprintf("%d it, res %.1e", m.newton.Iterations, m.newton.Residual)) + "\n")
		if m.failures > 0 {
			s.WriteString(labelStyle.Render("") + warnStyle.Render(fmt.Sprintf("%d unconverged steps", m.failures)) + "\n")
		}
	}

	s.WriteString("\nPARAMETERS\n")
	if len(m.paramKeys) == 0 {
		s.WriteString(labelStyle.Render("  (none)") + "\n")
	}
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-10s %.4g", k, m.params[k])
		if i == m.selected {
			s.WriteString(activeParamStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.Render(line) + "\n")
		}
	}
	s.WriteString(helpStyle.Render("SP:Pause .:Step R:Reset Q:Quit\nTab:Param ↑↓:Tune"))

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
}

func (m *Model) draw() {
	m.canvas.Clear()
	state := m.exp.System().Snapshot()
	switch m.name {
	case "pendulum":
		m.drawPendulum(state)
	case "double_pendulum":
		m.drawDoublePendulum(state)
	case "spring_chain":
		m.drawChain(state)
	case "oscillator":
		m.drawOscillator(state)
	default:
		m.drawPhase()
	}
}

func (m *Model) drawPendulum(state []float64) {
	if len(state) < 2 {
		return
	}
	cw, ch := m.canvas.Dots()
	length := m.params["length"]
	if length <= 0 {
		length = 1
	}
	vp := Viewport{OriginX: cw / 2, OriginY: ch / 2, Scale: float64(ch) * 0.45 / length}
	bx, by := vp.Project(state[0], state[1])
	m.drawTrail(vp)
	m.canvas.Blob(vp.OriginX, vp.OriginY, 0)
	m.canvas.DrawLine(vp.OriginX, vp.OriginY, bx, by)
	m.canvas.Blob(bx, by, 1)
}

func (m *Model) drawDoublePendulum(state []float64) {
	if len(state) < 4 {
		return
	}
	cw, ch := m.canvas.Dots()
	reach := m.params["l1"] + m.params["l2"]
	if reach <= 0 {
		reach = 2
	}
	vp := Viewport{OriginX: cw / 2, OriginY: ch / 2, Scale: float64(ch) * 0.45 / reach}
	x1, y1 := vp.Project(state[0], state[1])
	x2, y2 := vp.Project(state[2], state[3])
	m.drawTrail(vp)
	m.canvas.Blob(vp.OriginX, vp.OriginY, 0)
	m.canvas.DrawLine(vp.OriginX, vp.OriginY, x1, y1)
	m.canvas.DrawLine(x1, y1, x2, y2)
	m.canvas.Blob(x1, y1, 1)
	m.canvas.Blob(x2, y2, 1)
}

// drawChain lays the masses out at rest positions between the walls and
// shows displacement vertically.
func (m *Model) drawChain(state []float64) {
	n := len(state) / 2
	if n < 1 {
		return
	}
	cw, ch := m.canvas.Dots()
	spacing := cw / (n + 1)
	vp := Viewport{OriginY: ch / 2, Scale: float64(ch) / 4}
	px, py := 0, ch/2
	for i := 0; i < n; i++ {
		_, y := vp.Project(0, state[i])
		x := (i + 1) * spacing
		m.canvas.DrawLine(px, py, x, y)
		m.canvas.Blob(x, y, 2)
		px, py = x, y
	}
	m.canvas.DrawLine(px, py, cw-1, ch/2)
	m.canvas.DrawLine(0, 0, 0, ch-1)
	m.canvas.DrawLine(cw-1, 0, cw-1, ch-1)
}

func (m *Model) drawOscillator(state []float64) {
	if len(state) < 1 {
		return
	}
	cw, ch := m.canvas.Dots()
	vp := Viewport{OriginX: cw / 2, OriginY: ch / 2, Scale: float64(cw) / 6}
	x, y := vp.Project(state[0], 0)
	m.canvas.DrawLine(0, 0, 0, ch-1)
	m.canvas.DrawLine(0, y, x, y)
	m.canvas.Blob(x, y, 3)
	m.drawTrail(Viewport{OriginX: cw / 2, OriginY: ch - ch/5, Scale: float64(ch) / 10})
}

func (m *Model) drawPhase() {
	cw, ch := m.canvas.Dots()
	m.drawTrail(Viewport{OriginX: cw / 2, OriginY: ch / 2, Scale: float64(ch) / 6})
}

// drawTrail plots the recent history of the first two state components.
func (m *Model) drawTrail(vp Viewport) {
	for _, p := range m.trail {
		m.canvas.Set(vp.Project(p[0], p[1]))
	}
}
