package viz

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/golang/geo/r3"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/scarakin/internal/env"
	"github.com/san-kum/scarakin/internal/pipeline"
)

const (
	width           = 60
	height          = 24
	historyCapacity = 600
	trailCapacity   = 200
)

type TickMsg time.Time

type styles struct {
	canvas, stats, header, label, value, graph, help, status lipgloss.Style
}

func currentStyles() styles {
	th := CurrentTheme
	return styles{
		canvas: lipgloss.NewStyle().Padding(1, 2).Foreground(th.Secondary),
		stats:  lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(th.Muted).Padding(1, 2).Width(45),
		header: lipgloss.NewStyle().Foreground(th.Primary).Bold(true).MarginBottom(1),
		label:  lipgloss.NewStyle().Foreground(th.Muted).Width(12),
		value:  lipgloss.NewStyle().Foreground(th.Text),
		graph:  lipgloss.NewStyle().Foreground(th.Accent).Padding(1, 0),
		help:   lipgloss.NewStyle().Foreground(th.Muted).MarginTop(2),
		status: lipgloss.NewStyle().Foreground(th.Success).Bold(true),
	}
}

// Model steps an episode on every tick and draws it.
type Model struct {
	ctx     context.Context
	env     *env.Env
	policy  env.Policy
	horizon int
	title   string
	fps     int

	canvas  *Canvas
	scale   float64
	targets []r3.Vector

	obs       *pipeline.Observation
	last      env.StepResult
	steps     int
	running   bool
	err       error
	distances []float64
	trail     []r3.Vector
}

// NewModel resets the environment and prepares the view.
func NewModel(ctx context.Context, e *env.Env, p env.Policy, horizon int, targets []r3.Vector, title string) (Model, error) {
	m := Model{
		ctx:       ctx,
		env:       e,
		policy:    p,
		horizon:   horizon,
		title:     title,
		fps:       30,
		canvas:    NewCanvas(width, height),
		targets:   targets,
		running:   true,
		distances: make([]float64, 0, historyCapacity),
	}
	m.scale = m.fitScale()
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

// fitScale maps the arm's reach onto half the canvas height.
func (m *Model) fitScale() float64 {
	reach := 0.0
	for _, s := range m.env.Estimator().Chain().Segments() {
		reach += s.XYZ.Norm()
	}
	for _, t := range m.targets {
		reach = math.Max(reach, math.Hypot(t.X, t.Y))
	}
	if reach == 0 {
		reach = 1
	}
	return float64(height*4/2-2) / reach
}

func (m *Model) reset() error {
	obs, err := m.env.Reset(m.ctx)
	if err != nil {
		return err
	}
	m.obs = obs
	m.last = env.StepResult{Obs: obs, Distance: obs.Distance()}
	m.steps = 0
	m.err = nil
	m.distances = m.distances[:0]
	m.trail = m.trail[:0]
	return nil
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) finished() bool {
	return m.last.Done || m.steps >= m.horizon || m.err != nil
}

// Update handles input events and steps the episode.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			if err := m.reset(); err != nil {
				m.err = err
			}
		case "t":
			NextTheme()
		}
	case TickMsg:
		if m.running && !m.finished() {
			m.step()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) step() {
	res, err := m.env.Step(m.ctx, m.policy.Act(m.obs))
	if err != nil {
		m.err = err
		return
	}
	m.obs = res.Obs
	m.last = res
	m.steps++

	m.distances = append(m.distances, res.Distance)
	if len(m.distances) > historyCapacity {
		m.distances = m.distances[1:]
	}
	if len(res.Obs.Points) > 0 {
		m.trail = append(m.trail, res.Obs.Points[0])
		if len(m.trail) > trailCapacity {
			m.trail = m.trail[1:]
		}
	}
}

// project maps world x/y onto canvas sub-pixels, y up.
func (m *Model) project(p r3.Vector) (int, int) {
	cx, cy := width, height*2
	return cx + int(math.Round(p.X*m.scale)), cy - int(math.Round(p.Y*m.scale))
}

func (m *Model) draw() {
	m.canvas.Clear()
	for _, t := range m.targets {
		x, y := m.project(t)
		m.canvas.DrawCross(x, y, 2)
	}
	for _, p := range m.trail {
		x, y := m.project(p)
		m.canvas.Set(x, y)
	}

	links, err := m.env.Estimator().Chain().LinkTransforms(m.obs.Positions)
	if err != nil {
		return
	}
	px, py := m.project(links[0].Translation())
	for _, l := range links[1:] {
		x, y := m.project(l.Translation())
		m.canvas.DrawLine(px, py, x, y)
		px, py = x, y
	}
	for _, p := range m.obs.Points {
		x, y := m.project(p)
		m.canvas.DrawCross(x, y, 1)
	}
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return "ERROR: " + m.err.Error()
	case m.last.Done:
		return "REACHED"
	case m.steps >= m.horizon:
		return "HORIZON"
	case !m.running:
		return "PAUSED"
	}
	return "RUNNING"
}

func (m Model) View() string {
	st := currentStyles()
	m.draw()
	canvasView := st.canvas.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(st.status.Render(m.status()) + "\n\n")
	if len(m.distances) > 1 {
		chart := asciigraph.Plot(m.distances, asciigraph.Height(5), asciigraph.Width(30), asciigraph.Caption("Distance"))
		s.WriteString(st.graph.Render(chart) + "\n\n")
	}
	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Policy", m.policy.Name())
	row("Step", fmt.Sprintf("%d/%d", m.steps, m.horizon))
	row("Distance", fmt.Sprintf("%.4f", m.last.Distance))
	row("Reward", fmt.Sprintf("%.4f", m.last.Reward))
	for i, name := range m.env.Estimator().JointOrder() {
		row(name, fmt.Sprintf("%+.3f", m.obs.Positions[i]))
	}
	if len(m.obs.Points) > 0 {
		p := m.obs.Points[0]
		row("Tool", fmt.Sprintf("(%.3f, %.3f, %.3f)", p.X, p.Y, p.Z))
	}
	s.WriteString(st.help.Render("SP:Pause R:Reset T:Theme Q:Quit"))

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.stats.Render(s.String()))
}

// Run shows the episode until the user quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
