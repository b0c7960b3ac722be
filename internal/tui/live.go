package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/aquasim/internal/chem"
	"github.com/san-kum/aquasim/internal/equil"
	"github.com/san-kum/aquasim/internal/kinetics"
)

const historyCapacity = 600

var (
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	degradedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	graphStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	statsStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

type TickMsg time.Time

// Model steps a kinetic run one interval per tick and charts the
// evolving mineral mass and pH.
type Model struct {
	integ    *kinetics.Integrator
	eval     equil.Evaluator
	phases   []string
	interval float64
	duration float64

	t        float64
	solution chem.Solution
	initial  snapshot
	specs    []kinetics.MineralSpec

	molesHist []float64
	phHist    []float64
	notes     []string
	degraded  bool
	running   bool
	done      bool
	err       error
}

// snapshot lets reset restore the starting conditions.
type snapshot struct {
	solution chem.Solution
	specs    []kinetics.MineralSpec
}

func NewModel(eval equil.Evaluator, laws *kinetics.Registry, cfg kinetics.Config, sol chem.Solution, additions []chem.Reactant, specs []kinetics.MineralSpec, phases []string, interval, duration float64) (Model, error) {
	integ := kinetics.New(eval, laws, cfg)

	// Apply the initial additions up front so ticks only ever carry
	// mineral transfers.
	out, err := eval.Evaluate(context.Background(), sol, additions, phases)
	if err != nil {
		return Model{}, fmt.Errorf("initial equilibration: %w", err)
	}

	m := Model{
		integ:    integ,
		eval:     eval,
		phases:   phases,
		interval: interval,
		duration: duration,
		solution: out.Solution,
		specs:    cloneSpecs(specs),
		initial:  snapshot{solution: out.Solution.Clone(), specs: cloneSpecs(specs)},
		running:  true,
	}
	m.record()
	return m, nil
}

func cloneSpecs(specs []kinetics.MineralSpec) []kinetics.MineralSpec {
	out := make([]kinetics.MineralSpec, len(specs))
	copy(out, specs)
	for i := range out {
		parms := make([]float64, len(specs[i].Parms))
		copy(parms, specs[i].Parms)
		out[i].Parms = parms
	}
	return out
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		}
	case TickMsg:
		if m.running && !m.done && m.err == nil {
			m.step()
		}
		return m, tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

// step integrates one interval from the current state. The snapshot
// carried between ticks is exactly what a single-interval run returns:
// the re-equilibrated solution plus updated mineral masses.
func (m *Model) step() {
	next := m.t + m.interval
	if next > m.duration {
		next = m.duration
	}

	// Exhausted minerals cannot seed another interval.
	active := make([]kinetics.MineralSpec, 0, len(m.specs))
	for _, s := range m.specs {
		if s.M > 0 {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		m.done = true
		return
	}

	trace, err := m.integ.Run(context.Background(), m.solution, nil, active, []float64{m.t, next}, m.phases)
	if err != nil {
		m.err = err
		return
	}

	last := trace[len(trace)-1]
	m.solution = last.Solution
	for i := range m.specs {
		for _, mp := range last.Minerals {
			if mp.Name == m.specs[i].Name {
				m.specs[i].M = mp.Moles
			}
		}
	}
	if last.Degraded {
		m.degraded = true
	}
	m.notes = append(m.notes, last.Notes...)
	if len(m.notes) > 5 {
		m.notes = m.notes[len(m.notes)-5:]
	}

	m.t = next
	m.record()
	if m.t >= m.duration {
		m.done = true
	}
}

func (m *Model) record() {
	total := 0.0
	for _, s := range m.specs {
		total += s.M
	}
	m.molesHist = append(m.molesHist, total)
	m.phHist = append(m.phHist, m.solution.PH)
	if len(m.molesHist) > historyCapacity {
		m.molesHist = m.molesHist[1:]
		m.phHist = m.phHist[1:]
	}
}

func (m *Model) reset() {
	m.t = 0
	m.solution = m.initial.solution.Clone()
	m.specs = cloneSpecs(m.initial.specs)
	m.molesHist = m.molesHist[:0]
	m.phHist = m.phHist[:0]
	m.notes = nil
	m.degraded = false
	m.done = false
	m.err = nil
	m.running = true
	m.record()
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("KINETIC RUN") + "\n")

	status := "RUNNING"
	switch {
	case m.err != nil:
		status = "FAILED"
	case m.done:
		status = "DONE"
	case !m.running:
		status = "PAUSED"
	}
	if m.degraded {
		status += degradedStyle.Render("  [degraded]")
	}
	s.WriteString(status + "\n\n")

	if len(m.molesHist) > 1 {
		chart := asciigraph.Plot(m.molesHist, asciigraph.Height(6), asciigraph.Width(40), asciigraph.Caption("mineral mass (mmol)"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	if len(m.phHist) > 1 {
		chart := asciigraph.Plot(m.phHist, asciigraph.Height(4), asciigraph.Width(40), asciigraph.Caption("pH"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.0fs / %.0fs", m.t, m.duration)) + "\n")
	s.WriteString(labelStyle.Render("pH") + valueStyle.Render(fmt.Sprintf("%.3f", m.solution.PH)) + "\n")
	for _, spec := range m.specs {
		s.WriteString(labelStyle.Render(spec.Name) + valueStyle.Render(fmt.Sprintf("%.6g mmol", spec.M)) + "\n")
	}
	if m.err != nil {
		s.WriteString("\n" + degradedStyle.Render(m.err.Error()) + "\n")
	}
	for _, note := range m.notes {
		s.WriteString(labelStyle.Render("note") + valueStyle.Render(note) + "\n")
	}

	s.WriteString(helpStyle.Render("\nSP:Pause R:Reset Q:Quit"))
	return statsStyle.Render(s.String())
}
