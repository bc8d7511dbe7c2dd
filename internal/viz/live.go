package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/linkage/internal/dynamo"
	"github.com/san-kum/linkage/internal/linkage"
	"github.com/san-kum/linkage/internal/sim"
)

const (
	width           = 60
	height          = 18
	historyCapacity = 120
	frameRate       = 30
)

// Mechanism is what the player needs from a model.
type Mechanism interface {
	Params() linkage.Params
	Positions(x dynamo.State) [][2]float64
	Energy(x dynamo.State) float64
	ConstraintResidual(x dynamo.State) float64
}

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Player replays a trajectory in real time, looping at the end.
type Player struct {
	title  string
	mech   Mechanism
	tr     *sim.Trajectory
	canvas *Canvas
	view   Viewport
	ground [2]float64

	t, t0, t1 float64
	speed     float64
	running   bool
	last      time.Time
	theme     int
	crank     []float64
}

func NewPlayer(title string, mech Mechanism, tr *sim.Trajectory) Player {
	p := mech.Params()
	n := len(p.Lengths) - 1
	t0, t1 := tr.Span()
	return Player{
		title:   title,
		mech:    mech,
		tr:      tr,
		canvas:  NewCanvas(width, height),
		view:    LinkageViewport(p.Lengths).Pad(0.05),
		ground:  [2]float64{p.Lengths[n], 0},
		t:       t0,
		t0:      t0,
		t1:      t1,
		speed:   1,
		running: true,
		crank:   make([]float64, 0, historyCapacity),
	}
}

// WithTheme selects a theme by name.
func (m Player) WithTheme(name string) Player {
	for i, t := range Themes {
		if t.Name == name {
			m.theme = i
		}
	}
	return m
}

// Time returns the playback position.
func (m Player) Time() float64 { return m.t }

func (m Player) Init() tea.Cmd {
	return tick()
}

// Update handles keys and advances the playback clock.
func (m Player) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ", "space":
			m.running = !m.running
			m.last = time.Time{}
		case "r":
			m.seek(m.t0 - m.t)
			m.crank = m.crank[:0]
		case "+", "=":
			m.speed = min(m.speed*2, 16)
		case "-":
			m.speed = max(m.speed/2, 1.0/16)
		case "left", "h":
			m.seek(-0.5)
		case "right", "l":
			m.seek(0.5)
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
		}
		return m, nil

	case TickMsg:
		now := time.Time(msg)
		if m.running && !m.last.IsZero() {
			m.advance(now.Sub(m.last).Seconds() * m.speed)
		}
		if m.running {
			m.last = now
		}
		return m, tick()
	}
	return m, nil
}

// advance moves the clock by dt, wrapping past the end.
func (m *Player) advance(dt float64) {
	m.t += dt
	if span := m.t1 - m.t0; span > 0 {
		for m.t > m.t1 {
			m.t -= span
		}
	} else {
		m.t = m.t0
	}
	m.record()
}

func (m *Player) seek(dt float64) {
	m.t = min(max(m.t+dt, m.t0), m.t1)
}

func (m *Player) record() {
	x, err := m.tr.At(m.t)
	if err != nil {
		return
	}
	if len(m.crank) == historyCapacity {
		copy(m.crank, m.crank[1:])
		m.crank = m.crank[:historyCapacity-1]
	}
	m.crank = append(m.crank, x[0]*180/math.Pi)
}

// View draws the linkage at the playback time beside its angles and
// conserved quantities.
func (m Player) View() string {
	st := newStyles(Themes[m.theme])

	x, err := m.tr.At(m.t)
	if err != nil {
		return st.alert.Render(err.Error()) + "\n"
	}

	m.canvas.Clear()
	DrawLinkage(m.canvas, m.view, m.mech.Positions(x), m.ground)
	left := st.canvas.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.title)) + "\n")
	status := "PLAYING"
	if !m.running {
		status = "PAUSED"
	}
	s.WriteString(fmt.Sprintf("%s  x%g\n", status, m.speed))
	frac := 0.0
	if m.t1 > m.t0 {
		frac = (m.t - m.t0) / (m.t1 - m.t0)
	}
	s.WriteString(ProgressBar(frac, 30) + "\n\n")

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Time", fmt.Sprintf("%.3fs", m.t))
	n := len(x) / 2
	for i := 0; i < n; i++ {
		row(fmt.Sprintf("θ%d", i), fmt.Sprintf("%9.3f°  %8.3f rad/s", x[i]*180/math.Pi, x[n+i]))
	}
	row("Energy", fmt.Sprintf("%.6g", m.mech.Energy(x)))
	closure := m.mech.ConstraintResidual(x)
	if closure > 1e-3 {
		row("Closure", st.alert.Render(fmt.Sprintf("%.3g", closure)))
	} else {
		row("Closure", fmt.Sprintf("%.3g", closure))
	}

	if len(m.crank) > 1 {
		s.WriteString(st.graph.Render(Plot(m.crank, "θ0 [deg]", 30, 5)) + "\n")
	}
	s.WriteString(st.help.Render("space pause · ←/→ seek · +/- speed · r restart · t theme · q quit"))

	return lipgloss.JoinHorizontal(lipgloss.Top, left, st.stats.Render(s.String()))
}

// Play runs p full screen until the user quits.
func Play(p Player) error {
	_, err := tea.NewProgram(p, tea.WithAltScreen()).Run()
	return err
}
