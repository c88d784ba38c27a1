// Package tui renders live pipeline progress for 'up --tui': server startup,
// the per-model pull checklist, and the final public URL.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	stageStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	urlBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 2)
)

type pullState int

const (
	pullPending pullState = iota
	pullRunning
	pullOK
	pullFailed
)

type pullRow struct {
	model    string
	state    pullState
	duration time.Duration
	err      error
}

// App is the progress view model.
type App struct {
	spinner spinner.Model

	stage     Stage
	pulls     []pullRow
	publicURL string
	tunnelErr error

	events   <-chan any
	onQuit   func()
	quitting bool
}

// Run blocks until the pipeline finishes or the user interrupts. onQuit is
// invoked once when the user asks to stop; the program exits when the event
// stream closes.
func Run(models []string, events <-chan any, onQuit func()) error {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))

	pulls := make([]pullRow, 0, len(models))
	for _, m := range models {
		pulls = append(pulls, pullRow{model: m})
	}

	app := &App{
		spinner: s,
		pulls:   pulls,
		events:  events,
		onQuit:  onQuit,
	}
	_, err := tea.NewProgram(app).Run()
	return err
}

// Init starts the spinner and the event pump.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.nextEvent())
}

// nextEvent reads one pipeline event off the channel.
func (a *App) nextEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-a.events
		if !ok {
			return eventsClosedMsg{}
		}
		return ev
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !a.quitting {
				a.quitting = true
				a.stage = StageShutdown
				if a.onQuit != nil {
					a.onQuit()
				}
			}
			return a, a.nextEvent()
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case ServerStartingMsg:
		a.stage = StageStarting
		return a, a.nextEvent()

	case ServerReadyMsg:
		a.stage = StagePulling
		return a, a.nextEvent()

	case PullStartMsg:
		a.setPull(msg.Model, pullRow{model: msg.Model, state: pullRunning})
		return a, a.nextEvent()

	case PullDoneMsg:
		state := pullOK
		if msg.Err != nil {
			state = pullFailed
		}
		a.setPull(msg.Model, pullRow{model: msg.Model, state: state, duration: msg.Duration, err: msg.Err})
		return a, a.nextEvent()

	case TunnelOpeningMsg:
		a.stage = StageTunnel
		return a, a.nextEvent()

	case TunnelReadyMsg:
		a.stage = StageIdle
		a.publicURL = msg.URL
		return a, a.nextEvent()

	case TunnelErrorMsg:
		a.stage = StageIdle
		a.tunnelErr = msg.Err
		return a, a.nextEvent()

	case ShutdownMsg:
		a.stage = StageShutdown
		return a, a.nextEvent()

	case eventsClosedMsg:
		return a, tea.Quit
	}

	return a, nil
}

func (a *App) setPull(model string, row pullRow) {
	for i := range a.pulls {
		if a.pulls[i].model == model {
			a.pulls[i] = row
			return
		}
	}
	a.pulls = append(a.pulls, row)
}

func (a *App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("modelport"))
	b.WriteString("  ")
	if a.stage == StageIdle && !a.quitting {
		b.WriteString(stageStyle.Render(a.stage.String()))
	} else {
		b.WriteString(a.spinner.View() + " " + stageStyle.Render(a.stage.String()))
	}
	b.WriteString("\n\n")

	for _, p := range a.pulls {
		switch p.state {
		case pullPending:
			b.WriteString(dimStyle.Render("  [ ] " + p.model))
		case pullRunning:
			b.WriteString("  " + a.spinner.View() + " " + p.model)
		case pullOK:
			b.WriteString(okStyle.Render(fmt.Sprintf("  [✓] %s (%s)", p.model, p.duration.Round(time.Second))))
		case pullFailed:
			b.WriteString(failStyle.Render(fmt.Sprintf("  [✗] %s: %v", p.model, p.err)))
		}
		b.WriteString("\n")
	}

	if a.publicURL != "" {
		b.WriteString("\n")
		b.WriteString(urlBoxStyle.Render("🔥 " + a.publicURL))
		b.WriteString("\n")
	}
	if a.tunnelErr != nil {
		b.WriteString("\n")
		b.WriteString(failStyle.Render("tunnel failed: " + a.tunnelErr.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if a.quitting {
		b.WriteString(dimStyle.Render("stopping..."))
	} else {
		b.WriteString(dimStyle.Render("q/ctrl+c to stop"))
	}
	b.WriteString("\n")

	return b.String()
}
