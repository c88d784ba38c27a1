package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func newTestApp(models ...string) *App {
	pulls := make([]pullRow, 0, len(models))
	for _, m := range models {
		pulls = append(pulls, pullRow{model: m})
	}
	return &App{pulls: pulls}
}

func update(a *App, msg tea.Msg) *App {
	m, _ := a.Update(msg)
	return m.(*App)
}

func TestStageString(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StageStarting, "Starting server"},
		{StagePulling, "Pulling models"},
		{StageTunnel, "Opening tunnel"},
		{StageIdle, "Serving"},
		{StageShutdown, "Shutting down"},
		{Stage(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.stage.String(); got != tt.want {
			t.Errorf("Stage(%d).String() = %q, want %q", tt.stage, got, tt.want)
		}
	}
}

func TestStageTransitions(t *testing.T) {
	a := newTestApp("llama3")

	a = update(a, ServerStartingMsg{})
	if a.stage != StageStarting {
		t.Errorf("stage = %v after ServerStartingMsg", a.stage)
	}
	a = update(a, ServerReadyMsg{})
	if a.stage != StagePulling {
		t.Errorf("stage = %v after ServerReadyMsg", a.stage)
	}
	a = update(a, TunnelOpeningMsg{})
	if a.stage != StageTunnel {
		t.Errorf("stage = %v after TunnelOpeningMsg", a.stage)
	}
	a = update(a, TunnelReadyMsg{URL: "https://x.ngrok.app"})
	if a.stage != StageIdle || a.publicURL != "https://x.ngrok.app" {
		t.Errorf("stage = %v, publicURL = %q", a.stage, a.publicURL)
	}
	a = update(a, ShutdownMsg{})
	if a.stage != StageShutdown {
		t.Errorf("stage = %v after ShutdownMsg", a.stage)
	}
}

func TestPullChecklist(t *testing.T) {
	a := newTestApp("llama3", "mistral")

	a = update(a, PullStartMsg{Model: "llama3"})
	if a.pulls[0].state != pullRunning {
		t.Errorf("llama3 state = %v, want running", a.pulls[0].state)
	}
	if a.pulls[1].state != pullPending {
		t.Errorf("mistral state = %v, want pending", a.pulls[1].state)
	}

	a = update(a, PullDoneMsg{Model: "llama3", Duration: 3 * time.Second})
	if a.pulls[0].state != pullOK {
		t.Errorf("llama3 state = %v, want ok", a.pulls[0].state)
	}

	a = update(a, PullDoneMsg{Model: "mistral", Err: errors.New("no manifest")})
	if a.pulls[1].state != pullFailed {
		t.Errorf("mistral state = %v, want failed", a.pulls[1].state)
	}
}

func TestTunnelErrorShownInView(t *testing.T) {
	a := newTestApp()
	a = update(a, TunnelErrorMsg{Err: errors.New("dns failure")})
	if a.stage != StageIdle {
		t.Errorf("stage = %v, tunnel failure still idles", a.stage)
	}
	if !strings.Contains(a.View(), "dns failure") {
		t.Error("View should show the tunnel error")
	}
}

func TestViewShowsURLAndModels(t *testing.T) {
	a := newTestApp("llama3")
	a = update(a, PullDoneMsg{Model: "llama3", Duration: time.Second})
	a = update(a, TunnelReadyMsg{URL: "https://abc.ngrok.app"})

	view := a.View()
	if !strings.Contains(view, "https://abc.ngrok.app") {
		t.Error("View should show the public URL")
	}
	if !strings.Contains(view, "llama3") {
		t.Error("View should list the model")
	}
}

func TestQuitKeyCallsOnQuitOnce(t *testing.T) {
	calls := 0
	a := newTestApp()
	a.onQuit = func() { calls++ }

	key := tea.KeyMsg{Type: tea.KeyCtrlC}
	a = update(a, key)
	a = update(a, key)

	if calls != 1 {
		t.Errorf("onQuit called %d times, want 1", calls)
	}
	if !a.quitting || a.stage != StageShutdown {
		t.Errorf("quitting = %v, stage = %v", a.quitting, a.stage)
	}
}

func TestEventsClosedQuits(t *testing.T) {
	a := newTestApp()
	_, cmd := a.Update(eventsClosedMsg{})
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if msg := cmd(); msg != tea.Quit() {
		t.Errorf("cmd() = %v, want tea.Quit", msg)
	}
}
