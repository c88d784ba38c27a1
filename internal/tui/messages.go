package tui

import "time"

// Stage is where the pipeline currently is.
type Stage int

const (
	StageStarting Stage = iota
	StagePulling
	StageTunnel
	StageIdle
	StageShutdown
)

// String returns a human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageStarting:
		return "Starting server"
	case StagePulling:
		return "Pulling models"
	case StageTunnel:
		return "Opening tunnel"
	case StageIdle:
		return "Serving"
	case StageShutdown:
		return "Shutting down"
	default:
		return "Unknown"
	}
}

// Pipeline events mirrored into the UI.

// ServerStartingMsg is sent when the serve process launches.
type ServerStartingMsg struct{}

// ServerReadyMsg is sent once the local API answers (or the warmup elapsed).
type ServerReadyMsg struct{}

// PullStartMsg is sent before each model's pull begins.
type PullStartMsg struct {
	Model string
}

// PullDoneMsg is sent after each pull attempt.
type PullDoneMsg struct {
	Model    string
	Err      error
	Duration time.Duration
}

// TunnelOpeningMsg is sent when the tunnel stage begins.
type TunnelOpeningMsg struct{}

// TunnelReadyMsg carries the public URL.
type TunnelReadyMsg struct {
	URL string
}

// TunnelErrorMsg is sent when tunnel setup fails (the pipeline idles anyway
// unless configured otherwise).
type TunnelErrorMsg struct {
	Err error
}

// ShutdownMsg is sent when teardown begins.
type ShutdownMsg struct{}

// eventsClosedMsg means the pipeline finished and the event stream ended.
type eventsClosedMsg struct{}
