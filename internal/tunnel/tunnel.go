// Package tunnel publishes the local serving port on a public endpoint by
// driving the ngrok agent: start the agent with no tunnels, then create and
// tear down the tunnel through its local control API.
package tunnel

import (
	"context"
	"errors"
)

// Sentinel errors callers branch on.
var (
	ErrAuthTokenMissing = errors.New("tunnel authtoken is not configured")
	ErrAgentNotFound    = errors.New("ngrok binary not found in PATH")
	ErrAgentTimeout     = errors.New("ngrok agent did not become ready in time")
	ErrAgentExited      = errors.New("ngrok agent exited unexpectedly")
)

// Endpoint is a publicly reachable address forwarding to a local port.
type Endpoint struct {
	Name      string
	PublicURL string
	Proto     string
	LocalAddr string
}

// Tunnel opens one public-to-local mapping and tears it down on Close.
type Tunnel interface {
	Open(ctx context.Context, port int) (*Endpoint, error)
	Close() error
}
