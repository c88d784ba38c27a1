package tunnel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/modelport/modelport/internal/proc"
)

// Agent runs the ngrok agent binary with no tunnels and manages one tunnel
// through its local control API. The authtoken is passed via NGROK_AUTHTOKEN
// in the child environment only; it never touches the agent's config file.
type Agent struct {
	Bin     string
	Token   string
	Region  string
	APIURL  string
	LogPath string

	// ReadyTimeout bounds the wait for the agent's control API. Zero means
	// a 15 second default.
	ReadyTimeout time.Duration

	cmd       *exec.Cmd
	logFile   *os.File
	api       *agentAPI
	name      string
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewAgent returns an agent driver for the given binary and authtoken.
func NewAgent(bin, token string) *Agent {
	return &Agent{Bin: bin, Token: token, APIURL: DefaultAPIURL}
}

// Open starts the agent if needed, creates an HTTP tunnel to the local port,
// and returns the public endpoint once the agent reports its URL.
func (a *Agent) Open(ctx context.Context, port int) (*Endpoint, error) {
	if a.Token == "" {
		return nil, ErrAuthTokenMissing
	}
	if a.APIURL == "" {
		a.APIURL = DefaultAPIURL
	}
	a.api = newAgentAPI(a.APIURL)

	if err := a.startAgent(); err != nil {
		return nil, err
	}
	if err := a.waitAPI(ctx); err != nil {
		return nil, err
	}

	// Session-scoped name so a stale agent with leftover tunnels can't
	// collide. Recorded on the Agent only once the tunnel exists, so Close
	// never deletes a tunnel that was never created.
	name := "modelport-" + uuid.New().String()[:8]

	addr := fmt.Sprintf("%d", port)
	res, err := a.api.createTunnel(ctx, name, "http", addr)
	if err != nil {
		return nil, err
	}
	a.name = name

	// The agent can report the tunnel before the public URL is assigned.
	for res.PublicURL == "" {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: no public URL: %v", ErrAgentTimeout, ctx.Err())
		case <-time.After(500 * time.Millisecond):
		}
		res, err = a.api.getTunnel(ctx, a.name)
		if err != nil {
			return nil, err
		}
	}

	return &Endpoint{
		Name:      res.Name,
		PublicURL: res.PublicURL,
		Proto:     res.Proto,
		LocalAddr: res.Config.Addr,
	}, nil
}

// startAgent launches 'ngrok start --none' in the background. Skipped when an
// agent is already answering on the control API (shared dev machine case).
func (a *Agent) startAgent() error {
	if a.api.ready(context.Background()) {
		return nil
	}

	args := []string{"start", "--none"}
	if a.Region != "" {
		args = append(args, "--region", a.Region)
	}

	cmd := exec.Command(a.Bin, args...)
	cmd.Env = append(os.Environ(), "NGROK_AUTHTOKEN="+a.Token)
	proc.Detach(cmd)

	if a.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(a.LogPath), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(a.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open agent log: %w", err)
		}
		a.logFile = f
		cmd.Stdout = f
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		if a.logFile != nil {
			a.logFile.Close()
		}
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %v", ErrAgentNotFound, err)
		}
		return fmt.Errorf("failed to start ngrok agent: %w", err)
	}

	a.cmd = cmd
	a.done = make(chan struct{})
	go func() {
		cmd.Wait()
		if a.logFile != nil {
			a.logFile.Close()
		}
		close(a.done)
	}()

	return nil
}

// waitAPI polls the control API until the agent answers, dies, or the ready
// window closes.
func (a *Agent) waitAPI(ctx context.Context) error {
	timeout := a.ReadyTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrAgentTimeout, ctx.Err())
		case <-deadline.C:
			return ErrAgentTimeout
		case <-a.agentDone():
			return ErrAgentExited
		case <-ticker.C:
			if a.api.ready(ctx) {
				return nil
			}
		}
	}
}

// agentDone returns the exit channel, or a never-firing one when we attached
// to an agent we didn't start.
func (a *Agent) agentDone() <-chan struct{} {
	if a.done != nil {
		return a.done
	}
	return make(chan struct{})
}

// Name identifies the process in the shutdown registry.
func (a *Agent) Name() string {
	return "ngrok agent"
}

// Stop satisfies proc.Stopper.
func (a *Agent) Stop() error {
	return a.Close()
}

// Close tears the tunnel down and stops the agent if this process started it.
// Safe to call more than once; only the first call acts.
func (a *Agent) Close() error {
	a.closeOnce.Do(func() {
		if a.api != nil && a.name != "" {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			a.closeErr = a.api.deleteTunnel(ctx, a.name)
		}
		if a.cmd != nil && a.cmd.Process != nil {
			pid := a.cmd.Process.Pid
			if err := proc.Terminate(a.cmd.Process); err == nil {
				select {
				case <-a.done:
				case <-time.After(5 * time.Second):
					proc.Kill(a.cmd.Process)
				}
			}
			proc.KillGroup(pid)
		}
	})
	return a.closeErr
}
