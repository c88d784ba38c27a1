// Package serve owns the background 'ollama serve' process: start, readiness,
// exit observation, and shutdown.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/modelport/modelport/internal/proc"
)

// ErrServerExited means the serve process died before becoming ready.
var ErrServerExited = errors.New("serve process exited before becoming ready")

// ErrReadyTimeout means the local API did not come up within the ready window.
var ErrReadyTimeout = errors.New("server did not become ready in time")

// VersionProber is the readiness probe against the local API.
// ollama.Client satisfies this; tests inject fakes.
type VersionProber interface {
	Version(ctx context.Context) (string, error)
}

// Launcher starts and owns one 'ollama serve' subprocess.
type Launcher struct {
	Bin     string
	Env     []string
	Port    int
	LogPath string

	// Probe confirms the HTTP API answers once the TCP port accepts.
	Probe VersionProber

	cmd      *exec.Cmd
	logFile  *os.File
	done     chan struct{}
	exitErr  error
	exitCode int
}

// Start launches the serve process in the background and returns immediately.
// Output goes to LogPath; the process is detached into its own group so the
// shutdown path can take down any children it spawned.
func (l *Launcher) Start() error {
	if l.cmd != nil {
		return fmt.Errorf("serve process already started")
	}

	cmd := exec.Command(l.Bin, "serve")
	cmd.Env = l.Env
	proc.Detach(cmd)

	if l.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(l.LogPath), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(l.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open server log: %w", err)
		}
		l.logFile = f
		cmd.Stdout = f
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		if l.logFile != nil {
			l.logFile.Close()
		}
		return fmt.Errorf("failed to start %s serve: %w", l.Bin, err)
	}

	l.cmd = cmd
	l.done = make(chan struct{})

	go func() {
		err := cmd.Wait()
		if err != nil {
			l.exitErr = err
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				l.exitCode = exitErr.ExitCode()
			} else {
				l.exitCode = -1
			}
		}
		if l.logFile != nil {
			l.logFile.Close()
		}
		close(l.done)
	}()

	return nil
}

// Done is closed when the serve process exits, expectedly or not.
func (l *Launcher) Done() <-chan struct{} {
	return l.done
}

// WaitReady blocks until the server answers on its port and API, the process
// dies, or ctx expires. It replaces the original fixed warmup sleep with an
// observable readiness signal.
func (l *Launcher) WaitReady(ctx context.Context) error {
	addr := fmt.Sprintf("127.0.0.1:%d", l.Port)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			if l.exitErr != nil {
				return fmt.Errorf("%w: exit code %d", ErrServerExited, l.exitCode)
			}
			return ErrServerExited
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrReadyTimeout, ctx.Err())
		case <-ticker.C:
			conn, err := net.DialTimeout("tcp", addr, time.Second)
			if err != nil {
				continue
			}
			conn.Close()
			if l.Probe == nil {
				return nil
			}
			if _, err := l.Probe.Version(ctx); err == nil {
				return nil
			}
		}
	}
}

// Warmup is the fallback readiness heuristic: a fixed sleep, interruptible by
// ctx or by the process dying. Used when readiness polling is disabled.
func (l *Launcher) Warmup(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-l.done:
		if l.exitErr != nil {
			return fmt.Errorf("%w: exit code %d", ErrServerExited, l.exitCode)
		}
		return ErrServerExited
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Name identifies the process in the shutdown registry.
func (l *Launcher) Name() string {
	return "ollama serve"
}

// Stop terminates the serve process: SIGTERM first, SIGKILL after a grace
// period, then the whole process group.
func (l *Launcher) Stop() error {
	if l.cmd == nil || l.cmd.Process == nil {
		return nil
	}
	select {
	case <-l.done:
		return nil
	default:
	}

	pid := l.cmd.Process.Pid
	if err := proc.Terminate(l.cmd.Process); err != nil {
		return nil // already gone
	}

	select {
	case <-l.done:
	case <-time.After(5 * time.Second):
		proc.Kill(l.cmd.Process)
		select {
		case <-l.done:
		case <-time.After(3 * time.Second):
		}
	}

	proc.KillGroup(pid)
	return nil
}
