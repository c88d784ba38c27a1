package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/modelport/modelport/internal/config"
	"github.com/modelport/modelport/internal/ollama"
	"github.com/modelport/modelport/internal/proc"
	"github.com/modelport/modelport/internal/serve"
	"github.com/modelport/modelport/internal/tui"
	"github.com/modelport/modelport/internal/tunnel"
)

var (
	upPort            int
	upNoTunnel        bool
	upSkipPull        bool
	upContinueOnError bool
	upUseTUI          bool
)

var UpCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the server, pull models, and publish the tunnel",
	Long: `Runs the whole pipeline: starts 'ollama serve' in the background with the
CORS and bind overrides, pulls every configured model in order, opens the
public tunnel, prints the URL, and idles until interrupted.

Ctrl+C closes the tunnel and stops the server before exiting.`,
	RunE: runUp,
}

func init() {
	UpCmd.Flags().IntVar(&upPort, "port", 0, "Local port to serve and expose (default from config)")
	UpCmd.Flags().BoolVar(&upNoTunnel, "no-tunnel", false, "Skip the tunnel stage; serve locally only")
	UpCmd.Flags().BoolVar(&upSkipPull, "skip-pull", false, "Skip the pull stage; use whatever is in the local store")
	UpCmd.Flags().BoolVar(&upContinueOnError, "continue-on-error", false, "Keep pulling after a failed pull (overrides config)")
	UpCmd.Flags().BoolVar(&upUseTUI, "tui", false, "Show live progress UI instead of plain logs")
}

// serverLauncher is what the pipeline needs from the serve stage.
type serverLauncher interface {
	Start() error
	WaitReady(ctx context.Context) error
	Warmup(ctx context.Context, d time.Duration) error
	Name() string
	Stop() error
}

// modelPuller is what the pipeline needs from the fetch stage.
type modelPuller interface {
	PullAll(ctx context.Context, models []string, continueOnError bool) []ollama.PullResult
}

// pipeline wires the three stages together. Collaborators are interfaces so
// the sequencing can be tested without ollama or ngrok installed.
type pipeline struct {
	cfg      *config.Config
	launcher serverLauncher
	puller   modelPuller
	tun      tunnel.Tunnel
	reg      *proc.Registry

	noTunnel bool
	skipPull bool

	// sigCh delivers the interrupt that ends the idle wait.
	sigCh <-chan os.Signal

	// notify mirrors pipeline progress to the TUI. Nil in headless mode.
	notify func(msg any)

	// quiet suppresses log output (TUI mode owns the terminal).
	quiet bool
}

func runUp(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if upPort > 0 {
		cfg.Port = upPort
	}
	if cmd.Flags().Changed("continue-on-error") {
		cfg.ContinueOnError = upContinueOnError
	}

	if !upNoTunnel && cfg.AuthToken == "" {
		return fmt.Errorf("no tunnel authtoken configured. Run 'modelport auth <token>' first, or pass --no-tunnel")
	}
	if len(cfg.Models) == 0 && !upSkipPull {
		log.Println("⚠️  No models configured. Add some with 'modelport add <model>'")
	}

	env := ollama.OverrideEnv(cfg.Host, cfg.Port, cfg.Origins)
	client := ollama.NewClient(cfg.Port)

	launcher := &serve.Launcher{
		Bin:     cfg.OllamaBin,
		Env:     env,
		Port:    cfg.Port,
		LogPath: filepath.Join(config.LogDir(), "ollama.log"),
		Probe:   client,
	}
	puller := &ollama.Puller{
		Bin:    cfg.OllamaBin,
		Env:    env,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Verify: client,
	}

	agent := tunnel.NewAgent(cfg.NgrokBin, cfg.AuthToken)
	agent.Region = cfg.TunnelRegion
	agent.LogPath = filepath.Join(config.LogDir(), "ngrok.log")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	p := &pipeline{
		cfg:      cfg,
		launcher: launcher,
		puller:   puller,
		tun:      agent,
		reg:      proc.NewRegistry(),
		noTunnel: upNoTunnel,
		skipPull: upSkipPull,
		sigCh:    sigCh,
	}

	if upUseTUI {
		// The TUI owns stdout; pull progress goes to the log dir instead.
		puller.Stdout = nil
		puller.Stderr = nil
		if f, err := pullLogFile(); err == nil {
			defer f.Close()
			puller.Stdout = f
			puller.Stderr = f
		}
		return runUpTUI(p, sigCh)
	}
	return p.run(context.Background())
}

// pullLogFile opens the file that receives pull progress while the TUI owns
// the terminal.
func pullLogFile() (*os.File, error) {
	dir := config.LogDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "pull.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// runUpTUI runs the pipeline behind a live bubbletea view. Ctrl+C inside the
// TUI feeds the same interrupt path as a signal would.
func runUpTUI(p *pipeline, sigCh chan os.Signal) error {
	events := make(chan any, 32)
	p.notify = func(msg any) { events <- msg }
	p.quiet = true

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.run(context.Background())
		close(events)
	}()

	if err := tui.Run(p.cfg.Models, events, func() {
		sigCh <- os.Interrupt
	}); err != nil {
		return err
	}
	return <-errCh
}

// run executes the stages in order: start server, wait ready, pull models,
// open tunnel, idle until interrupt, then tear everything down.
func (p *pipeline) run(ctx context.Context) error {
	session := uuid.New().String()[:8]
	p.logf("🚀 Starting modelport (session %s)", session)
	p.logf("📍 Config: %s", config.GetConfigPath())

	defer p.reg.StopAll()

	// Stage 1: launcher.
	p.emit(tui.ServerStartingMsg{})
	if err := p.launcher.Start(); err != nil {
		return err
	}
	p.reg.Add(p.launcher)

	if err := p.waitServer(ctx); err != nil {
		if errors.Is(err, serve.ErrServerExited) {
			return fmt.Errorf("server failed to start: %w", err)
		}
		// Not ready in time is not fatal: pulls will surface the failure.
		p.logf("⚠️  %v, continuing anyway", err)
	}
	p.emit(tui.ServerReadyMsg{})

	// Stage 2: fetcher.
	if !p.skipPull && len(p.cfg.Models) > 0 {
		p.logf("⬇️  Pulling %d model(s). This can take a while...", len(p.cfg.Models))
		results := p.pullAll(ctx)
		for _, r := range results {
			if r.OK() {
				p.logf("✅ %s ready (%s)", r.Model, r.Duration.Round(time.Second))
			} else {
				p.logf("❌ %s failed: %v", r.Model, r.Err)
			}
		}
		if failed := ollama.Failed(results); len(failed) > 0 {
			if !p.cfg.ContinueOnError {
				return fmt.Errorf("pull failed for %s", strings.Join(failed, ", "))
			}
			p.logf("⚠️  %d pull(s) failed: %s", len(failed), strings.Join(failed, ", "))
		}
	}

	// Stage 3: tunnel publisher. Registered before Open: a failed Open can
	// still leave the agent process running, and Close must reach it.
	if !p.noTunnel {
		p.emit(tui.TunnelOpeningMsg{})
		p.reg.Add(tunnelStopper{p.tun})
		openCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		ep, err := p.tun.Open(openCtx, p.cfg.Port)
		cancel()
		if err != nil {
			p.emit(tui.TunnelErrorMsg{Err: err})
			p.logf("❌ Tunnel setup failed: %v", err)
			if p.cfg.ExitOnTunnelError {
				return fmt.Errorf("tunnel setup failed: %w", err)
			}
			// Original behavior: keep serving locally and idle anyway.
		} else {
			p.emit(tui.TunnelReadyMsg{URL: ep.PublicURL})
			p.printBanner(ep.PublicURL)
		}
	}

	// Idle until interrupt. The deferred StopAll closes the tunnel before
	// stopping the server.
	p.logf("💤 Running. Press Ctrl+C to stop.")
	<-p.sigCh
	p.emit(tui.ShutdownMsg{})
	p.logf("🛑 Shutting down...")
	p.reg.StopAll()
	p.logf("✅ Goodbye!")
	return nil
}

// waitServer gates the pull stage on server readiness. With polling disabled
// it falls back to the fixed warmup sleep.
func (p *pipeline) waitServer(ctx context.Context) error {
	if p.cfg.ReadyTimeoutSeconds <= 0 {
		d := time.Duration(p.cfg.WarmupSeconds) * time.Second
		p.logf("⏳ Waiting %s for the server to warm up...", d)
		return p.launcher.Warmup(ctx, d)
	}
	p.logf("⏳ Waiting for the server to become ready...")
	readyCtx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.ReadyTimeoutSeconds)*time.Second)
	defer cancel()
	return p.launcher.WaitReady(readyCtx)
}

// pullAll runs the pull stage, mirroring per-model progress to the TUI.
func (p *pipeline) pullAll(ctx context.Context) []ollama.PullResult {
	if p.notify == nil {
		return p.puller.PullAll(ctx, p.cfg.Models, p.cfg.ContinueOnError)
	}
	var results []ollama.PullResult
	for _, m := range p.cfg.Models {
		p.emit(tui.PullStartMsg{Model: m})
		rs := p.puller.PullAll(ctx, []string{m}, true)
		results = append(results, rs...)
		r := rs[len(rs)-1]
		p.emit(tui.PullDoneMsg{Model: r.Model, Err: r.Err, Duration: r.Duration})
		if !r.OK() && !p.cfg.ContinueOnError {
			break
		}
	}
	return results
}

func (p *pipeline) printBanner(url string) {
	if p.quiet {
		return
	}
	line := strings.Repeat("=", 50)
	fmt.Println()
	fmt.Println(line)
	fmt.Println("🔥 ALL MODELS READY! API address:")
	fmt.Println()
	fmt.Printf("👉 %s 👈\n", url)
	fmt.Println()
	if len(p.cfg.Models) > 0 {
		fmt.Printf("Available models: %s\n", strings.Join(p.cfg.Models, ", "))
	}
	fmt.Println(line)
}

func (p *pipeline) logf(format string, args ...any) {
	if p.quiet {
		return
	}
	log.Printf(format, args...)
}

func (p *pipeline) emit(msg any) {
	if p.notify != nil {
		p.notify(msg)
	}
}

// tunnelStopper adapts a Tunnel to the shutdown registry.
type tunnelStopper struct {
	t tunnel.Tunnel
}

func (s tunnelStopper) Name() string {
	return "tunnel"
}

func (s tunnelStopper) Stop() error {
	return s.t.Close()
}
