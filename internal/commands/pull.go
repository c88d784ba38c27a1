package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/modelport/modelport/internal/config"
	"github.com/modelport/modelport/internal/ollama"
)

var pullContinueOnError bool

var PullCmd = &cobra.Command{
	Use:   "pull [model...]",
	Short: "Pull models without starting the tunnel",
	Long: `Runs the fetch stage on its own against an already-running server. With no
arguments the configured pull list is used; otherwise only the named models
are pulled, in the given order.`,
	RunE: runPull,
}

func init() {
	PullCmd.Flags().BoolVar(&pullContinueOnError, "continue-on-error", false, "Keep pulling after a failed pull (overrides config)")
}

func runPull(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	continueOnError := cfg.ContinueOnError
	if cmd.Flags().Changed("continue-on-error") {
		continueOnError = pullContinueOnError
	}

	models := args
	if len(models) == 0 {
		models = cfg.Models
	}
	if len(models) == 0 {
		return fmt.Errorf("no models to pull. Add some with 'modelport add <model>'")
	}

	client := ollama.NewClient(cfg.Port)
	ctx := context.Background()
	if _, err := client.Version(ctx); err != nil {
		return fmt.Errorf("server not running on port %d: %w. Start it with 'modelport up'", cfg.Port, err)
	}

	puller := &ollama.Puller{
		Bin:    cfg.OllamaBin,
		Env:    ollama.OverrideEnv(cfg.Host, cfg.Port, cfg.Origins),
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Verify: client,
	}

	log.Printf("⬇️  Pulling %d model(s)...", len(models))
	results := puller.PullAll(ctx, models, continueOnError)
	for _, r := range results {
		if r.OK() {
			log.Printf("✅ %s ready (%s)", r.Model, r.Duration.Round(time.Second))
		} else {
			log.Printf("❌ %s failed: %v", r.Model, r.Err)
		}
	}

	if failed := ollama.Failed(results); len(failed) > 0 {
		return fmt.Errorf("pull failed for %s", strings.Join(failed, ", "))
	}
	return nil
}
