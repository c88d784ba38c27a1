package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/modelport/modelport/internal/config"
	"github.com/modelport/modelport/internal/ollama"
)

var StatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and server status",
	Long:  `Displays the current configuration, whether the local server answers, and what is in its store.`,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("📊 modelport status")
	fmt.Println()

	if cfg.AuthToken != "" {
		fmt.Printf("🔐 Tunnel authtoken: ✅ configured (%s)\n", maskToken(cfg.AuthToken))
	} else {
		fmt.Println("🔐 Tunnel authtoken: ❌ not configured")
		fmt.Println("   Run 'modelport auth <token>' to set it")
	}
	fmt.Println()

	fmt.Printf("🌐 Endpoint: %s:%d (origins: %s)\n", cfg.Host, cfg.Port, cfg.Origins)
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	client := ollama.NewClient(cfg.Port)
	if version, err := client.Version(ctx); err == nil {
		fmt.Printf("🖥️  Server: 🟢 running (ollama %s)\n", version)
		if tags, err := client.Tags(ctx); err == nil {
			fmt.Printf("   %d model(s) in the local store\n", len(tags))
		}
	} else {
		fmt.Println("🖥️  Server: 🔴 not running")
	}
	fmt.Println()

	fmt.Printf("📦 Pull list: %d model(s)\n", len(cfg.Models))
	for i, m := range cfg.Models {
		fmt.Printf("   %d. %s\n", i+1, m)
	}
	fmt.Println()

	fmt.Printf("📁 Config file: %s\n", config.GetConfigPath())

	if cfg.AuthToken == "" {
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("1. Authenticate: modelport auth <token>")
	} else if len(cfg.Models) == 0 {
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("1. Add models: modelport add <model>")
	} else {
		fmt.Println()
		fmt.Println("✅ Ready to go!")
		fmt.Println("   Run: modelport up")
	}

	return nil
}
