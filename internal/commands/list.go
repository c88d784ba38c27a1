package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/modelport/modelport/internal/config"
	"github.com/modelport/modelport/internal/ollama"
)

var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured models and whether each is installed",
	Long: `Shows the ordered pull list. When the local server is running, each model
is checked against the local store and its size is shown.`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(cfg.Models) == 0 {
		fmt.Println("📋 No models configured")
		fmt.Println()
		fmt.Println("Add one with: modelport add <model>")
		return nil
	}

	// Best effort: the server may not be running, in which case installed
	// state is unknown.
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	installed := map[string]ollama.Model{}
	reachable := false
	if tags, err := ollama.NewClient(cfg.Port).Tags(ctx); err == nil {
		reachable = true
		for _, m := range tags {
			installed[m.Name] = m
		}
	}

	fmt.Printf("📋 Configured models (%d):\n\n", len(cfg.Models))
	tbl := tablewriter.NewWriter(os.Stdout)
	tbl.Header("#", "Model", "Installed", "Size")
	for i, name := range cfg.Models {
		status, size := "unknown", "-"
		if reachable {
			if m, ok := lookupModel(installed, name); ok {
				status = "🟢 yes"
				size = formatSize(m.Size)
			} else {
				status = "🔴 no"
			}
		}
		tbl.Append([]string{fmt.Sprintf("%d", i+1), name, status, size})
	}
	_ = tbl.Render()

	if !reachable {
		fmt.Println()
		fmt.Printf("ℹ️  Server not reachable on port %d, installed state unknown. Run 'modelport up' first.\n", cfg.Port)
	}
	return nil
}

// lookupModel matches a configured name against store entries, tolerating a
// missing ":tag" suffix ("llama3" matches "llama3:latest").
func lookupModel(installed map[string]ollama.Model, name string) (ollama.Model, bool) {
	if m, ok := installed[name]; ok {
		return m, true
	}
	if m, ok := installed[name+":latest"]; ok {
		return m, true
	}
	return ollama.Model{}, false
}

func formatSize(bytes int64) string {
	const gb = 1 << 30
	const mb = 1 << 20
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.0f MB", float64(bytes)/mb)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
