package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelport/modelport/internal/config"
)

var AddCmd = &cobra.Command{
	Use:   "add [model...]",
	Short: "Add models to the pull list",
	Long: `Adds one or more model identifiers to the ordered pull list. Models are
pulled in list order when you run 'modelport up' or 'modelport pull'.

Examples:
  modelport add qwen2.5:14b
  modelport add gpt-oss:20b llama3.2:3b`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	added := 0
	for _, name := range args {
		if cfg.AddModel(name) {
			fmt.Printf("✅ Added model: %s\n", name)
			added++
		} else {
			fmt.Printf("ℹ️  Already configured: %s\n", name)
		}
	}

	if added > 0 {
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}

	fmt.Println()
	fmt.Printf("Pull list now has %d model(s). Run 'modelport up' to serve them.\n", len(cfg.Models))
	return nil
}
