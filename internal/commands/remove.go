package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelport/modelport/internal/config"
)

var RemoveCmd = &cobra.Command{
	Use:   "remove [model]",
	Short: "Remove a model from the pull list",
	Long:  `Removes a model identifier from the pull list. The local store is untouched.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.RemoveModel(name); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("✅ Removed model: %s\n", name)
	fmt.Printf("Pull list now has %d model(s).\n", len(cfg.Models))
	return nil
}
