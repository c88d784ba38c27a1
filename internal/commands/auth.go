package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modelport/modelport/internal/config"
)

var AuthCmd = &cobra.Command{
	Use:   "auth [token]",
	Short: "Store the tunnel provider authtoken",
	Long: `Stores your ngrok authtoken in the config file. The token is passed to the
agent via its environment at run time; it is never written anywhere else.

Get a token at https://dashboard.ngrok.com/get-started/your-authtoken`,
	Args: cobra.ExactArgs(1),
	RunE: runAuth,
}

func runAuth(cmd *cobra.Command, args []string) error {
	token := strings.TrimSpace(args[0])
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cfg.AuthToken = token
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("✅ Authtoken saved (%s)\n", maskToken(token))
	fmt.Printf("📁 Config: %s\n", config.GetConfigPath())
	return nil
}

// maskToken keeps just enough of the token to recognize it.
func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
