package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Defaults for a fresh config. DefaultPort is Ollama's standard API port.
const (
	DefaultPort         = 11434
	DefaultHost         = "0.0.0.0"
	DefaultOrigins      = "*"
	DefaultOllamaBin    = "ollama"
	DefaultNgrokBin     = "ngrok"
	DefaultReadySeconds = 60
	DefaultWarmupSecs   = 10
)

// Config represents the application configuration
type Config struct {
	// Tunnel provider authtoken (ngrok). Required for 'up' unless --no-tunnel.
	AuthToken string `yaml:"auth_token" mapstructure:"auth_token"`

	// Ordered list of models to pull before the tunnel opens.
	Models []string `yaml:"models" mapstructure:"models"`

	// Local serving endpoint. Host and Origins are exported into the child
	// environment as OLLAMA_HOST / OLLAMA_ORIGINS; they are never read back.
	Port    int    `yaml:"port" mapstructure:"port"`
	Host    string `yaml:"host" mapstructure:"host"`
	Origins string `yaml:"origins" mapstructure:"origins"`

	// Binaries to invoke. Plain names resolve via PATH.
	OllamaBin string `yaml:"ollama_bin" mapstructure:"ollama_bin"`
	NgrokBin  string `yaml:"ngrok_bin" mapstructure:"ngrok_bin"`

	// ReadyTimeoutSeconds bounds the readiness poll after starting the server.
	// 0 disables polling and falls back to a fixed WarmupSeconds sleep.
	ReadyTimeoutSeconds int `yaml:"ready_timeout_seconds" mapstructure:"ready_timeout_seconds"`
	WarmupSeconds       int `yaml:"warmup_seconds" mapstructure:"warmup_seconds"`

	// ContinueOnError keeps pulling remaining models after a failed pull.
	ContinueOnError bool `yaml:"continue_on_error" mapstructure:"continue_on_error"`

	// ExitOnTunnelError exits instead of idling when the tunnel cannot open.
	ExitOnTunnelError bool `yaml:"exit_on_tunnel_error" mapstructure:"exit_on_tunnel_error"`

	// Optional ngrok region (us, eu, ap, au, sa, jp, in).
	TunnelRegion string `yaml:"tunnel_region,omitempty" mapstructure:"tunnel_region"`
}

var (
	configPath string
	configDir  string
)

func init() {
	// When running under sudo, os.UserHomeDir() returns /root.
	// Check SUDO_USER to resolve the real user's home directory.
	var home string
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			home = u.HomeDir
		}
	}
	if home == "" {
		var err error
		home, err = os.UserHomeDir()
		if err != nil {
			panic(fmt.Sprintf("failed to get home directory: %v", err))
		}
	}

	configDir = filepath.Join(home, ".modelport")
	configPath = filepath.Join(configDir, "config.yaml")
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	return configPath
}

// GetConfigDir returns the config directory
func GetConfigDir() string {
	return configDir
}

// LogDir returns the directory for redirected child-process output.
func LogDir() string {
	return filepath.Join(configDir, "logs")
}

// SetDirForTest points the config at dir for the duration of a test.
func SetDirForTest(dir string) {
	configDir = dir
	configPath = filepath.Join(dir, "config.yaml")
}

// Default returns a fresh config with all defaults applied.
func Default() *Config {
	return &Config{
		Models:              []string{},
		Port:                DefaultPort,
		Host:                DefaultHost,
		Origins:             DefaultOrigins,
		OllamaBin:           DefaultOllamaBin,
		NgrokBin:            DefaultNgrokBin,
		ReadyTimeoutSeconds: DefaultReadySeconds,
		WarmupSeconds:       DefaultWarmupSecs,
		ContinueOnError:     true,
	}
}

// Load loads the configuration from file
func Load() (*Config, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// First run: write a default config so the user has a file to edit.
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		defaultConfig := Default()
		if err := Save(defaultConfig); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return defaultConfig, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyFallbacks()

	return cfg, nil
}

// Save saves the configuration to file
func Save(cfg *Config) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The authtoken lives here, so keep the file private.
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyFallbacks fills zero values left by hand-edited config files.
func (c *Config) applyFallbacks() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Origins == "" {
		c.Origins = DefaultOrigins
	}
	if c.OllamaBin == "" {
		c.OllamaBin = DefaultOllamaBin
	}
	if c.NgrokBin == "" {
		c.NgrokBin = DefaultNgrokBin
	}
}

// AddModel appends a model to the pull list, keeping order and ignoring
// duplicates. Returns false if the model was already configured.
func (c *Config) AddModel(name string) bool {
	for _, m := range c.Models {
		if m == name {
			return false
		}
	}
	c.Models = append(c.Models, name)
	return true
}

// RemoveModel removes a model from the pull list by name.
func (c *Config) RemoveModel(name string) error {
	for i, m := range c.Models {
		if m == name {
			c.Models = append(c.Models[:i], c.Models[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("model %s not found", name)
}

// HasModel reports whether a model is in the pull list.
func (c *Config) HasModel(name string) bool {
	for _, m := range c.Models {
		if m == name {
			return true
		}
	}
	return false
}
