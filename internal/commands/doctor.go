package commands

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/modelport/modelport/internal/config"
	"github.com/modelport/modelport/internal/sysinfo"
)

var DoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the host before serving",
	Long:  `Checks that the required binaries are installed and that the host has enough memory for the configured models.`,
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("🩺 modelport doctor")
	fmt.Println()

	ok := true
	for _, bin := range []string{cfg.OllamaBin, cfg.NgrokBin} {
		if path, err := exec.LookPath(bin); err == nil {
			fmt.Printf("✅ %s: %s\n", bin, path)
		} else {
			fmt.Printf("❌ %s: not found in PATH\n", bin)
			ok = false
		}
	}
	fmt.Println()

	specs, err := sysinfo.Detect()
	if err != nil {
		return fmt.Errorf("failed to detect system specs: %w", err)
	}
	fmt.Printf("🖥️  Host: %s/%s, %d cores\n", specs.OS, specs.Arch, specs.CPUCores)
	fmt.Printf("🧠 RAM: %.1f GB total, %.1f GB available\n", specs.TotalRAMGB, specs.AvailableRAMGB)

	if warn := specs.RAMWarning(len(cfg.Models)); warn != "" {
		fmt.Printf("⚠️  %s\n", warn)
		ok = false
	}

	fmt.Println()
	if !ok {
		return fmt.Errorf("doctor found problems, fix them before running 'modelport up'")
	}
	fmt.Println("✅ All checks passed")
	return nil
}
