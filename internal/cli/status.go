package cli

import (
	"fmt"

	"github.com/forgeai-dev/ForgeAI-sub001/internal/config"
	"github.com/forgeai-dev/ForgeAI-sub001/internal/daemon"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a forged daemon is running",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	lifecycle := daemon.NewLifecycleManager(cfg.DataDir, zerolog.Nop())

	if !lifecycle.IsRunning() {
		cmd.Println("forged is not running")
		return nil
	}

	pid, err := lifecycle.GetPID()
	if err != nil {
		return err
	}

	cmd.Printf("forged is running (pid %d, gateway port %d)\n", pid, cfg.Gateway.Port)
	return nil
}
