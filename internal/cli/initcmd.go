package cli

import (
	"fmt"
	"os"

	"github.com/forgeai-dev/ForgeAI-sub001/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a starter config file with default routes. Fill in your
provider API keys before running serve.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(cfgFile)
	path := loader.GetConfigPath()

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	cfg := config.DefaultConfig()
	cfg.Providers = []config.ProviderConfig{
		{Name: "anthropic", APIKey: ""},
		{Name: "openai", APIKey: ""},
	}

	if err := loader.Save(cfg); err != nil {
		return err
	}

	cmd.Printf("Config written to %s\n", path)
	return nil
}
