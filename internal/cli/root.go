// Package cli implements the dira admin commands.
package cli

import (
	"os"

	"dira-go/internal/config"
	"dira-go/pkg/log"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "dira",
	Short: "Dira admin tool",
	Long: `dira manages a Dira deployment: it seeds the organisations reports are routed to,
re-embeds stored reports after a model change and checks a report for duplicates.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	defaultConfig := os.Getenv("DIRA_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "./configs/config.yaml"
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfig, "config file path")

	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newReembedCmd())
	rootCmd.AddCommand(newDuplicatesCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// loadConfig reads the config and sets up console logging.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, err
	}
	log.Init(cfg.Log.Level, "console", "")
	return cfg, nil
}
