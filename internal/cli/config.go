package cli

import (
	"fmt"

	"dira-go/internal/config"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("configuration is invalid: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration is valid: %s\n", cfgFile)
			fmt.Fprintf(out, "  - Database: %s\n", cfg.Database.Driver)
			fmt.Fprintf(out, "  - Vector backend: %s\n", cfg.Vector.Backend)
			fmt.Fprintf(out, "  - Embedding: %s (%s, %d dims)\n", cfg.Embedding.Primary.Provider, cfg.Embedding.Primary.Model, cfg.Embedding.Dimensions)
			fmt.Fprintf(out, "  - Duplicate threshold: %.2f (duplicate at %.2f)\n", cfg.Duplicate.Threshold, cfg.Duplicate.DuplicateThreshold)
			return nil
		},
	})
	return cmd
}
