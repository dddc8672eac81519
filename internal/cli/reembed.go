package cli

import (
	"context"
	"fmt"
	"io"

	"dira-go/internal/repository"
	"dira-go/internal/service"

	"github.com/spf13/cobra"
)

// reembedAll walks every report in id order and stores fresh embeddings, batch reports per provider call.
func reembedAll(ctx context.Context, reports repository.ReportRepository, duplicates service.DuplicateService, batch int, out io.Writer) (int, error) {
	total, after := 0, ""
	for {
		page, err := reports.ListAfter(ctx, after, batch)
		if err != nil {
			return total, fmt.Errorf("list reports: %w", err)
		}
		if len(page) == 0 {
			return total, nil
		}
		n, err := duplicates.EmbedReports(ctx, page)
		total += n
		if err != nil {
			return total, fmt.Errorf("embed reports after %q: %w", after, err)
		}
		after = page[len(page)-1].ID
		fmt.Fprintf(out, "embedded %d reports\n", total)
	}
}

func newReembedCmd() *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "reembed",
		Short: "Recompute the embedding of every report",
		Long:  `Reembed is needed after changing the embedding model or vector backend; stored vectors are overwritten.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if batch < 1 {
				return fmt.Errorf("--batch must be positive")
			}
			ctx := context.Background()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()

			total, err := reembedAll(ctx, a.reports, a.duplicates, batch, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Done: %d reports embedded\n", total)
			return nil
		},
	}

	cmd.Flags().IntVar(&batch, "batch", 32, "reports per embedding request")
	return cmd
}
