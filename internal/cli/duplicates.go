package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"dira-go/internal/model"
	"dira-go/internal/service"

	"github.com/spf13/cobra"
)

func printCandidates(out io.Writer, candidates []model.ReportCandidate) {
	if len(candidates) == 0 {
		fmt.Fprintln(out, "No duplicates found")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tID\tSTATUS\tTITLE")
	for _, c := range candidates {
		fmt.Fprintf(w, "%.4f\t%s\t%s\t%s\n", c.SimilarityScore, c.ID, c.Status, c.Title)
	}
	_ = w.Flush()
}

func newDuplicatesCmd() *cobra.Command {
	var (
		threshold float64
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "duplicates <report-id>",
		Short: "List stored reports similar to a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.Duplicate.Threshold
			}
			a, err := newApp(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.reports.FindByID(ctx, args[0])
			if err != nil {
				return fmt.Errorf("find report %s: %w", args[0], err)
			}
			candidates, err := a.duplicates.FindDuplicates(ctx, service.DuplicateQuery{
				Title:       report.Title,
				Description: report.Description,
				ExcludeID:   report.ID,
				Threshold:   threshold,
				Limit:       limit,
			})
			if err != nil {
				return err
			}
			printCandidates(cmd.OutOrStdout(), candidates)
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum similarity (defaults to duplicate.threshold)")
	cmd.Flags().IntVar(&limit, "limit", service.DefaultLimit, "maximum number of candidates")
	return cmd
}
