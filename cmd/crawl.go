package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kaykas/booth-beacon-app-sub000/internal/pipeline"
)

// newCrawlCmd creates the 'crawl' subcommand, which runs one crawl pass
// over the due sources and prints a run summary.
func newCrawlCmd() *cobra.Command {
	var (
		sourceName string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Runs one crawl pass over the registered sources",
		Long: `Crawls every enabled source that is due, resuming each from its stored
cursor. The pass stops cleanly when the execution budget runs out; the next
invocation continues where this one stopped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			report, err := appInstance.Pipeline().Run(cmd.Context(), pipeline.Options{
				SourceName: sourceName,
				Force:      force,
			})
			if err != nil && !errors.Is(err, cmd.Context().Err()) {
				return fmt.Errorf("run crawl: %w", err)
			}

			printReport(cmd, report)
			appInstance.Logger().Info("crawl command finished",
				zap.String("run_id", report.RunID),
				zap.Bool("timed_out", report.TimedOut),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceName, "source", "", "crawl only the source with this exact name")
	cmd.Flags().BoolVar(&force, "force", false, "recrawl completed sources from the first page")

	return cmd
}

func printReport(cmd *cobra.Command, report pipeline.RunReport) {
	cmd.Printf("run %s: %d pages, %d extracted, %d upserted\n",
		report.RunID, report.Pages, report.Extracted, report.Upserted)
	for _, sr := range report.Sources {
		line := fmt.Sprintf("  %-30s %-10s pages=%d extracted=%d upserted=%d",
			sr.Source, sr.Outcome, sr.Stats.Pages, sr.Stats.Extracted, sr.Stats.Upserted)
		if sr.Note != "" {
			line += " (" + sr.Note + ")"
		}
		cmd.Println(line)
	}
	if report.TimedOut {
		cmd.Println("execution budget exhausted; rerun to continue from stored cursors")
	}
}
