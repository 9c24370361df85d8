package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"calibboard/internal/storage"
)

var (
	runsLimit int
	runsJSON  bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent ingestion runs",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 0, "maximum runs to list (default RUN_HISTORY_LIMIT)")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "print runs as JSON")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, _ []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}
	if err := cfg.Require("DB_PATH", cfg.DBPath); err != nil {
		return err
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer db.Close()

	limit := cfg.RunHistoryLimit
	if runsLimit > 0 {
		limit = runsLimit
	}
	runs, err := db.ListRuns(limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tTRACE\tSTATUS\tSOURCES\tACCEPTED\tDROPPED\tERROR")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.CreatedAt, r.TraceID, r.Status, len(r.Sources), r.Counts["accepted"], r.Counts["dropped"], r.Error)
	}
	return tw.Flush()
}
