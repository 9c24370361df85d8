package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"calibboard/internal"
	"calibboard/internal/pipeline"
	"calibboard/internal/storage"
	"calibboard/internal/view"
	"calibboard/internal/workingset"
)

var (
	filterSubsystem   string
	filterSearch      string
	filterLocation    string
	filterCalibration string
	exportPath        string
	listRecords       bool
	noHistory         bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest FILES...",
	Short: "Load spreadsheets once and print KPIs for a filtered view",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&filterSubsystem, "subsystem", "", "exact subsystem to keep")
	ingestCmd.Flags().StringVar(&filterSearch, "search", "", "case-insensitive text to find in tag or description")
	ingestCmd.Flags().StringVar(&filterLocation, "location", "", "exact location to keep")
	ingestCmd.Flags().StringVar(&filterCalibration, "calibration", "", "ANY, REQUIRED, NOT_REQUIRED, COMPLETED or PENDING")
	ingestCmd.Flags().StringVar(&exportPath, "export", "", "write the filtered view and KPIs to this xlsx file (bare names go under OUTPUT_DIR)")
	ingestCmd.Flags().BoolVar(&listRecords, "list", false, "print the filtered records")
	ingestCmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record the run in the history database")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	disposition, err := view.ParseDisposition(filterCalibration)
	if err != nil {
		return err
	}
	criteria := internal.FilterCriteria{
		Subsystem:   filterSubsystem,
		Search:      filterSearch,
		Location:    filterLocation,
		Calibration: disposition,
	}

	var db *storage.DB
	if !noHistory {
		db, err = storage.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening run history: %w", err)
		}
		defer db.Close()
	}

	sources, err := pipeline.SourcesFromPaths(args)
	if err != nil {
		return err
	}

	store := workingset.New()
	svc := pipeline.NewLoadService(pipeline.NewAggregatorFromConfig(cfg, log), store, db, log)
	res, err := svc.Load(context.Background(), sources)
	printSources(cmd.OutOrStdout(), res.Sources)
	if err != nil {
		return err
	}

	filtered := view.Filter(store.Snapshot().Records, criteria)
	summary := view.Summarize(filtered)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nloaded %d records (%d rows dropped), run %s\n\n", res.Accepted, res.Dropped, res.TraceID)
	printKPIs(out, summary)
	if listRecords {
		fmt.Fprintln(out)
		printRecords(out, filtered)
	}

	if exportPath != "" {
		path := exportTarget(exportPath, cfg.OutputDir)
		if err := pipeline.ExportRecordsToXLSX(filtered, summary, path); err != nil {
			return fmt.Errorf("exporting: %w", err)
		}
		fmt.Fprintf(out, "\nexported %d records to %s\n", len(filtered), path)
	}
	return nil
}

// exportTarget places a bare file name under OUTPUT_DIR; paths with a
// directory part are used as given.
func exportTarget(path, outputDir string) string {
	if outputDir == "" || filepath.IsAbs(path) || filepath.Base(path) != path {
		return path
	}
	return filepath.Join(outputDir, path)
}

func printSources(w io.Writer, reports []internal.SourceReport) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tDECODER\tROWS\tACCEPTED\tDROPPED\tERROR")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", r.Name, r.Decoder, r.Rows, r.Accepted, r.Dropped, r.Error)
	}
	_ = tw.Flush()
}

func printKPIs(w io.Writer, s internal.KPISummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "total\t%d\n", s.Total)
	fmt.Fprintf(tw, "missing tag\t%d\n", s.MissingTag)
	fmt.Fprintf(tw, "calibration required\t%d\n", s.Required)
	fmt.Fprintf(tw, "calibration completed\t%d\n", s.Completed)
	fmt.Fprintf(tw, "outstanding\t%d\n", s.Outstanding)
	fmt.Fprintf(tw, "completion\t%d%%\n", s.CompletionPercent)
	_ = tw.Flush()
}

func printRecords(w io.Writer, records []internal.CanonicalRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SUBSYSTEM\tTAG\tDESCRIPTION\tLOCATION\tREQUIRED\tSTATUS")
	for _, r := range records {
		tag := r.Tag
		if r.MissingTag() {
			tag = "(pending)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Subsystem, tag, r.Description, r.Location, r.CalibrationRequired, r.CalibrationStatus)
	}
	_ = tw.Flush()
}
