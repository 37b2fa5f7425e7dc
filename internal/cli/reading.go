package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ogulcanaydogan/pulse-guardian/pkg/classifier"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/model"
	"github.com/ogulcanaydogan/pulse-guardian/pkg/readings"
	"github.com/spf13/cobra"
)

var readingCmd = &cobra.Command{
	Use:   "reading",
	Short: "Record and inspect blood pressure readings",
}

var readingAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a blood pressure reading manually",
	Long: `Record a single blood pressure reading. The reading is classified and any
resulting alert is added to the user's notification feed before the command exits.`,
	RunE: runReadingAdd,
}

var readingListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show reading history",
	RunE:  runReadingList,
}

var readingDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a reading",
	Args:  cobra.ExactArgs(1),
	RunE:  runReadingDelete,
}

func init() {
	rootCmd.AddCommand(readingCmd)
	readingCmd.AddCommand(readingAddCmd, readingListCmd, readingDeleteCmd)

	readingAddCmd.Flags().IntP("systolic", "s", 0, "Systolic pressure (mmHg)")
	readingAddCmd.Flags().IntP("diastolic", "d", 0, "Diastolic pressure (mmHg)")
	readingAddCmd.Flags().String("notes", "", "Free-form notes")
	readingAddCmd.Flags().String("device", "", "Device id the reading came from")
	_ = readingAddCmd.MarkFlagRequired("systolic")
	_ = readingAddCmd.MarkFlagRequired("diastolic")

	readingListCmd.Flags().String("source", "", "Filter by source (manual, device)")
	readingListCmd.Flags().IntP("limit", "n", 20, "Maximum readings to show")
	readingListCmd.Flags().Int("window", readings.DefaultStatsWindow, "Number of recent readings to average")
}

func runReadingAdd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	systolic, _ := cmd.Flags().GetInt("systolic")
	diastolic, _ := cmd.Flags().GetInt("diastolic")
	notes, _ := cmd.Flags().GetString("notes")
	device, _ := cmd.Flags().GetString("device")

	a, err := initApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	source := model.SourceManual
	if device != "" {
		source = model.SourceDevice
	}

	r, err := a.readings.Record(cmd.Context(), readings.Entry{
		UserID:    currentUser(cfg),
		DeviceID:  device,
		Systolic:  systolic,
		Diastolic: diastolic,
		Notes:     notes,
		Source:    source,
	})
	if err != nil {
		return fmt.Errorf("record reading: %w", err)
	}
	a.pipeline.Flush()

	status := classifier.Classify(r.Systolic, r.Diastolic)
	fmt.Printf("Recorded reading:\n")
	fmt.Printf("  ID:       %s\n", r.ID)
	fmt.Printf("  Reading:  %d/%d mmHg\n", r.Systolic, r.Diastolic)
	fmt.Printf("  Date:     %s %s\n", r.Date, r.Time)
	fmt.Printf("  Status:   %s\n", status.Message)
	if alert, ok := classifier.AlertFor(r.Systolic, r.Diastolic); ok {
		fmt.Printf("  Alert:    %s\n", alert.Title)
	}

	return nil
}

func runReadingList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	source, _ := cmd.Flags().GetString("source")
	limit, _ := cmd.Flags().GetInt("limit")
	window, _ := cmd.Flags().GetInt("window")

	a, err := initApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.readings.History(cmd.Context(), model.ReadingFilter{
		UserID: currentUser(cfg),
		Source: model.ReadingSource(source),
		Limit:  limit,
	})
	if err != nil {
		return fmt.Errorf("list readings: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No readings recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "DATE\tTIME\tREADING\tSTATUS\tSOURCE\tID\n")
	for _, r := range list {
		status := classifier.Classify(r.Systolic, r.Diastolic)
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%s\t%s\n",
			r.Date, r.Time, r.Systolic, r.Diastolic, status.Category, r.Source, r.ID)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stats, err := a.readings.Stats(cmd.Context(), currentUser(cfg), window)
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}
	fmt.Printf("\nLatest:   %d/%d mmHg (%s)\n", stats.Latest.Systolic, stats.Latest.Diastolic, stats.Status.Message)
	fmt.Printf("Average:  %d/%d mmHg over last %d\n", stats.AvgSystolic, stats.AvgDiastolic, stats.Window)
	fmt.Printf("Total:    %d readings\n", stats.Count)
	return nil
}

func runReadingDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := initApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.readings.Delete(cmd.Context(), currentUser(cfg), args[0]); err != nil {
		return fmt.Errorf("delete reading: %w", err)
	}
	fmt.Printf("Deleted reading %s\n", args[0])
	return nil
}
