package cli

import (
	"fmt"
	"strconv"

	"github.com/ogulcanaydogan/pulse-guardian/pkg/classifier"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <systolic> <diastolic>",
	Short: "Classify a blood pressure reading without recording it",
	Args:  cobra.ExactArgs(2),
	RunE:  runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(_ *cobra.Command, args []string) error {
	systolic, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid systolic value %q", args[0])
	}
	diastolic, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid diastolic value %q", args[1])
	}

	status := classifier.Classify(systolic, diastolic)
	fmt.Printf("Reading:  %d/%d mmHg\n", systolic, diastolic)
	fmt.Printf("Category: %s\n", status.Category)
	fmt.Printf("Status:   %s\n", status.Message)

	if alert, ok := classifier.AlertFor(systolic, diastolic); ok {
		fmt.Printf("Alert:    %s (%s)\n", alert.Title, alert.Message)
	}

	fmt.Printf("\nRecommendations:\n")
	for _, rec := range classifier.Recommendations(systolic, diastolic) {
		fmt.Printf("  - %s\n", rec)
	}
	return nil
}
