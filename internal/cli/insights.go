package cli

import (
	"fmt"

	"github.com/ogulcanaydogan/pulse-guardian/pkg/classifier"
	"github.com/spf13/cobra"
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Analyse self-reported vitals",
	Long: `Analyse a set of self-reported vitals. Only the first metric supplied is
considered, in the order heart rate, SpO2, sleep, blood pressure.`,
	RunE: runInsights,
}

func init() {
	rootCmd.AddCommand(insightsCmd)

	insightsCmd.Flags().Int("heart-rate", 0, "Heart rate (bpm)")
	insightsCmd.Flags().Int("spo2", 0, "Blood oxygen saturation (%)")
	insightsCmd.Flags().Float64("sleep", 0, "Hours slept")
	insightsCmd.Flags().IntP("systolic", "s", 0, "Systolic pressure (mmHg)")
	insightsCmd.Flags().IntP("diastolic", "d", 0, "Diastolic pressure (mmHg)")
}

func runInsights(cmd *cobra.Command, _ []string) error {
	var e classifier.ManualEntry
	e.HeartRate, _ = cmd.Flags().GetInt("heart-rate")
	e.SpO2, _ = cmd.Flags().GetInt("spo2")
	e.SleepHours, _ = cmd.Flags().GetFloat64("sleep")
	e.Systolic, _ = cmd.Flags().GetInt("systolic")
	e.Diastolic, _ = cmd.Flags().GetInt("diastolic")

	in := classifier.Analyze(e)
	fmt.Printf("%s\n%s\n", in.Title, in.Summary)
	if len(in.Recommendations) > 0 {
		fmt.Printf("\nRecommendations:\n")
		for _, rec := range in.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
	return nil
}
