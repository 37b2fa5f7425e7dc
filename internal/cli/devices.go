package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ogulcanaydogan/pulse-guardian/pkg/wearable"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Inspect paired wearable devices",
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List devices from the catalogue",
	RunE:  runDevicesList,
}

var devicesPollCmd = &cobra.Command{
	Use:   "poll <id>",
	Short: "Fetch one reading from a device",
	Args:  cobra.ExactArgs(1),
	RunE:  runDevicesPoll,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.AddCommand(devicesListCmd, devicesPollCmd)
}

func runDevicesList(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	registry, err := initRegistry(cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tTYPE\n")
	for _, d := range registry.List() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.Name, d.Type)
	}
	return w.Flush()
}

func runDevicesPoll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := initApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	source := wearable.NewSimulatedSource(cfg.Wearable.FailureRate, cfg.Wearable.Latency, uint64(time.Now().UnixNano()))
	poller := wearable.NewPoller(a.registry, source, a.readings, a.bus, a.pipeline, cfg.Wearable.PollInterval, a.logger)

	err = poller.PollOnce(cmd.Context(), currentUser(cfg), args[0])
	a.pipeline.Flush()
	if err != nil {
		return fmt.Errorf("poll device: %w", err)
	}

	fmt.Printf("Synced reading from %s\n", args[0])
	return nil
}
