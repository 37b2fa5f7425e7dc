package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ogulcanaydogan/pulse-guardian/pkg/notify"
	"github.com/spf13/cobra"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notif"},
	Short:   "Inspect and manage the notification feed",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the notification feed, newest first",
	RunE:  runNotificationsList,
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotificationsRead,
}

var notificationsClearCmd = &cobra.Command{
	Use:   "clear [id]",
	Short: "Remove one notification, or the whole feed with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runNotificationsClear,
}

func init() {
	rootCmd.AddCommand(notificationsCmd)
	notificationsCmd.AddCommand(notificationsListCmd, notificationsReadCmd, notificationsClearCmd)

	notificationsListCmd.Flags().Bool("unread", false, "Only show unread notifications")
	notificationsClearCmd.Flags().Bool("all", false, "Clear every notification")
}

func openFeed(cmd *cobra.Command) (*app, *notify.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	a, err := initApp(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}

	store, res := a.feeds.ForUser(cmd.Context(), currentUser(cfg))
	if res == notify.ResultFailed {
		a.Close()
		return nil, nil, fmt.Errorf("load notifications: %s", res)
	}
	if res == notify.ResultDegraded {
		fmt.Fprintln(os.Stderr, "warning: notification storage unavailable, showing an empty feed")
	}
	return a, store, nil
}

func runNotificationsList(cmd *cobra.Command, _ []string) error {
	unreadOnly, _ := cmd.Flags().GetBool("unread")

	a, store, err := openFeed(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	items := store.List()
	if len(items) == 0 {
		fmt.Println("No notifications.")
		return nil
	}

	fmt.Printf("%d unread of %d\n\n", store.UnreadCount(), len(items))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "\tTIME\tTYPE\tTITLE\tMESSAGE\tID\n")
	for _, n := range items {
		if unreadOnly && n.Read {
			continue
		}
		marker := " "
		if !n.Read {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			marker, n.Timestamp.Local().Format("2006-01-02 15:04:05"), n.Kind, n.Title, n.Message, n.ID)
	}
	return w.Flush()
}

func runNotificationsRead(cmd *cobra.Command, args []string) error {
	a, store, err := openFeed(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	return reportResult("mark read", store.MarkRead(cmd.Context(), args[0]))
}

func runNotificationsClear(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	if !all && len(args) == 0 {
		return fmt.Errorf("pass a notification id or --all")
	}

	a, store, err := openFeed(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if all {
		return reportResult("clear all", store.ClearAll(cmd.Context()))
	}
	return reportResult("clear", store.Clear(cmd.Context(), args[0]))
}

func reportResult(op string, res notify.Result) error {
	switch res {
	case notify.ResultFailed:
		return fmt.Errorf("%s: %s", op, res)
	case notify.ResultDegraded:
		fmt.Fprintf(os.Stderr, "warning: %s applied in memory only\n", op)
	default:
		fmt.Println("OK")
	}
	return nil
}
