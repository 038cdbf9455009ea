package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/khrees2412/talentflow/internal/database"
	"github.com/khrees2412/talentflow/pkg/models"
)

var notificationCmd = &cobra.Command{
	Use:     "notification",
	Aliases: []string{"notifications", "inbox"},
	Short:   "Read in-app notifications",
}

var listNotificationsCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications for the acting user, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, actor, err := session(cmd)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		filter := database.NotificationFilter{ReceiverID: actor.ID}
		if all, _ := f.GetBool("all"); all {
			filter.ReceiverID = ""
		}
		entity, _ := f.GetString("type")
		filter.EntityType = models.EntityType(entity)
		filter.UnreadOnly, _ = f.GetBool("unread")
		filter.Limit, _ = f.GetInt("limit")

		items, err := a.Store.ListNotifications(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return respond(cmd, fmt.Sprintf("%d notifications", len(items)), items, nil, func(w io.Writer) {
			if len(items) == 0 {
				fmt.Fprintln(w, "Inbox is empty.")
				return
			}
			for _, n := range items {
				marker := " "
				if !n.IsRead {
					marker = warnStyle.Render("●")
				}
				fmt.Fprintf(w, "%s %s %s\n", marker, labelStyle.Render(n.Title), valueStyle.Render(n.CreatedAt.Format("Jan 2 15:04")))
				fmt.Fprintf(w, "  %s\n", n.Message)
				fmt.Fprintf(w, "  %s %s | %s\n", labelStyle.Render("ID:"), n.ID, display(string(n.EntityType)))
			}
		})
	},
}

var readNotificationCmd = &cobra.Command{
	Use:   "read <notification-id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		if err := a.Store.MarkNotificationRead(cmd.Context(), args[0]); err != nil {
			return err
		}
		return respond(cmd, "notification marked read", map[string]string{"id": args[0]}, nil, nil)
	},
}

func init() {
	rootCmd.AddCommand(notificationCmd)
	notificationCmd.AddCommand(listNotificationsCmd, readNotificationCmd)

	f := listNotificationsCmd.Flags()
	f.Bool("all", false, "Include notifications for every receiver")
	f.String("type", "", "Filter by entity type, e.g. bu_notification")
	f.Bool("unread", false, "Only unread notifications")
	f.Int("limit", 50, "Maximum notifications to show")
}
