package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khrees2412/talentflow/internal/interview"
	"github.com/khrees2412/talentflow/pkg/models"
)

var eventCmd = &cobra.Command{
	Use:     "event",
	Aliases: []string{"interview"},
	Short:   "Schedule interview rounds and record feedback",
}

func printEvent(w io.Writer, e *models.Event) {
	fmt.Fprintln(w, titleStyle.Render(e.EventName+" with "+e.Candidate.Name))
	field(w, "ID", e.ID)
	field(w, "Status", display(string(e.Status)))
	field(w, "Date", e.InterviewDate.Format("Mon, Jan 2 2006 15:04 MST"))
	field(w, "Interviewer", fmt.Sprintf("%s <%s>", e.Interviewer.Name, e.Interviewer.Email))
	field(w, "Organization", e.Organization.Name)
	field(w, "Meeting Link", e.MeetingLink)
}

func eventResult(cmd *cobra.Command, message string, e *models.Event, err error) error {
	if e == nil {
		return err
	}
	return respond(cmd, message, e, err, func(w io.Writer) { printEvent(w, e) })
}

var scheduleEventCmd = &cobra.Command{
	Use:   "schedule <candidate-id>",
	Short: "Schedule an interview round",
	Args:  cobra.ExactArgs(1),
	Example: `  talentflow event schedule 3f2c... --round "Technical 1" --date "2025-05-02 10:30" \
    --interviewer ta-2 --interviewer-name "Ravi Menon" --interviewer-email ravi@example.com \
    --org-id org-1 --org-name Acme --link https://meet.example.com/abc`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, actor, err := session(cmd)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		in := interview.EventInput{Candidate: models.CandidateSnapshot{CandidateID: args[0]}}
		in.EventName, _ = f.GetString("round")
		in.MeetingLink, _ = f.GetString("link")
		in.Interviewer.InterviewerID, _ = f.GetString("interviewer")
		in.Interviewer.Name, _ = f.GetString("interviewer-name")
		in.Interviewer.Email, _ = f.GetString("interviewer-email")
		in.Organization.CompanyID, _ = f.GetString("org-id")
		in.Organization.Name, _ = f.GetString("org-name")
		if date, _ := f.GetString("date"); date != "" {
			if in.InterviewDate, err = parseTime(date); err != nil {
				return err
			}
		}
		e, err := a.Interviews.Create(cmd.Context(), in, actor)
		return eventResult(cmd, "interview scheduled", e, err)
	},
}

var rescheduleEventCmd = &cobra.Command{
	Use:   "update <event-id>",
	Short: "Reschedule an interview round; only the given flags change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := session(cmd)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		u := interview.EventUpdate{
			EventName:   stringFlag(f, "round"),
			MeetingLink: stringFlag(f, "link"),
		}
		if v := stringFlag(f, "date"); v != nil {
			t, err := parseTime(*v)
			if err != nil {
				return err
			}
			u.InterviewDate = &t
		}
		if f.Changed("interviewer") {
			iv := models.Interviewer{}
			iv.InterviewerID, _ = f.GetString("interviewer")
			iv.Name, _ = f.GetString("interviewer-name")
			iv.Email, _ = f.GetString("interviewer-email")
			u.Interviewer = &iv
		}
		e, err := a.Interviews.Update(cmd.Context(), args[0], u)
		return eventResult(cmd, "interview updated", e, err)
	},
}

var eventStatusCmd = &cobra.Command{
	Use:   "status <event-id> <submitted|approved|rejected>",
	Short: "Record the outcome of an interview round",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, actor, err := session(cmd)
		if err != nil {
			return err
		}
		status := models.EventStatus(strings.ToLower(args[1]))
		e, err := a.Interviews.SetStatus(cmd.Context(), args[0], status, actor)
		return eventResult(cmd, "round marked "+string(status), e, err)
	},
}

var listEventsCmd = &cobra.Command{
	Use:   "list <candidate-id>",
	Short: "List a candidate's interview rounds, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		events, err := a.Interviews.ListForCandidate(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return respond(cmd, fmt.Sprintf("%d rounds", len(events)), events, nil, func(w io.Writer) {
			for _, e := range events {
				fmt.Fprintf(w, "  • %s on %s (%s)\n", e.EventName, e.InterviewDate.Format("Jan 2 15:04"), display(string(e.Status)))
				fmt.Fprintf(w, "    %s %s\n", labelStyle.Render("ID:"), e.ID)
			}
		})
	},
}

var showEventCmd = &cobra.Command{
	Use:   "show <event-id>",
	Short: "Show an interview round",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		e, err := a.Interviews.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return eventResult(cmd, "interview "+e.ID, e, nil)
	},
}

var deleteEventCmd = &cobra.Command{
	Use:   "delete <event-id>",
	Short: "Delete an interview round",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := session(cmd)
		if err != nil {
			return err
		}
		if err := a.Interviews.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		return respond(cmd, "interview deleted", map[string]string{"id": args[0]}, nil, nil)
	},
}

func init() {
	rootCmd.AddCommand(eventCmd)
	eventCmd.AddCommand(scheduleEventCmd, rescheduleEventCmd, eventStatusCmd, listEventsCmd, showEventCmd, deleteEventCmd)

	for _, c := range []*cobra.Command{scheduleEventCmd, rescheduleEventCmd} {
		f := c.Flags()
		f.String("round", "", "Round name, e.g. Screening or Technical 1")
		f.String("date", "", "Interview date and time (YYYY-MM-DD HH:MM, UTC)")
		f.String("link", "", "Meeting link (ignored for screening and orientation)")
		f.String("interviewer", "", "Interviewer user id")
		f.String("interviewer-name", "", "Interviewer name")
		f.String("interviewer-email", "", "Interviewer email")
	}
	scheduleEventCmd.Flags().String("org-id", "", "Organization id")
	scheduleEventCmd.Flags().String("org-name", "", "Organization name")
}
