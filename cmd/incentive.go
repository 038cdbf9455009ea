package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khrees2412/talentflow/pkg/models"
)

var incentiveCmd = &cobra.Command{
	Use:   "incentive",
	Short: "Track freelancer referral incentives",
}

func printIncentive(w io.Writer, inc *models.Incentive) {
	field(w, "Freelancer", inc.FreelancerID)
	field(w, "Jobs", strings.Join(inc.JobIDs, ", "))
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Amount:"), valueStyle.Render(fmt.Sprintf("%.2f", inc.IncentiveAmount)))
}

var accrueCmd = &cobra.Command{
	Use:   "accrue <job-id>",
	Short: "Credit a job's referral amount to the acting freelancer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, actor, err := session(cmd)
		if err != nil {
			return err
		}
		inc, linked, err := a.Jobs.AccrueIncentive(cmd.Context(), args[0], actor)
		if err != nil {
			return err
		}
		msg := "incentive credited for " + args[0]
		if !linked {
			msg = args[0] + " was already credited; total recomputed"
		}
		return respond(cmd, msg, inc, nil, func(w io.Writer) { printIncentive(w, inc) })
	},
}

var showIncentiveCmd = &cobra.Command{
	Use:   "show [freelancer-id]",
	Short: "Show a freelancer's incentive (defaults to the acting user)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		var id string
		if len(args) == 1 {
			id = args[0]
		} else {
			actor, err := a.Actor(cmd.Context(), actorOverride)
			if err != nil {
				return err
			}
			id = actor.ID
		}
		inc, err := a.Jobs.Incentive(cmd.Context(), id)
		if err != nil {
			return err
		}
		return respond(cmd, "incentive for "+id, inc, nil, func(w io.Writer) { printIncentive(w, inc) })
	},
}

func init() {
	rootCmd.AddCommand(incentiveCmd)
	incentiveCmd.AddCommand(accrueCmd, showIncentiveCmd)
}
