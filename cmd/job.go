package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/khrees2412/talentflow/internal/database"
	"github.com/khrees2412/talentflow/internal/requisition"
	"github.com/khrees2412/talentflow/pkg/models"
)

var jobCmd = &cobra.Command{
	Use:     "job",
	Aliases: []string{"jobs"},
	Short:   "Manage job requisitions and referrals",
}

func printJob(w io.Writer, j *models.Job) {
	fmt.Fprintln(w, titleStyle.Render(j.Title))
	field(w, "Job ID", j.JobCode)
	field(w, "Organization", j.OrganizationName)
	field(w, "Status", j.Status)
	field(w, "Visibility", display(string(j.Visibility)))
	field(w, "Location", j.Location)
	field(w, "Skills", strings.Join(j.Skills, ", "))
	field(w, "Domains", strings.Join(j.Domains, ", "))
	field(w, "Experience", fmt.Sprintf("%g-%g years", j.ExperienceMin, j.ExperienceMax))
	field(w, "Positions", j.NoOfPositions)
	field(w, "Budget", fmt.Sprintf("%g-%g", j.BudgetMin, j.BudgetMax))
	if j.ModifiedBudget != nil {
		field(w, "Modified Budget", fmt.Sprintf("%g-%g", j.ModifiedBudget.Min, j.ModifiedBudget.Max))
	}
	if j.ReferralAmount > 0 {
		field(w, "Referral Amount", j.ReferralAmount)
	}
	field(w, "Ends", formatDate(j.EndDate))
	if j.Description != "" {
		fmt.Fprintln(w, labelStyle.Render("\nDescription:"))
		fmt.Fprintln(w, j.Description)
	}
}

func printViews(w io.Writer, views []requisition.CandidateView) {
	if len(views) == 0 {
		fmt.Fprintln(w, "No candidates.")
		return
	}
	for _, v := range views {
		approved := ""
		if v.ApprovedByBU {
			approved = " | BU approved " + formatDate(v.BUApprovalDate)
		}
		fmt.Fprintf(w, "  • %s %s %s\n", v.FirstName, v.LastName, valueStyle.Render("<"+v.Email+">"))
		fmt.Fprintf(w, "    %s %s | %s | match %.0f%%%s\n",
			labelStyle.Render("ID:"), v.CandidateID, statusLabel(v.Status), v.MatchScore*100, approved)
	}
}

var createJobCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a job requisition",
	Example: `  talentflow job create --title "Go Engineer" --org Acme --location Pune \
    --skills go,sql --experience-min 2 --experience-max 5 --positions 2 --budget-min 10 --budget-max 18`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, actor, err := session(cmd)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		in := requisition.JobInput{}
		in.Title, _ = f.GetString("title")
		in.OrganizationName, _ = f.GetString("org")
		in.Location, _ = f.GetString("location")
		in.Description, _ = f.GetString("description")
		domains, _ := f.GetString("domains")
		in.Domains = splitList(domains)
		skills, _ := f.GetString("skills")
		in.Skills = splitList(skills)
		in.ExperienceMin, _ = f.GetFloat64("experience-min")
		in.ExperienceMax, _ = f.GetFloat64("experience-max")
		in.NoOfPositions, _ = f.GetInt("positions")
		in.BudgetMin, _ = f.GetFloat64("budget-min")
		in.BudgetMax, _ = f.GetFloat64("budget-max")
		in.ReferralAmount, _ = f.GetFloat64("referral-amount")
		visibility, _ := f.GetString("visibility")
		in.Visibility = models.Visibility(visibility)
		if end, _ := f.GetString("end-date"); end != "" {
			t, err := parseTime(end)
			if err != nil {
				return err
			}
			in.EndDate = &t
		}

		job, err := a.Jobs.CreateJob(cmd.Context(), in, actor)
		if err != nil {
			return err
		}
		return respond(cmd, "job created: "+job.JobCode, job, nil, func(w io.Writer) { printJob(w, job) })
	},
}

func stringFlag(f *pflag.FlagSet, name string) *string {
	if !f.Changed(name) {
		return nil
	}
	v, _ := f.GetString(name)
	return &v
}

func floatFlag(f *pflag.FlagSet, name string) *float64 {
	if !f.Changed(name) {
		return nil
	}
	v, _ := f.GetFloat64(name)
	return &v
}

var updateJobCmd = &cobra.Command{
	Use:   "update <job-id>",
	Short: "Update a job requisition; only the given flags change",
	Args:  cobra.ExactArgs(1),
	Example: `  talentflow job update JOB-2025-0001 --positions 3
  talentflow job update JOB-2025-0001 --modified-budget-min 12 --modified-budget-max 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := session(cmd)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		u := requisition.JobUpdate{
			Title:             stringFlag(f, "title"),
			Location:          stringFlag(f, "location"),
			Description:       stringFlag(f, "description"),
			ExperienceMin:     floatFlag(f, "experience-min"),
			ExperienceMax:     floatFlag(f, "experience-max"),
			BudgetMin:         floatFlag(f, "budget-min"),
			BudgetMax:         floatFlag(f, "budget-max"),
			ModifiedBudgetMin: floatFlag(f, "modified-budget-min"),
			ModifiedBudgetMax: floatFlag(f, "modified-budget-max"),
			ReferralAmount:    floatFlag(f, "referral-amount"),
		}
		if f.Changed("domains") {
			v, _ := f.GetString("domains")
			u.Domains = append([]string{}, splitList(v)...)
		}
		if f.Changed("skills") {
			v, _ := f.GetString("skills")
			u.Skills = append([]string{}, splitList(v)...)
		}
		if f.Changed("positions") {
			v, _ := f.GetInt("positions")
			u.NoOfPositions = &v
		}
		if v := stringFlag(f, "status"); v != nil {
			s := models.JobStatus(*v)
			u.Status = &s
		}
		if v := stringFlag(f, "visibility"); v != nil {
			vis := models.Visibility(*v)
			u.Visibility = &vis
		}
		if v := stringFlag(f, "end-date"); v != nil {
			t, err := parseTime(*v)
			if err != nil {
				return err
			}
			u.EndDate = &t
		}

		job, changed, err := a.Jobs.UpdateJob(cmd.Context(), args[0], u)
		if err != nil {
			return err
		}
		msg := "nothing to update"
		if len(changed) > 0 {
			msg = "updated " + strings.Join(changed, ", ")
		}
		data := map[string]any{"job": job, "changed": changed}
		return respond(cmd, msg, data, nil, func(w io.Writer) { printJob(w, job) })
	},
}

var listJobsCmd = &cobra.Command{
	Use:   "list",
	Short: "List job requisitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		status, _ := cmd.Flags().GetString("status")
		jobs, err := a.Jobs.ListJobs(cmd.Context(), models.JobStatus(status))
		if err != nil {
			return err
		}
		return respond(cmd, fmt.Sprintf("%d jobs", len(jobs)), jobs, nil, func(w io.Writer) {
			if len(jobs) == 0 {
				fmt.Fprintln(w, "No jobs found. Create one with 'talentflow job create'")
				return
			}
			fmt.Fprintln(w, titleStyle.Render("Jobs"))
			for i, j := range jobs {
				fmt.Fprintf(w, "\n%s. %s\n", labelStyle.Render(fmt.Sprintf("%d", i+1)), j.Title)
				fmt.Fprintf(w, "   %s %s\n", labelStyle.Render("Job ID:"), j.JobCode)
				fmt.Fprintf(w, "   %s %s\n", labelStyle.Render("Organization:"), j.OrganizationName)
				fmt.Fprintf(w, "   %s %s\n", labelStyle.Render("Status:"), j.Status)
				fmt.Fprintf(w, "   %s %s\n", labelStyle.Render("Added:"), j.CreatedAt.Format("Jan 2, 2006"))
			}
		})
	},
}

var showJobCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show a job with its referrals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		job, err := a.Jobs.GetJob(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		referrals, err := a.Jobs.Referrals(cmd.Context(), job.JobCode)
		if err != nil {
			return err
		}
		data := map[string]any{"job": job, "referrals": referrals}
		return respond(cmd, "job "+job.JobCode, data, nil, func(w io.Writer) {
			printJob(w, job)
			fmt.Fprintln(w)
			field(w, "Referrals", len(referrals))
		})
	},
}

var referCmd = &cobra.Command{
	Use:   "refer <job-id> <candidate-id>...",
	Short: "Refer candidates to a job",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, actor, err := session(cmd)
		if err != nil {
			return err
		}
		hr, _ := cmd.Flags().GetString("hr")
		approved, _ := cmd.Flags().GetBool("approved")
		report, err := a.Jobs.ReferCandidates(cmd.Context(), args[0], args[1:], hr, actor, approved)
		if err != nil {
			return err
		}
		msg := fmt.Sprintf("%d referred, %d already referred", len(report.Added), len(report.Skipped))
		return respond(cmd, msg, report, nil, nil)
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve <job-id> <candidate-id>...",
	Short: "Approve referred candidates on behalf of the BU",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, actor, err := session(cmd)
		if err != nil {
			return err
		}
		n, err := a.Jobs.ApproveCandidates(cmd.Context(), args[0], args[1:], actor)
		if err != nil {
			return err
		}
		return respond(cmd, fmt.Sprintf("%d candidates approved", n), map[string]int64{"approved": n}, nil, nil)
	},
}

var shortlistedCmd = &cobra.Command{
	Use:   "shortlisted <job-id>",
	Short: "List candidates referred to a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		onlyApproved, _ := cmd.Flags().GetBool("approved")
		views, err := a.Jobs.ListShortlisted(cmd.Context(), args[0], onlyApproved)
		if err != nil {
			return err
		}
		return respond(cmd, fmt.Sprintf("%d candidates", len(views)), views, nil, func(w io.Writer) {
			printViews(w, views)
		})
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending <job-id>",
	Short: "List referrals awaiting BU approval",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		q := database.ReferralQuery{}
		status, _ := f.GetString("status")
		q.Status = models.CandidateStatus(status)
		candidateType, _ := f.GetString("type")
		q.CandidateType = models.CandidateType(candidateType)
		q.Search, _ = f.GetString("search")
		q.Limit, _ = f.GetInt("limit")
		q.Offset, _ = f.GetInt("offset")

		views, total, err := a.Jobs.ListReferredPending(cmd.Context(), args[0], q)
		if err != nil {
			return err
		}
		data := map[string]any{"candidates": views, "total": total}
		return respond(cmd, fmt.Sprintf("%d of %d pending", len(views), total), data, nil, func(w io.Writer) {
			printViews(w, views)
		})
	},
}

var vendorReferCmd = &cobra.Command{
	Use:   "vendor-refer <job-id>",
	Short: "Refer a vendor's candidate to a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, actor, err := session(cmd)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		vc := requisition.VendorCandidate{}
		vc.FirstName, _ = f.GetString("first")
		vc.LastName, _ = f.GetString("last")
		vc.Email, _ = f.GetString("email")
		vc.Mobile, _ = f.GetString("mobile")
		vc.Resume, _ = f.GetString("resume")
		skills, _ := f.GetString("skills")
		vc.Skills = splitList(skills)
		vc.TotalExperience, _ = f.GetFloat64("experience")
		vc.CurrentCompany, _ = f.GetString("company")
		vc.Location, _ = f.GetString("location")
		vc.VendorName, _ = f.GetString("vendor-name")

		c, err := a.Jobs.ReferFromVendor(cmd.Context(), args[0], actor.ID, vc)
		return candidateResult(cmd, "candidate referred to "+args[0], c, err)
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Deactivate jobs whose end date has passed",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		n, err := a.Jobs.SweepExpiredJobs(cmd.Context())
		if err != nil {
			return err
		}
		return respond(cmd, fmt.Sprintf("%d jobs deactivated", n), map[string]int64{"deactivated": n}, nil, nil)
	},
}

func jobFieldFlags(f *pflag.FlagSet) {
	f.String("title", "", "Job title")
	f.String("location", "", "Job location")
	f.String("description", "", "Job description")
	f.String("domains", "", "Comma-separated domains")
	f.String("skills", "", "Comma-separated skills")
	f.Float64("experience-min", 0, "Minimum years of experience")
	f.Float64("experience-max", 0, "Maximum years of experience")
	f.Int("positions", 1, "Number of open positions")
	f.Float64("budget-min", 0, "Minimum budget")
	f.Float64("budget-max", 0, "Maximum budget")
	f.Float64("referral-amount", 0, "Freelancer referral incentive")
	f.String("visibility", "", "Who can see the job: ta, bu, vendor or all")
	f.String("end-date", "", "Date after which the job is deactivated (YYYY-MM-DD)")
}

func init() {
	rootCmd.AddCommand(jobCmd)
	jobCmd.AddCommand(createJobCmd, updateJobCmd, listJobsCmd, showJobCmd, referCmd, approveCmd,
		shortlistedCmd, pendingCmd, vendorReferCmd, sweepCmd)

	jobFieldFlags(createJobCmd.Flags())
	createJobCmd.Flags().String("org", "", "Organization name")

	jobFieldFlags(updateJobCmd.Flags())
	updateJobCmd.Flags().String("status", "", "Active, Inactive, On Hold or Filled")
	updateJobCmd.Flags().Float64("modified-budget-min", 0, "Negotiated minimum budget")
	updateJobCmd.Flags().Float64("modified-budget-max", 0, "Negotiated maximum budget")

	listJobsCmd.Flags().String("status", "", "Filter by status")

	referCmd.Flags().String("hr", "", "HR user handling the referral")
	referCmd.Flags().Bool("approved", false, "Refer as already approved by the BU")

	shortlistedCmd.Flags().Bool("approved", false, "Only BU-approved candidates")

	pf := pendingCmd.Flags()
	pf.String("status", "", "Filter by candidate status")
	pf.String("type", "", "Filter by candidate type")
	pf.String("search", "", "Match name, email, mobile or skills")
	pf.Int("limit", 20, "Page size")
	pf.Int("offset", 0, "Rows to skip")

	vf := vendorReferCmd.Flags()
	vf.String("first", "", "First name")
	vf.String("last", "", "Last name")
	vf.String("email", "", "Email address")
	vf.String("mobile", "", "Mobile number")
	vf.String("resume", "", "Resume URL")
	vf.String("skills", "", "Comma-separated skills")
	vf.Float64("experience", 0, "Total experience in years")
	vf.String("company", "", "Current company")
	vf.String("location", "", "Current location")
	vf.String("vendor-name", "", "Vendor agency name")
}
