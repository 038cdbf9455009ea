package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khrees2412/talentflow/internal/database"
	"github.com/khrees2412/talentflow/internal/pipeline"
	"github.com/khrees2412/talentflow/pkg/models"
)

var candidateCmd = &cobra.Command{
	Use:     "candidate",
	Aliases: []string{"candidates"},
	Short:   "Manage candidates through the recruitment pipeline",
}

func statusLabel(s models.CandidateStatus) string {
	labels := map[models.CandidateStatus]string{
		models.StatusPending:     "📝 Pending",
		models.StatusAssigned:    "📌 Assigned",
		models.StatusShortlisted: "⭐ Shortlisted",
		models.StatusApproved:    "✅ Approved",
		models.StatusReview:      "🔎 Review",
		models.StatusHired:       "🎉 Hired",
		models.StatusRejected:    "❌ Rejected",
	}
	if label, ok := labels[s]; ok {
		return label
	}
	return display(string(s))
}

func printCandidate(w io.Writer, c *models.Candidate) {
	fmt.Fprintln(w, titleStyle.Render(c.FullName()))
	field(w, "ID", c.ID)
	field(w, "Status", statusLabel(c.Status))
	field(w, "Type", display(string(c.CandidateType)))
	field(w, "Email", c.Email)
	field(w, "Mobile", c.Mobile)
	field(w, "Skills", strings.Join(c.Skills, ", "))
	field(w, "Location", c.Location)
	if c.IsExperienced {
		field(w, "Experience", fmt.Sprintf("%.1f years at %s", c.TotalExperience, c.CurrentCompany))
	}
	field(w, "Assigned To", c.Poc)
	field(w, "Jobs Referred", strings.Join(c.JobsReferred, ", "))
	if c.VendorReferred {
		field(w, "Vendor", c.VendorName)
	}
	if c.OnboardingInitiated {
		field(w, "Designation", c.Designation)
		field(w, "Joining Date", formatDate(c.JoiningDate))
	}
	field(w, "Rejected", formatDate(c.RejectedAt))
	if len(c.Remarks) > 0 {
		fmt.Fprintf(w, "\n%s\n", labelStyle.Render("Remarks"))
		printRemarks(w, c.Remarks)
	}
}

func printRemarks(w io.Writer, remarks []models.Remark) {
	for _, r := range remarks {
		fmt.Fprintf(w, "  • %s  %s (%s)\n", r.Title, valueStyle.Render(r.AuthorName), r.Date.Format("Jan 2 15:04"))
	}
}

func candidateResult(cmd *cobra.Command, message string, c *models.Candidate, err error) error {
	if c == nil {
		return err
	}
	return respond(cmd, message, c, err, func(w io.Writer) { printCandidate(w, c) })
}

var registerCandidateCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a candidate",
	Example: `  talentflow candidate register --kind fresher --first Asha --last Rao --email asha@example.com \
    --mobile 9000000001 --resume https://cv.example.com/asha.pdf --qualification B.Tech --passing-year 2024
  talentflow candidate register --kind vendor --as vendor-1 --first Ravi --last K --email ravi@example.com \
    --mobile 9000000002 --resume https://cv.example.com/ravi.pdf --vendor-name "Acme Staffing"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		kind, _ := f.GetString("kind")
		reg := pipeline.Registration{}
		reg.FirstName, _ = f.GetString("first")
		reg.LastName, _ = f.GetString("last")
		reg.Email, _ = f.GetString("email")
		reg.Mobile, _ = f.GetString("mobile")
		reg.Resume, _ = f.GetString("resume")
		skills, _ := f.GetString("skills")
		reg.Skills = splitList(skills)
		reg.Qualification, _ = f.GetString("qualification")
		reg.PassingYear, _ = f.GetInt("passing-year")
		reg.TotalExperience, _ = f.GetFloat64("experience")
		reg.CurrentCompany, _ = f.GetString("company")
		reg.Location, _ = f.GetString("location")
		candidateType, _ := f.GetString("type")
		reg.CandidateType = models.CandidateType(candidateType)
		reg.VendorName, _ = f.GetString("vendor-name")

		if pipeline.Kind(kind) == pipeline.KindVendor {
			vendor, err := a.Actor(cmd.Context(), actorOverride)
			if err != nil {
				return err
			}
			reg.Vendor = vendor
		}

		c, err := a.Candidates.Register(cmd.Context(), pipeline.Kind(kind), reg)
		return candidateResult(cmd, "candidate registered", c, err)
	},
}

var listCandidatesCmd = &cobra.Command{
	Use:   "list",
	Short: "List candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		filter := database.CandidateFilter{}
		status, _ := f.GetString("status")
		filter.Status = models.CandidateStatus(status)
		candidateType, _ := f.GetString("type")
		filter.CandidateType = models.CandidateType(candidateType)
		filter.AssignedTo, _ = f.GetString("assigned-to")
		filter.Search, _ = f.GetString("search")
		filter.Limit, _ = f.GetInt("limit")
		filter.Offset, _ = f.GetInt("offset")

		candidates, err := a.Candidates.List(cmd.Context(), filter)
		if err != nil {
			return err
		}
		return respond(cmd, fmt.Sprintf("%d candidates", len(candidates)), candidates, nil, func(w io.Writer) {
			if len(candidates) == 0 {
				fmt.Fprintln(w, "No candidates found. Register one with 'talentflow candidate register'")
				return
			}
			for _, c := range candidates {
				fmt.Fprintf(w, "  • %s %s\n", c.FullName(), valueStyle.Render("<"+c.Email+">"))
				fmt.Fprintf(w, "    %s %s | %s\n", labelStyle.Render("ID:"), c.ID, statusLabel(c.Status))
			}
		})
	},
}

var showCandidateCmd = &cobra.Command{
	Use:   "show <candidate-id>",
	Short: "Show a candidate with remarks and interview rounds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		c, err := a.Candidates.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		events, err := a.Interviews.ListForCandidate(cmd.Context(), c.ID)
		if err != nil {
			return err
		}
		data := map[string]any{"candidate": c, "events": events}
		return respond(cmd, "candidate "+c.ID, data, nil, func(w io.Writer) {
			printCandidate(w, c)
			if len(events) > 0 {
				fmt.Fprintf(w, "\n%s\n", labelStyle.Render("Interview Rounds"))
				for _, e := range events {
					fmt.Fprintf(w, "  • %s on %s (%s)\n", e.EventName, e.InterviewDate.Format("Jan 2 15:04"), display(string(e.Status)))
				}
			}
		})
	},
}

var assignCandidateCmd = &cobra.Command{
	Use:   "assign <candidate-id>",
	Short: "Assign a candidate to yourself",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, actor, err := session(cmd)
		if err != nil {
			return err
		}
		c, err := a.Candidates.AssignToSelf(cmd.Context(), args[0], actor)
		return candidateResult(cmd, "candidate assigned to "+actor.FullName(), c, err)
	},
}

var reassignCandidateCmd = &cobra.Command{
	Use:   "reassign <candidate-id>",
	Short: "Reassign a candidate to another user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, actor, err := session(cmd)
		if err != nil {
			return err
		}
		to, _ := cmd.Flags().GetString("to")
		poc, _ := cmd.Flags().GetString("poc")
		c, err := a.Candidates.Reassign(cmd.Context(), args[0], to, poc, actor)
		return candidateResult(cmd, "candidate reassigned", c, err)
	},
}

var changeStatusCmd = &cobra.Command{
	Use:   "status <candidate-id> <status>",
	Short: "Move a candidate to another pipeline status",
	Args:  cobra.ExactArgs(2),
	Example: `  talentflow candidate status 3f2c... shortlisted
  talentflow candidate status 3f2c... rejected`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, actor, err := session(cmd)
		if err != nil {
			return err
		}
		status := models.CandidateStatus(strings.ToLower(args[1]))
		c, err := a.Candidates.ChangeStatus(cmd.Context(), args[0], status, actor)
		return candidateResult(cmd, "status updated to "+string(status), c, err)
	},
}

var remarkCmd = &cobra.Command{
	Use:   "remark <candidate-id> <text>",
	Short: "Add a remark to a candidate",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, actor, err := session(cmd)
		if err != nil {
			return err
		}
		c, err := a.Candidates.AddRemark(cmd.Context(), args[0], strings.Join(args[1:], " "), actor)
		return candidateResult(cmd, "remark added", c, err)
	},
}

var remarksCmd = &cobra.Command{
	Use:   "remarks <candidate-id>",
	Short: "List a candidate's remarks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		remarks, err := a.Candidates.Remarks(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return respond(cmd, fmt.Sprintf("%d remarks", len(remarks)), remarks, nil, func(w io.Writer) {
			printRemarks(w, remarks)
		})
	},
}

var consentCmd = &cobra.Command{
	Use:   "consent <candidate-id>",
	Short: "Upload a consent form and shortlist the candidate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, actor, err := session(cmd)
		if err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("file")
		required, _ := cmd.Flags().GetBool("required")
		file, err := readFile(path)
		if err != nil {
			return err
		}
		c, err := a.Candidates.UploadConsent(cmd.Context(), args[0], file, required, actor)
		return candidateResult(cmd, "candidate shortlisted", c, err)
	},
}

var onboardCmd = &cobra.Command{
	Use:   "onboard <candidate-id>",
	Short: "Initiate onboarding for an approved candidate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, actor, err := session(cmd)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		in := pipeline.OnboardingInit{}
		in.Position, _ = f.GetString("position")
		in.OrganizationID, _ = f.GetString("org")
		in.JoiningFeedback, _ = f.GetString("feedback")
		if date, _ := f.GetString("joining-date"); date != "" {
			if in.JoiningDate, err = parseTime(date); err != nil {
				return err
			}
		}
		c, err := a.Candidates.InitiateOnboarding(cmd.Context(), args[0], in, actor)
		return candidateResult(cmd, "onboarding initiated", c, err)
	},
}

var offerCmd = &cobra.Command{
	Use:   "offer <candidate-id>",
	Short: "Send the offer letter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, actor, err := session(cmd)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		offer := pipeline.OfferLetter{}
		offer.Designation, _ = f.GetString("designation")
		if date, _ := f.GetString("joining-date"); date != "" {
			if offer.JoiningDate, err = parseTime(date); err != nil {
				return err
			}
		}
		path, _ := f.GetString("file")
		if offer.File, err = readFile(path); err != nil {
			return err
		}
		c, err := a.Candidates.SendOfferLetter(cmd.Context(), args[0], offer, actor)
		return candidateResult(cmd, "offer letter sent", c, err)
	},
}

var reinitiateCmd = &cobra.Command{
	Use:   "reinitiate <candidate-id>",
	Short: "Ask the candidate to resubmit the onboarding form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, actor, err := session(cmd)
		if err != nil {
			return err
		}
		reason, _ := cmd.Flags().GetString("reason")
		c, err := a.Candidates.ReinitiateOnboarding(cmd.Context(), args[0], reason, actor)
		return candidateResult(cmd, "onboarding reinitiated", c, err)
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <candidate-id>",
	Short: "Complete onboarding and mark the candidate hired",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, actor, err := session(cmd)
		if err != nil {
			return err
		}
		c, err := a.Candidates.CompleteOnboarding(cmd.Context(), args[0], actor)
		return candidateResult(cmd, "onboarding completed", c, err)
	},
}

var formCmd = &cobra.Command{
	Use:   "form",
	Short: "Submit or view onboarding forms",
}

var submitFormCmd = &cobra.Command{
	Use:   "submit <candidate-id>",
	Short: "Submit the onboarding form for a candidate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		form := models.OnboardingForm{CandidateID: args[0]}
		form.Email, _ = f.GetString("email")
		form.FullName, _ = f.GetString("full-name")
		form.FatherName, _ = f.GetString("father-name")
		form.DateOfBirth, _ = f.GetString("dob")
		form.Gender, _ = f.GetString("gender")
		form.Mobile, _ = f.GetString("mobile")
		form.CurrentAddress, _ = f.GetString("address")
		form.PermanentAddr, _ = f.GetString("permanent-address")
		form.PANNumber, _ = f.GetString("pan")
		form.AadharNumber, _ = f.GetString("aadhar")
		form.BankName, _ = f.GetString("bank")
		form.AccountNumber, _ = f.GetString("account")
		form.IFSCCode, _ = f.GetString("ifsc")

		saved, err := a.Candidates.SubmitOnboardingForm(cmd.Context(), form)
		if err != nil {
			return err
		}
		return respond(cmd, "onboarding form submitted", saved, nil, func(w io.Writer) {
			field(w, "Form ID", saved.ID)
			field(w, "Submitted", formatDate(&saved.SubmittedAt))
		})
	},
}

var showFormCmd = &cobra.Command{
	Use:   "show <candidate-id>",
	Short: "Show a candidate's onboarding form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		form, err := a.Candidates.OnboardingForm(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return respond(cmd, "onboarding form "+form.ID, form, nil, func(w io.Writer) {
			fmt.Fprintln(w, titleStyle.Render(form.FullName))
			field(w, "Email", form.Email)
			field(w, "Mobile", form.Mobile)
			field(w, "Date of Birth", form.DateOfBirth)
			field(w, "Address", form.CurrentAddress)
			field(w, "Bank", form.BankName)
			field(w, "Submitted", formatDate(&form.SubmittedAt))
		})
	},
}

func init() {
	rootCmd.AddCommand(candidateCmd)
	candidateCmd.AddCommand(registerCandidateCmd, listCandidatesCmd, showCandidateCmd,
		assignCandidateCmd, reassignCandidateCmd, changeStatusCmd, remarkCmd, remarksCmd,
		consentCmd, onboardCmd, offerCmd, reinitiateCmd, completeCmd, formCmd)
	formCmd.AddCommand(submitFormCmd, showFormCmd)

	rf := registerCandidateCmd.Flags()
	rf.String("kind", string(pipeline.KindFresher), "Registration kind: fresher, experienced, vendor or dummy")
	rf.String("first", "", "First name")
	rf.String("last", "", "Last name")
	rf.String("email", "", "Email address")
	rf.String("mobile", "", "Mobile number")
	rf.String("resume", "", "Resume URL")
	rf.String("skills", "", "Comma-separated skills")
	rf.String("qualification", "", "Highest qualification (fresher)")
	rf.Int("passing-year", 0, "Passing year (fresher)")
	rf.Float64("experience", 0, "Total experience in years (experienced)")
	rf.String("company", "", "Current company (experienced)")
	rf.String("location", "", "Current location")
	rf.String("type", "", "Candidate type: internal, external or vendor")
	rf.String("vendor-name", "", "Vendor agency name (vendor)")

	lf := listCandidatesCmd.Flags()
	lf.String("status", "", "Filter by status")
	lf.String("type", "", "Filter by candidate type")
	lf.String("assigned-to", "", "Filter by owner user id")
	lf.String("search", "", "Match name, email, mobile or skills")
	lf.Int("limit", 50, "Page size")
	lf.Int("offset", 0, "Rows to skip")

	reassignCandidateCmd.Flags().String("to", "", "User id of the new owner")
	reassignCandidateCmd.Flags().String("poc", "", "Display name of the new owner (looked up when empty)")

	consentCmd.Flags().String("file", "", "Consent form PDF")
	consentCmd.Flags().Bool("required", true, "Require a consent PDF")

	onboardCmd.Flags().String("position", "", "Position offered")
	onboardCmd.Flags().String("joining-date", "", "Joining date (YYYY-MM-DD)")
	onboardCmd.Flags().String("org", "", "Organization id")
	onboardCmd.Flags().String("feedback", "", "Joining feedback")

	offerCmd.Flags().String("designation", "", "Designation")
	offerCmd.Flags().String("joining-date", "", "Joining date (YYYY-MM-DD)")
	offerCmd.Flags().String("file", "", "Offer letter PDF")

	reinitiateCmd.Flags().String("reason", "", "Why the form must be resubmitted")

	ff := submitFormCmd.Flags()
	ff.String("email", "", "Email address")
	ff.String("full-name", "", "Full name")
	ff.String("father-name", "", "Father's name")
	ff.String("dob", "", "Date of birth")
	ff.String("gender", "", "Gender")
	ff.String("mobile", "", "Mobile number")
	ff.String("address", "", "Current address")
	ff.String("permanent-address", "", "Permanent address")
	ff.String("pan", "", "PAN number")
	ff.String("aadhar", "", "Aadhar number")
	ff.String("bank", "", "Bank name")
	ff.String("account", "", "Account number")
	ff.String("ifsc", "", "IFSC code")
}
