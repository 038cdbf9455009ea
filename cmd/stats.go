package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/khrees2412/talentflow/pkg/models"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "View pipeline statistics",
	Long:  "Display how candidates are spread across the pipeline and how many jobs are open",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := mustApp(cmd)
		if err != nil {
			return err
		}
		counts, err := a.Candidates.Counts(cmd.Context())
		if err != nil {
			return err
		}
		jobs, err := a.Jobs.ListJobs(cmd.Context(), models.JobActive)
		if err != nil {
			return err
		}
		stats := calculateStats(counts, len(jobs))
		return respond(cmd, fmt.Sprintf("%d candidates", stats.Total), stats, nil, func(w io.Writer) {
			printStats(w, stats)
		})
	},
}

// Stats summarizes the pipeline
type Stats struct {
	Total           int                            `json:"total"`
	InProgress      int                            `json:"in_progress"`
	Hired           int                            `json:"hired"`
	Rejected        int                            `json:"rejected"`
	HireRate        float64                        `json:"hire_rate"`
	ActiveJobs      int                            `json:"active_jobs"`
	StatusBreakdown map[models.CandidateStatus]int `json:"status_breakdown"`
}

func calculateStats(counts map[models.CandidateStatus]int, activeJobs int) Stats {
	stats := Stats{StatusBreakdown: counts, ActiveJobs: activeJobs}
	for status, n := range counts {
		stats.Total += n
		switch status {
		case models.StatusHired, models.StatusEmployee, models.StatusDeployed:
			stats.Hired += n
		case models.StatusRejected:
			stats.Rejected += n
		default:
			stats.InProgress += n
		}
	}
	if closed := stats.Hired + stats.Rejected; closed > 0 {
		stats.HireRate = float64(stats.Hired) / float64(closed) * 100
	}
	return stats
}

func printStats(w io.Writer, stats Stats) {
	fmt.Fprintln(w, titleStyle.Render("Pipeline Statistics"))

	fmt.Fprintf(w, "%s\n", labelStyle.Render("Overview"))
	fmt.Fprintf(w, "  Total Candidates: %d\n", stats.Total)
	fmt.Fprintf(w, "  In Progress: %d\n", stats.InProgress)
	fmt.Fprintf(w, "  Hired: %d\n", stats.Hired)
	fmt.Fprintf(w, "  Rejected: %d\n", stats.Rejected)
	fmt.Fprintf(w, "  Active Jobs: %d\n", stats.ActiveJobs)
	if stats.Hired+stats.Rejected > 0 {
		fmt.Fprintf(w, "  Hire Rate: %.1f%%\n", stats.HireRate)
	}

	if stats.Total == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", labelStyle.Render("Status Breakdown"))
	for _, status := range models.CandidateStatuses {
		count := stats.StatusBreakdown[status]
		if count == 0 {
			continue
		}
		percentage := float64(count) / float64(stats.Total) * 100
		fmt.Fprintf(w, "  %s: %d (%.1f%%)\n", statusLabel(status), count, percentage)
	}
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
