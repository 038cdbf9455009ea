package requisition

import (
	"math"
	"strings"

	"github.com/khrees2412/talentflow/pkg/models"
)

// MatchScore rates how well a candidate fits a job, between 0.0 and 1.0.
// Skills carry most of the weight, then experience range, then location.
func MatchScore(job *models.Job, c *models.Candidate) float64 {
	score := matchSkills(job, c)*0.6 +
		matchExperience(job, c)*0.25 +
		matchLocation(job, c)*0.15
	return math.Round(score*100) / 100
}

// matchSkills is the share of the job's skills the candidate lists. Jobs
// without a skill list fall back to the description.
func matchSkills(job *models.Job, c *models.Candidate) float64 {
	if len(c.Skills) == 0 {
		return 0
	}
	have := make(map[string]bool, len(c.Skills))
	for _, s := range c.Skills {
		have[strings.ToLower(strings.TrimSpace(s))] = true
	}

	if len(job.Skills) == 0 {
		if job.Description == "" {
			return 0.5
		}
		desc := strings.ToLower(job.Description)
		matched := 0
		for s := range have {
			if s != "" && strings.Contains(desc, s) {
				matched++
			}
		}
		return float64(matched) / float64(len(have))
	}

	matched := 0
	for _, s := range job.Skills {
		if have[strings.ToLower(strings.TrimSpace(s))] {
			matched++
		}
	}
	return float64(matched) / float64(len(job.Skills))
}

// matchExperience is 1 inside the job's range and falls off by a quarter
// per year outside it
func matchExperience(job *models.Job, c *models.Candidate) float64 {
	if job.ExperienceMin == 0 && job.ExperienceMax == 0 {
		return 0.5
	}
	years := c.TotalExperience
	var gap float64
	switch {
	case years < job.ExperienceMin:
		gap = job.ExperienceMin - years
	case job.ExperienceMax > 0 && years > job.ExperienceMax:
		gap = years - job.ExperienceMax
	}
	return math.Max(0, 1-gap*0.25)
}

func matchLocation(job *models.Job, c *models.Candidate) float64 {
	if job.Location == "" || c.Location == "" {
		return 0.5
	}

	jobLoc := strings.ToLower(job.Location)
	candLoc := strings.ToLower(c.Location)
	if strings.Contains(jobLoc, candLoc) || strings.Contains(candLoc, jobLoc) {
		return 1.0
	}
	if strings.Contains(jobLoc, "remote") {
		return 0.8
	}

	// same city or state
	for _, jp := range strings.Fields(jobLoc) {
		for _, cp := range strings.Fields(candLoc) {
			jp, cp = strings.Trim(jp, ",."), strings.Trim(cp, ",.")
			if len(jp) > 3 && jp == cp {
				return 0.6
			}
		}
	}
	return 0.3
}
