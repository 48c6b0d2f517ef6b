package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jdh4601/ClosetBot/internal/analysis"
)

// ResultsTable renders a result set in server order.
func ResultsTable(set *analysis.ResultSet) string {
	headers := []string{"#", "Username", "Grade", "Final", "Followers", "Avg ER", "Similarity", "Engagement", "Category", "Common hashtags"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft}

	rows := make([][]string, 0, set.Len())
	if set != nil {
		for i, r := range set.Results {
			grade := string(r.Scores.Grade)
			if !r.Scores.GradeConsistent() {
				grade += " (!)"
			}
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				"@" + r.Username,
				grade,
				formatScore(r.Scores.FinalScore),
				formatCount(r.FollowersCount),
				formatRate(r.AvgEngagementRate),
				formatScore(r.Scores.SimilarityScore),
				formatScore(r.Scores.EngagementScore),
				formatScore(r.Scores.CategoryScore),
				strings.Join(r.CommonHashtags, ", "),
			})
		}
	}

	return renderTable(headers, rows, aligns)
}

// ResultsSummary is the one line shown above a results table.
func ResultsSummary(set *analysis.ResultSet) string {
	if set == nil {
		return ""
	}

	completed := "-"
	if set.CompletedAt != nil && *set.CompletedAt != "" {
		completed = *set.CompletedAt
	}

	return fmt.Sprintf("brand @%s · job %s · %d candidates · %s API calls · completed %s",
		set.BrandUsername, set.JobID, set.Len(), formatCount(set.TotalAPICalls), completed)
}
