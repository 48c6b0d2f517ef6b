package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jdh4601/ClosetBot/internal/analysis"
)

var facetWeights = []struct {
	label  string
	weight int
	value  func(s analysis.ScoreBreakdown) float64
}{
	{"Brand similarity", 40, func(s analysis.ScoreBreakdown) float64 { return s.SimilarityScore }},
	{"Engagement quality", 35, func(s analysis.ScoreBreakdown) float64 { return s.EngagementScore }},
	{"Category fit", 25, func(s analysis.ScoreBreakdown) float64 { return s.CategoryScore }},
}

// Detail renders everything known about one candidate.
func Detail(r *analysis.InfluencerResult, colorize bool) string {
	if r == nil {
		return ""
	}

	var sb strings.Builder
	line := func(s string) {
		sb.WriteString(s)
		sb.WriteString("\n")
	}

	for _, l := range sectionHeader("@"+r.Username, colorize) {
		line(l)
	}
	if r.Biography != nil && *r.Biography != "" {
		line(*r.Biography)
	}
	line(fmt.Sprintf("%s followers · %s posts · avg engagement %s",
		formatCount(r.FollowersCount), formatCount(r.MediaCount), formatRate(r.AvgEngagementRate)))
	line("https://instagram.com/" + r.Username)
	line("")

	scoreRows := make([][]string, 0, len(facetWeights)+1)
	for _, f := range facetWeights {
		scoreRows = append(scoreRows, []string{
			fmt.Sprintf("%s (%d%%)", f.label, f.weight),
			formatScore(f.value(r.Scores)),
			bar(f.value(r.Scores)),
		})
	}
	scoreRows = append(scoreRows, []string{"Final score", formatScore(r.Scores.FinalScore), string(r.Scores.Grade)})
	line(renderTable([]string{"Score", "Value", ""}, scoreRows, []columnAlignment{alignLeft, alignRight, alignLeft}))

	rec := r.Scores.Grade.Recommendation()
	line(fmt.Sprintf("%s. %s. %s", rec.Summary, rec.Action, rec.Details))
	if !r.Scores.GradeConsistent() {
		line(fmt.Sprintf("note: a final score of %s usually means grade %s",
			formatScore(r.Scores.FinalScore), analysis.GradeFor(r.Scores.FinalScore)))
	}
	line("")

	if len(r.TopPosts) > 0 {
		rows := make([][]string, 0, len(r.TopPosts))
		for i, p := range r.TopPosts {
			likes := "-"
			if p.LikesCount != nil {
				likes = formatCount(*p.LikesCount)
			}
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				formatScore(p.EngagementRate) + "%",
				likes,
				formatCount(p.CommentsCount),
				p.PostedAt,
				p.Permalink,
			})
		}
		line(renderTable([]string{"#", "ER", "Likes", "Comments", "Posted", "Link"}, rows,
			[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft}))
	}

	if len(r.CollaborationSignals) > 0 {
		rows := make([][]string, 0, len(r.CollaborationSignals))
		for _, c := range r.CollaborationSignals {
			rows = append(rows, []string{"@" + c.BrandUsername, c.CollaborationType, c.PostedAt})
		}
		line(renderTable([]string{"Brand", "Type", "Posted"}, rows, nil))
	}

	if len(r.HashtagDistribution) > 0 {
		line(renderTable([]string{"Hashtag", "Share"}, hashtagRows(r.HashtagDistribution), []columnAlignment{alignLeft, alignRight}))
	}

	if len(r.CommonHashtags) > 0 {
		tags := make([]string, len(r.CommonHashtags))
		for i, t := range r.CommonHashtags {
			tags[i] = "#" + t
		}
		line("Shared with brand: " + strings.Join(tags, " "))
	}

	return strings.TrimRight(sb.String(), "\n")
}

// hashtagRows orders the distribution by share, largest first.
func hashtagRows(dist map[string]float64) [][]string {
	tags := make([]string, 0, len(dist))
	for tag := range dist {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if dist[tags[i]] != dist[tags[j]] {
			return dist[tags[i]] > dist[tags[j]]
		}
		return tags[i] < tags[j]
	})

	rows := make([][]string, 0, len(tags))
	for _, tag := range tags {
		rows = append(rows, []string{"#" + tag, formatScore(dist[tag]) + "%"})
	}
	return rows
}

func bar(score float64) string {
	const width = 20
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	filled := int(score / 100 * width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
