package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jdh4601/ClosetBot/internal/analysis"
)

// Layout selects the column set of an export.
type Layout string

const (
	// LayoutCompact is the seven column dashboard export.
	LayoutCompact Layout = "compact"
	// LayoutFull adds category score, media count, shared hashtags and the
	// number of collaboration signals.
	LayoutFull Layout = "full"
)

func ParseLayout(s string) (Layout, error) {
	switch l := Layout(strings.ToLower(strings.TrimSpace(s))); l {
	case LayoutCompact, LayoutFull:
		return l, nil
	case "":
		return LayoutFull, nil
	default:
		return "", fmt.Errorf("unknown export layout %q, expected %q or %q", s, LayoutCompact, LayoutFull)
	}
}

// Column is one exported field.
type Column struct {
	Name  string
	Value func(r *analysis.InfluencerResult) string
}

var compactColumns = []Column{
	{Name: "username", Value: func(r *analysis.InfluencerResult) string { return r.Username }},
	{Name: "grade", Value: func(r *analysis.InfluencerResult) string { return string(r.Scores.Grade) }},
	{Name: "final_score", Value: func(r *analysis.InfluencerResult) string { return formatFloat(r.Scores.FinalScore) }},
	{Name: "followers_count", Value: func(r *analysis.InfluencerResult) string { return strconv.Itoa(r.FollowersCount) }},
	{Name: "avg_engagement_rate", Value: func(r *analysis.InfluencerResult) string { return formatOptionalFloat(r.AvgEngagementRate) }},
	{Name: "engagement_score", Value: func(r *analysis.InfluencerResult) string { return formatFloat(r.Scores.EngagementScore) }},
	{Name: "similarity_score", Value: func(r *analysis.InfluencerResult) string { return formatFloat(r.Scores.SimilarityScore) }},
}

var fullColumns = append(append([]Column(nil), compactColumns...),
	Column{Name: "category_score", Value: func(r *analysis.InfluencerResult) string { return formatFloat(r.Scores.CategoryScore) }},
	Column{Name: "media_count", Value: func(r *analysis.InfluencerResult) string { return strconv.Itoa(r.MediaCount) }},
	Column{Name: "common_hashtags", Value: func(r *analysis.InfluencerResult) string { return strings.Join(r.CommonHashtags, listSep) }},
	Column{Name: "collaboration_count", Value: func(r *analysis.InfluencerResult) string { return strconv.Itoa(len(r.CollaborationSignals)) }},
)

// Columns returns the ordered columns of layout.
func Columns(layout Layout) ([]Column, error) {
	switch layout {
	case LayoutCompact:
		return compactColumns, nil
	case LayoutFull:
		return fullColumns, nil
	default:
		return nil, fmt.Errorf("unknown export layout %q", layout)
	}
}

// Header returns the column names of layout in export order.
func Header(layout Layout) ([]string, error) {
	cols, err := Columns(layout)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
