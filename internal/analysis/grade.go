package analysis

import "fmt"

// Grade is the letter bucket of a final score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

const (
	thresholdA = 80
	thresholdB = 60
	thresholdC = 40
)

// GradeFor buckets a final score: A >= 80, B >= 60, C >= 40, otherwise D.
func GradeFor(finalScore float64) Grade {
	switch {
	case finalScore >= thresholdA:
		return GradeA
	case finalScore >= thresholdB:
		return GradeB
	case finalScore >= thresholdC:
		return GradeC
	default:
		return GradeD
	}
}

// ParseGrade accepts a single letter A-D.
func ParseGrade(s string) (Grade, error) {
	g := Grade(s)
	if !g.Valid() {
		return "", fmt.Errorf("unknown grade %q, expected one of A, B, C, D", s)
	}
	return g, nil
}

func (g Grade) Valid() bool {
	switch g {
	case GradeA, GradeB, GradeC, GradeD:
		return true
	default:
		return false
	}
}

// MinScore is the lowest final score that still falls into g.
func (g Grade) MinScore() float64 {
	switch g {
	case GradeA:
		return thresholdA
	case GradeB:
		return thresholdB
	case GradeC:
		return thresholdC
	default:
		return 0
	}
}

// AtLeast reports whether g is the same as or better than other.
func (g Grade) AtLeast(other Grade) bool {
	return g.MinScore() >= other.MinScore()
}

func (g Grade) Description() string {
	switch g {
	case GradeA:
		return "Strongly recommended"
	case GradeB:
		return "Recommended"
	case GradeC:
		return "Average"
	case GradeD:
		return "Not recommended"
	default:
		return "Unknown"
	}
}

// Recommendation is the human readable advice attached to a grade.
type Recommendation struct {
	Summary string
	Action  string
	Details string
}

func (g Grade) Recommendation() Recommendation {
	switch g {
	case GradeA:
		return Recommendation{
			Summary: g.Description() + " - this account fits the brand very well",
			Action:  "Reach out first",
			Details: "High brand similarity and strong engagement.",
		}
	case GradeB:
		return Recommendation{
			Summary: g.Description() + " - a good match",
			Action:  "Consider reaching out",
			Details: "Fits the brand overall; positive results can be expected.",
		}
	case GradeC:
		return Recommendation{
			Summary: g.Description() + " - a moderate match",
			Action:  "Needs further review",
			Details: "Matches in some respects but leaves room for improvement.",
		}
	default:
		return Recommendation{
			Summary: GradeD.Description() + " - not a good match",
			Action:  "Reaching out is not recommended",
			Details: "Low brand fit or insufficient engagement.",
		}
	}
}
