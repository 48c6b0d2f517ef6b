package analysis

// ScoreBreakdown holds the facet scores of one candidate.
type ScoreBreakdown struct {
	SimilarityScore float64 `json:"similarity_score"`
	EngagementScore float64 `json:"engagement_score"`
	CategoryScore   float64 `json:"category_score"`
	FinalScore      float64 `json:"final_score"`
	Grade           Grade   `json:"grade"`
}

// GradeConsistent reports whether the server-supplied grade matches the
// bucketing of the final score.
func (s ScoreBreakdown) GradeConsistent() bool {
	return s.Grade == GradeFor(s.FinalScore)
}

type TopPost struct {
	Permalink      string  `json:"permalink"`
	CaptionPreview string  `json:"caption_preview"`
	EngagementRate float64 `json:"engagement_rate"`
	LikesCount     *int    `json:"likes_count,omitempty"`
	CommentsCount  int     `json:"comments_count"`
	PostedAt       string  `json:"posted_at"`
}

type CollaborationSignal struct {
	BrandUsername     string `json:"brand_username"`
	CollaborationType string `json:"collaboration_type"`
	PostPermalink     string `json:"post_permalink"`
	PostedAt          string `json:"posted_at"`
}

// InfluencerResult is the scored outcome for one candidate account.
type InfluencerResult struct {
	Username             string                `json:"username"`
	ProfilePictureURL    *string               `json:"profile_picture_url,omitempty"`
	FollowersCount       int                   `json:"followers_count"`
	MediaCount           int                   `json:"media_count"`
	Biography            *string               `json:"biography,omitempty"`
	AvgEngagementRate    *float64              `json:"avg_engagement_rate,omitempty"`
	Scores               ScoreBreakdown        `json:"scores"`
	TopPosts             []TopPost             `json:"top_posts"`
	CollaborationSignals []CollaborationSignal `json:"collaboration_signals"`
	HashtagDistribution  map[string]float64    `json:"hashtag_distribution"`
	CommonHashtags       []string              `json:"common_hashtags_with_brand"`
}

// ResultSet is the full outcome of a completed job. Results keep the order
// the server returned them in.
type ResultSet struct {
	JobID         string             `json:"job_id"`
	BrandUsername string             `json:"brand_username"`
	Status        JobState           `json:"status"`
	Results       []InfluencerResult `json:"results"`
	TotalAPICalls int                `json:"total_api_calls"`
	CreatedAt     string             `json:"created_at"`
	CompletedAt   *string            `json:"completed_at,omitempty"`
}

func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Results)
}

// Find returns the result for username or nil.
func (rs *ResultSet) Find(username string) *InfluencerResult {
	if rs == nil {
		return nil
	}

	username = NormalizeHandle(username)
	for i := range rs.Results {
		if rs.Results[i].Username == username {
			return &rs.Results[i]
		}
	}
	return nil
}

func (rs *ResultSet) Usernames() []string {
	if rs == nil {
		return nil
	}

	names := make([]string, 0, len(rs.Results))
	for _, r := range rs.Results {
		names = append(names, r.Username)
	}
	return names
}

// GradeMismatches returns the usernames whose grade disagrees with their
// final score.
func (rs *ResultSet) GradeMismatches() []string {
	if rs == nil {
		return nil
	}

	var mismatched []string
	for _, r := range rs.Results {
		if !r.Scores.GradeConsistent() {
			mismatched = append(mismatched, r.Username)
		}
	}
	return mismatched
}

// WithResults returns a shallow copy of rs that carries results instead of
// its own list. The receiver is left untouched.
func (rs *ResultSet) WithResults(results []InfluencerResult) *ResultSet {
	if rs == nil {
		return nil
	}

	out := *rs
	out.Results = results
	return &out
}
