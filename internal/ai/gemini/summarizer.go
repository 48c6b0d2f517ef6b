package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jdh4601/ClosetBot/internal/ai"
	"github.com/jdh4601/ClosetBot/internal/analysis"
	"github.com/jdh4601/ClosetBot/internal/logger"
	"github.com/jdh4601/ClosetBot/internal/utils"
)

const (
	providerName        = "gemini"
	defaultMaxLogLength = 200
)

//go:embed prompt.md
var promptTemplate string

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Summarizer asks Gemini for a narrative over a result set.
type Summarizer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewSummarizer(generator contentGenerator, log *zap.Logger, maxLogLength int) *Summarizer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Summarizer{
		generator: generator,
		logger:    logger.WithFields(log, logger.AIFields(providerName, generator.Model())...),
		maxLogLen: maxLogLength,
	}
}

type candidatePayload struct {
	Username          string   `json:"username"`
	Grade             string   `json:"grade"`
	FinalScore        float64  `json:"final_score"`
	SimilarityScore   float64  `json:"similarity_score"`
	EngagementScore   float64  `json:"engagement_score"`
	CategoryScore     float64  `json:"category_score"`
	FollowersCount    int      `json:"followers_count"`
	AvgEngagementRate *float64 `json:"avg_engagement_rate,omitempty"`
	CommonHashtags    []string `json:"common_hashtags"`
	Collaborations    int      `json:"collaboration_count"`
}

func (s *Summarizer) Summarize(ctx context.Context, set *analysis.ResultSet) (*ai.Summary, error) {
	if set == nil || set.Len() == 0 {
		return nil, errors.New("result set is empty")
	}

	prompt, err := buildPrompt(set)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(zap.String(logger.FieldJobID, set.JobID))

	log.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	log.Debug("gemini generate content response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	summary, err := parseResponse(raw, set)
	if err != nil {
		return nil, err
	}

	summary.Raw = raw
	return summary, nil
}

func buildPrompt(set *analysis.ResultSet) (string, error) {
	candidates := make([]candidatePayload, 0, set.Len())
	for _, r := range set.Results {
		tags := r.CommonHashtags
		if tags == nil {
			tags = []string{}
		}
		candidates = append(candidates, candidatePayload{
			Username:          r.Username,
			Grade:             string(r.Scores.Grade),
			FinalScore:        r.Scores.FinalScore,
			SimilarityScore:   r.Scores.SimilarityScore,
			EngagementScore:   r.Scores.EngagementScore,
			CategoryScore:     r.Scores.CategoryScore,
			FollowersCount:    r.FollowersCount,
			AvgEngagementRate: r.AvgEngagementRate,
			CommonHashtags:    tags,
			Collaborations:    len(r.CollaborationSignals),
		})
	}

	payload, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidates payload: %w", err)
	}

	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Brand: @{{BRAND}}\n\nCandidates:\n{{CANDIDATES_JSON}}\n\nJSON Response:"
	}
	prompt := strings.ReplaceAll(template, "{{BRAND}}", set.BrandUsername)
	prompt = strings.ReplaceAll(prompt, "{{CANDIDATES_JSON}}", string(payload))
	return prompt, nil
}

// parseResponse keeps notes only for candidates present in set, in set order.
func parseResponse(raw string, set *analysis.ResultSet) (*ai.Summary, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	summary := &ai.Summary{Headline: coerceString(data["headline"])}

	notes := map[string]string{}
	if items, ok := data["notes"].([]any); ok {
		for _, item := range items {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			username := analysis.NormalizeHandle(coerceString(entry["username"]))
			note := coerceString(entry["note"])
			if username == "" || note == "" {
				continue
			}
			notes[username] = note
		}
	}

	for _, username := range set.Usernames() {
		if note, ok := notes[username]; ok {
			summary.Notes = append(summary.Notes, ai.CandidateNote{Username: username, Note: note})
		}
	}

	if summary.Headline == "" && len(summary.Notes) == 0 {
		return nil, errors.New("gemini response has neither headline nor notes")
	}

	return summary, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
