package ingest

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/podsmith/podsmith/internal/core/domain"
	apperrors "github.com/podsmith/podsmith/internal/core/errors"
	"github.com/podsmith/podsmith/internal/core/llm"
	"github.com/podsmith/podsmith/internal/core/taxonomy"
)

const defaultImportance = 50

const judgePromptHeader = `You are a news clustering judge. Decide whether the new article below
belongs to one of the existing story clusters or starts a new one.

Rules:
- A cluster covers ONE discrete real-world event. Two articles about the
  same topic but distinct events belong to DIFFERENT clusters.
- Choose "join_existing" only when the article reports on the same event
  as a cluster shown below; otherwise choose "create_new".
- Assign a subcategory from the allowed list.
- Provide 5-6 short topical tags.
- Score four factors on a 1-100 scale:
  surprise: how unexpected the event is (10 = scheduled/recurring, 90 = unprecedented)
  prominence: how notable the people/organizations involved are
  magnitude: scale and severity of consequences (10 = local routine, 50 = national, 90 = historic/global)
  emotion: strength of the emotional response the story evokes
- importance is the mean of the four factor scores, one decimal place.

Respond with JSON only, no prose:
{"action": "join_existing" | "create_new",
 "cluster_id": "<id of the joined cluster or null>",
 "subcategory": "<one allowed subcategory>",
 "tags": ["tag1", "tag2", "tag3", "tag4", "tag5"],
 "factor_scores": {"surprise": 0, "prominence": 0, "magnitude": 0, "emotion": 0},
 "importance": 0.0}

Note: do not include a category field; it is derived from the subcategory.
`

// BuildJudgePrompt renders the clustering judge prompt for one article
// and its nearest neighbours (at most limit are shown).
func BuildJudgePrompt(item FeedItem, neighbors []domain.SimilarArticle, limit int) string {
	var sb strings.Builder

	sb.WriteString(judgePromptHeader)

	sb.WriteString("\nAllowed subcategories: ")
	sb.WriteString(strings.Join(taxonomy.AllSubcategories(), ", "))
	sb.WriteString("\n\nNew article:\nTitle: ")
	sb.WriteString(item.Title)
	sb.WriteString("\nSummary: ")
	sb.WriteString(item.Summary)
	sb.WriteString("\n")

	if len(neighbors) == 0 {
		sb.WriteString("\nThere are no similar recent articles. The action must be \"create_new\".\n")

		return sb.String()
	}

	sb.WriteString("\nSimilar recent articles, most similar first:\n")

	for i, n := range neighbors {
		if i >= limit {
			break
		}

		fmt.Fprintf(&sb, "[%d] cluster_id=%s subcategory=%q similarity=%.3f\n    Title: %s\n    Summary: %s\n",
			i+1, n.ClusterID, n.Subcategory, n.Similarity, n.Title, truncateRunes(n.Summary, 300))
	}

	return sb.String()
}

var importanceDigits = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// rawDecision mirrors ClusterDecision with lenient field types. Some
// models flatten the factor scores into top-level *_score fields; both
// shapes are accepted.
type rawDecision struct {
	Action       string              `json:"action"`
	ClusterID    *string             `json:"cluster_id"`
	Subcategory  string              `json:"subcategory"`
	Tags         []string            `json:"tags"`
	FactorScores domain.FactorScores `json:"factor_scores"`
	Importance   json.RawMessage     `json:"importance"`

	SurpriseScore   float64         `json:"surprise_score"`
	ProminenceScore float64         `json:"prominence_score"`
	MagnitudeScore  float64         `json:"magnitude_score"`
	EmotionScore    float64         `json:"emotion_score"`
	ImportanceScore json.RawMessage `json:"importance_score"`
}

func (r rawDecision) factorScores() domain.FactorScores {
	if r.FactorScores != (domain.FactorScores{}) {
		return r.FactorScores
	}

	return domain.FactorScores{
		Surprise:   r.SurpriseScore,
		Prominence: r.ProminenceScore,
		Magnitude:  r.MagnitudeScore,
		Emotion:    r.EmotionScore,
	}
}

func (r rawDecision) importance() json.RawMessage {
	if len(r.Importance) > 0 {
		return r.Importance
	}

	return r.ImportanceScore
}

// ParseDecision decodes a judge response. It tries strict JSON first,
// then brace-scanning extraction, and salvages a malformed importance
// value from its first digit run. An unusable response returns
// ErrUnparsableDecision together with FallbackDecision().
func ParseDecision(raw string) (domain.ClusterDecision, error) {
	var parsed rawDecision

	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		extracted := llm.ExtractJSON(raw)
		if err := json.Unmarshal([]byte(extracted), &parsed); err != nil {
			return FallbackDecision(), fmt.Errorf("%w: %s", apperrors.ErrUnparsableDecision, firstLine(raw))
		}
	}

	decision := domain.ClusterDecision{
		Action:       parsed.Action,
		Subcategory:  parsed.Subcategory,
		Tags:         parsed.Tags,
		FactorScores: parsed.factorScores(),
		Importance:   parseImportance(parsed.importance()),
	}

	if parsed.ClusterID != nil {
		decision.ClusterID = *parsed.ClusterID
	}

	if decision.Action != domain.ActionJoinExisting && decision.Action != domain.ActionCreateNew {
		decision.Action = domain.ActionCreateNew
	}

	// Missing factor scores substitute a neutral 50.
	if decision.FactorScores == (domain.FactorScores{}) {
		decision.FactorScores = domain.FactorScores{
			Surprise:   defaultImportance,
			Prominence: defaultImportance,
			Magnitude:  defaultImportance,
			Emotion:    defaultImportance,
		}
	}

	decision.FactorScores = clampFactors(decision.FactorScores)

	if decision.Importance == 0 {
		if mean := decision.FactorScores.Mean(); mean > 0 {
			decision.Importance = mean
		} else {
			decision.Importance = defaultImportance
		}
	}

	return decision, nil
}

// clampFactors bounds each factor to the 1-100 scale the prompt asks
// for, so an out-of-range reply cannot skew the derived importance.
func clampFactors(f domain.FactorScores) domain.FactorScores {
	f.Surprise = clampScore(f.Surprise)
	f.Prominence = clampScore(f.Prominence)
	f.Magnitude = clampScore(f.Magnitude)
	f.Emotion = clampScore(f.Emotion)

	return f
}

func clampScore(v float64) float64 {
	switch {
	case v < 1:
		return 1
	case v > 100:
		return 100
	default:
		return v
	}
}

// FallbackDecision is applied when the judge response cannot be parsed:
// the article starts its own cluster with a neutral importance.
func FallbackDecision() domain.ClusterDecision {
	return domain.ClusterDecision{
		Action:     domain.ActionCreateNew,
		Importance: defaultImportance,
	}
}

// parseImportance accepts a number, a quoted number, or any string
// containing a digit run ("high (85)" yields 85).
func parseImportance(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return num
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		str = string(raw)
	}

	match := importanceDigits.FindString(str)
	if match == "" {
		return 0
	}

	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}

	return value
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}

	return truncateRunes(s, 200)
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	return string(runes[:max]) + "..."
}
