// Package domain defines the core data types shared across the application.
// Types here carry no behavior beyond trivial accessors; persistence and
// business logic live in the storage and pipeline packages.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// FactorScores holds the four judged dimensions of story importance.
// Each score is on a 1-100 scale; the overall importance is their mean.
type FactorScores struct {
	Surprise   float64 `json:"surprise"`
	Prominence float64 `json:"prominence"`
	Magnitude  float64 `json:"magnitude"`
	Emotion    float64 `json:"emotion"`
}

// Mean returns the average of the four factor scores.
func (f FactorScores) Mean() float64 {
	return (f.Surprise + f.Prominence + f.Magnitude + f.Emotion) / 4
}

// Article is a single ingested news article.
type Article struct {
	ID             string
	ClusterID      string
	URL            string
	UniquenessHash string
	Title          string
	Summary        string
	Content        string
	SourceName     string
	Category       string
	Subcategory    string
	Tags           []string
	FactorScores   FactorScores
	Importance     float64
	Language       string
	Embedding      []float32
	PublishedAt    time.Time
	CreatedAt      time.Time
}

// SimilarArticle pairs an article with its cosine similarity to a probe embedding.
type SimilarArticle struct {
	Article
	Similarity float64
}

// StoryCluster groups articles covering the same real-world event.
// Title is the canonical title: the title of the article that created
// the cluster, never mutated afterwards.
type StoryCluster struct {
	ID           string
	Title        string
	Category     string
	Subcategory  string
	Tags         []string
	Importance   float64
	ArticleCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Decision actions returned by the clustering judge.
const (
	ActionJoinExisting = "join_existing"
	ActionCreateNew    = "create_new"
)

// ClusterDecision is the judge's verdict for a single article.
type ClusterDecision struct {
	Action       string       `json:"action"`
	ClusterID    string       `json:"cluster_id"`
	Subcategory  string       `json:"subcategory"`
	Tags         []string     `json:"tags"`
	FactorScores FactorScores `json:"factor_scores"`
	Importance   float64      `json:"importance"`
}

// EpisodeStatus is the lifecycle state of an episode.
type EpisodeStatus string

// Episode lifecycle states, in pipeline order.
const (
	StatusPending              EpisodeStatus = "pending"
	StatusDiscoveringArticles  EpisodeStatus = "discovering_articles"
	StatusExtractingContent    EpisodeStatus = "extracting_content"
	StatusGeneratingScript     EpisodeStatus = "generating_script"
	StatusGeneratingAudio      EpisodeStatus = "generating_audio"
	StatusGeneratingTimestamps EpisodeStatus = "generating_timestamps"
	StatusUploadingFiles       EpisodeStatus = "uploading_files"
	StatusFinalizing           EpisodeStatus = "finalizing"
	StatusCompleted            EpisodeStatus = "completed"
	StatusFailed               EpisodeStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s EpisodeStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Episode is a generated audio briefing for one user.
type Episode struct {
	ID              string
	UserID          string
	Title           string
	Description     string
	Subcategories   []string
	Status          EpisodeStatus
	Progress        int
	ErrorMessage    string
	AudioPath       string
	TranscriptPath  string
	ChaptersPath    string
	DurationSeconds float64
	ClusterIDs      []string
	PlayProgress    float64
	CreatedAt       time.Time
	CompletedAt     *time.Time
	PlayedAt        *time.Time
}

// WordStamp is a word-level timestamp within a synthesized segment,
// in seconds relative to the segment start.
type WordStamp struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TranscriptSegment is a paragraph of the episode transcript with
// absolute timing against the rendered audio.
type TranscriptSegment struct {
	Index     int         `json:"index"`
	Topic     string      `json:"topic,omitempty"`
	Category  string      `json:"category,omitempty"`
	Text      string      `json:"text"`
	SourceIDs []string    `json:"source_ids,omitempty"`
	StartTime float64     `json:"start_time"`
	EndTime   float64     `json:"end_time"`
	Words     []WordStamp `json:"words,omitempty"`
}

// Section kinds within a podcast script.
const (
	SectionIntro = "intro"
	SectionTopic = "topic"
	SectionOutro = "outro"
)

// ScriptSection is one spoken paragraph of the episode script.
type ScriptSection struct {
	Kind       string
	Topic      string
	Category   string
	Text       string
	ClusterIDs []string
}

// Script is the fully drafted episode script.
type Script struct {
	Title            string
	Tone             string
	Description      string
	Sections         []ScriptSection
	EstimatedSeconds float64
}

// WordCount returns the total spoken word count across all sections.
func (s *Script) WordCount() int {
	total := 0
	for _, sec := range s.Sections {
		total += countWords(sec.Text)
	}

	return total
}

func countWords(text string) int {
	inWord := false
	count := 0

	for _, r := range text {
		switch {
		case r == ' ' || r == '\n' || r == '\t' || r == '\r':
			inWord = false
		case !inWord:
			inWord = true
			count++
		}
	}

	return count
}

// NewID returns a new random entity id.
func NewID() string {
	return uuid.NewString()
}
