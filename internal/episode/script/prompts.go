package script

import (
	"fmt"
	"sort"
	"strings"

	"github.com/podsmith/podsmith/internal/episode/content"
)

const (
	metadataArticleLimit = 3
	summaryTitleLimit    = 8
	bodyCharLimit        = 5000
)

// Shared constraints applied to every drafting prompt.
const styleRules = `Rules:
- Plain spoken text only. No markdown, no asterisks, no special characters, no stage directions.
- Use only information present in the provided sources. Do not invent facts.
`

func buildMetadataPrompt(articles []content.SourcedArticle) string {
	var sb strings.Builder

	sb.WriteString(`You are naming a short daily news audio briefing.
Based on the top stories below, choose an episode title (under 10 words)
and a delivery tone (2-4 words, e.g. "calm and informative").

`)
	sb.WriteString(styleRules)
	sb.WriteString("\nRespond with JSON only: {\"title\": \"...\", \"tone\": \"...\"}\n\nTop stories:\n")

	for i, article := range topByImportance(articles, metadataArticleLimit) {
		fmt.Fprintf(&sb, "[%d] %s — %s\n", i+1, article.Title, article.Summary)
	}

	return sb.String()
}

func buildSummaryPrompt(title, tone string, articles []content.SourcedArticle) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, `Write a one-paragraph episode description (2-3 sentences) for an audio
briefing titled %q. Tone: %s.

`, title, tone)
	sb.WriteString(styleRules)
	sb.WriteString("\nStories covered:\n")

	for _, article := range topByImportance(articles, summaryTitleLimit) {
		fmt.Fprintf(&sb, "- %s\n", article.Title)
	}

	return sb.String()
}

func buildFramingPrompt(tone, listenerName string) string {
	var sb strings.Builder

	sb.WriteString(`Write the opening and closing lines for a short daily news audio
briefing. The intro is one or two sentences welcoming the listener; the
outro is one sentence signing off.
`)

	fmt.Fprintf(&sb, "Tone: %s.\n", tone)

	if listenerName != "" {
		fmt.Fprintf(&sb, "Address the listener by name: %s.\n", listenerName)
	}

	sb.WriteString("\n")
	sb.WriteString(styleRules)
	sb.WriteString("\nRespond with JSON only: {\"intro\": \"...\", \"outro\": \"...\"}\n")

	return sb.String()
}

func buildTopicPrompt(topic Topic, tone string) string {
	minWords, maxWords := wordWindow(topic.WordBudget)

	var sb strings.Builder

	fmt.Fprintf(&sb, `Write the %q segment of a spoken news briefing. Cover every story
below, giving more depth to the first ones. Tone: %s.
The segment MUST be between %d and %d words.

`, topic.Name, tone, minWords, maxWords)
	sb.WriteString(styleRules)
	sb.WriteString("\nSources:\n")

	for i, article := range topic.Articles {
		fmt.Fprintf(&sb, "\n[%d] %s\n%s\n", i+1, article.Title, truncateChars(article.Body, bodyCharLimit))
	}

	return sb.String()
}

// wordWindow is the hard length constraint given to a topic writer.
func wordWindow(budget int) (int, int) {
	return int(0.85 * float64(budget)), int(1.05 * float64(budget))
}

func topByImportance(articles []content.SourcedArticle, limit int) []content.SourcedArticle {
	sorted := make([]content.SourcedArticle, len(articles))
	copy(sorted, articles)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Importance > sorted[j].Importance
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	return sorted
}

func truncateChars(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	return string(runes[:max])
}
