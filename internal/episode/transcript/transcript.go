// Package transcript aligns the drafted script with the synthesized
// audio into timed segments and a WebVTT chapter file.
package transcript

import (
	"github.com/podsmith/podsmith/internal/core/domain"
	"github.com/podsmith/podsmith/internal/episode/tts"
)

const (
	// Virtual pause inserted between paragraphs when per-word timings
	// are available. Timing-only: the audio itself is crossfaded.
	interParagraphPause = 0.25

	// Speaking rate assumed when the provider returns no word timings.
	fallbackWordsPerSecond = 2.67
)

// Build walks the script sections against their synthesized chunks and
// emits one timed segment per topic paragraph. Intro and outro advance
// the clock without producing a segment.
func Build(sections []domain.ScriptSection, chunks []tts.Chunk) []domain.TranscriptSegment {
	var segments []domain.TranscriptSegment

	clock := 0.0

	for i, section := range sections {
		var chunk tts.Chunk
		if i < len(chunks) {
			chunk = chunks[i]
		}

		duration, words := sectionTiming(section.Text, chunk)

		if section.Kind == domain.SectionTopic {
			segment := domain.TranscriptSegment{
				Index:     len(segments),
				Topic:     section.Topic,
				Category:  section.Category,
				Text:      section.Text,
				SourceIDs: section.ClusterIDs,
				StartTime: clock,
				EndTime:   clock + duration,
			}

			for _, w := range words {
				segment.Words = append(segment.Words, domain.WordStamp{
					Word:  w.Word,
					Start: clock + w.Start,
					End:   clock + w.End,
				})
			}

			segments = append(segments, segment)
		}

		clock += duration

		if len(words) > 0 {
			clock += interParagraphPause
		}
	}

	return segments
}

// sectionTiming returns the spoken duration of one paragraph and the
// provider word stamps when present. Without stamps the duration falls
// back to a uniform speaking rate over the paragraph's word count.
func sectionTiming(text string, chunk tts.Chunk) (float64, []domain.WordStamp) {
	if len(chunk.Words) > 0 {
		duration := chunk.Words[len(chunk.Words)-1].End
		if audio := chunk.Seconds(); audio > duration {
			duration = audio
		}

		return duration, chunk.Words
	}

	if audio := chunk.Seconds(); audio > 0 {
		return audio, nil
	}

	return float64(wordCount(text)) / fallbackWordsPerSecond, nil
}

func wordCount(text string) int {
	count := 0
	inWord := false

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
