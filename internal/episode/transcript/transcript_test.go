package transcript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podsmith/podsmith/internal/core/domain"
	apperrors "github.com/podsmith/podsmith/internal/core/errors"
	"github.com/podsmith/podsmith/internal/episode/tts"
)

func stampedChunk(words ...string) tts.Chunk {
	chunk := tts.Chunk{SampleRate: 1000}

	for i, word := range words {
		chunk.Words = append(chunk.Words, domain.WordStamp{
			Word:  word,
			Start: float64(i),
			End:   float64(i + 1),
		})
	}

	chunk.PCM = make([]int16, len(words)*1000)

	return chunk
}

func TestBuildSkipsFramingButAdvancesClock(t *testing.T) {
	sections := []domain.ScriptSection{
		{Kind: domain.SectionIntro, Text: "welcome listener"},
		{Kind: domain.SectionTopic, Topic: "Tennis", Category: "Sports", Text: "one two three", ClusterIDs: []string{"c1", "c2"}},
		{Kind: domain.SectionOutro, Text: "bye"},
	}

	chunks := []tts.Chunk{
		stampedChunk("welcome", "listener"),
		stampedChunk("one", "two", "three"),
		stampedChunk("bye"),
	}

	segments := Build(sections, chunks)

	require.Len(t, segments, 1)

	segment := segments[0]
	assert.Equal(t, "Tennis", segment.Topic)
	assert.Equal(t, []string{"c1", "c2"}, segment.SourceIDs)
	// The intro lasts 2 s plus the 250 ms inter-paragraph pause.
	assert.InDelta(t, 2.25, segment.StartTime, 1e-9)
	assert.InDelta(t, 5.25, segment.EndTime, 1e-9)

	require.Len(t, segment.Words, 3)
	assert.InDelta(t, 2.25, segment.Words[0].Start, 1e-9)
	assert.InDelta(t, 5.25, segment.Words[2].End, 1e-9)
}

func TestBuildUniformFallbackWithoutStamps(t *testing.T) {
	sections := []domain.ScriptSection{
		{Kind: domain.SectionTopic, Topic: "Tennis", Text: "one two three four"},
	}

	// No chunk at all: duration comes from the word count at 2.67 w/s.
	segments := Build(sections, nil)

	require.Len(t, segments, 1)
	assert.InDelta(t, 4.0/2.67, segments[0].EndTime, 1e-9)
	assert.Empty(t, segments[0].Words)
}

func TestBuildUsesAudioDurationWithoutStamps(t *testing.T) {
	sections := []domain.ScriptSection{
		{Kind: domain.SectionTopic, Topic: "Tennis", Text: "one two"},
		{Kind: domain.SectionTopic, Topic: "Soccer", Text: "four five"},
	}

	// 3 s of audio, no word timings. No virtual pause in that case.
	chunks := []tts.Chunk{
		{PCM: make([]int16, 3000), SampleRate: 1000},
		{PCM: make([]int16, 2000), SampleRate: 1000},
	}

	segments := Build(sections, chunks)

	require.Len(t, segments, 2)
	assert.InDelta(t, 3.0, segments[0].EndTime, 1e-9)
	assert.InDelta(t, 3.0, segments[1].StartTime, 1e-9)
	assert.InDelta(t, 5.0, segments[1].EndTime, 1e-9)
}

func TestBuildSegmentIndexesAreDense(t *testing.T) {
	sections := []domain.ScriptSection{
		{Kind: domain.SectionIntro, Text: "hi"},
		{Kind: domain.SectionTopic, Topic: "A", Text: "a"},
		{Kind: domain.SectionTopic, Topic: "B", Text: "b"},
	}

	segments := Build(sections, nil)

	require.Len(t, segments, 2)
	assert.Equal(t, 0, segments[0].Index)
	assert.Equal(t, 1, segments[1].Index)
}

func TestWriteVTT(t *testing.T) {
	segments := []domain.TranscriptSegment{
		{Topic: "World News", StartTime: 2.25, EndTime: 65.5},
		{Text: strings.Repeat("x", 60), StartTime: 65.75, EndTime: 3725.123},
	}

	vtt := WriteVTT(segments)

	assert.True(t, strings.HasPrefix(vtt, "WEBVTT\n\n"))
	assert.Contains(t, vtt, "00:00:02.250 --> 00:01:05.500\nWorld News")
	// A topicless cue falls back to the first 50 characters.
	assert.Contains(t, vtt, "01:02:05.123\n"+strings.Repeat("x", 50)+"\n")
}

func TestVTTRoundTrip(t *testing.T) {
	segments := []domain.TranscriptSegment{
		{Topic: "World News", StartTime: 0, EndTime: 42.5},
		{Text: strings.Repeat("y", 60), StartTime: 42.5, EndTime: 3725.044},
	}

	rendered := WriteVTT(segments)

	parsed, err := ParseVTT(rendered)
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	assert.Equal(t, "World News", parsed[0].Text)
	assert.InDelta(t, 42.5, parsed[0].EndTime, 1e-9)
	assert.Equal(t, strings.Repeat("y", 50), parsed[1].Text)
	assert.InDelta(t, 42.5, parsed[1].StartTime, 1e-9)
	assert.InDelta(t, 3725.044, parsed[1].EndTime, 1e-9)

	// Parse then re-serialize reproduces the file byte for byte.
	assert.Equal(t, rendered, WriteVTT(parsed))
}

func TestParseVTTMalformed(t *testing.T) {
	_, err := ParseVTT("not a chapter file")
	assert.ErrorIs(t, err, apperrors.ErrMalformedChapters)

	_, err = ParseVTT("WEBVTT\n\n1\nno timing line here\n")
	assert.ErrorIs(t, err, apperrors.ErrMalformedChapters)
}

func TestVTTTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:00.000", vttTimestamp(0))
	assert.Equal(t, "00:01:05.500", vttTimestamp(65.5))
	assert.Equal(t, "01:02:05.123", vttTimestamp(3725.123))
	assert.Equal(t, "00:00:00.000", vttTimestamp(-1))
}
