package transcript

import (
	"fmt"
	"strings"

	"github.com/podsmith/podsmith/internal/core/domain"
	apperrors "github.com/podsmith/podsmith/internal/core/errors"
)

const cueTextLimit = 50

// WriteVTT renders the chapter file: one cue per transcript segment,
// labeled with the topic name when the segment has one.
func WriteVTT(segments []domain.TranscriptSegment) string {
	var sb strings.Builder

	sb.WriteString("WEBVTT\n\n")

	for i, segment := range segments {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n",
			i+1, vttTimestamp(segment.StartTime), vttTimestamp(segment.EndTime), cueText(segment))
	}

	return sb.String()
}

func cueText(segment domain.TranscriptSegment) string {
	if segment.Topic != "" {
		return segment.Topic
	}

	runes := []rune(segment.Text)
	if len(runes) > cueTextLimit {
		runes = runes[:cueTextLimit]
	}

	return string(runes)
}

// ParseVTT decodes a chapter file in the subset WriteVTT produces:
// numbered cues with one timing line and one line of cue text.
// Re-serializing the parsed cues with WriteVTT reproduces the file.
func ParseVTT(s string) ([]domain.TranscriptSegment, error) {
	blocks := strings.Split(strings.TrimSpace(s), "\n\n")
	if strings.TrimSpace(blocks[0]) != "WEBVTT" {
		return nil, fmt.Errorf("%w: missing WEBVTT header", apperrors.ErrMalformedChapters)
	}

	var segments []domain.TranscriptSegment

	for _, block := range blocks[1:] {
		lines := strings.Split(strings.TrimSpace(block), "\n")

		// The optional cue identifier precedes the timing line.
		if len(lines) > 1 && !strings.Contains(lines[0], "-->") {
			lines = lines[1:]
		}

		if len(lines) < 2 || !strings.Contains(lines[0], "-->") {
			return nil, fmt.Errorf("%w: cue without timing line", apperrors.ErrMalformedChapters)
		}

		startRaw, endRaw, _ := strings.Cut(lines[0], "-->")

		start, err := parseVTTTimestamp(strings.TrimSpace(startRaw))
		if err != nil {
			return nil, err
		}

		end, err := parseVTTTimestamp(strings.TrimSpace(endRaw))
		if err != nil {
			return nil, err
		}

		segments = append(segments, domain.TranscriptSegment{
			Text:      strings.Join(lines[1:], "\n"),
			StartTime: start,
			EndTime:   end,
		})
	}

	return segments, nil
}

func parseVTTTimestamp(s string) (float64, error) {
	var (
		hours, minutes int
		seconds        float64
	)

	if _, err := fmt.Sscanf(s, "%d:%d:%f", &hours, &minutes, &seconds); err != nil {
		return 0, fmt.Errorf("%w: bad timestamp %q", apperrors.ErrMalformedChapters, s)
	}

	return float64(hours*3600+minutes*60) + seconds, nil
}

// vttTimestamp formats seconds as HH:MM:SS.mmm.
func vttTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}

	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	rest := seconds - float64(hours*3600+minutes*60)

	return fmt.Sprintf("%02d:%02d:%06.3f", hours, minutes, rest)
}
