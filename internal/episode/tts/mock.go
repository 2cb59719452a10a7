package tts

import (
	"context"
	"strings"

	"github.com/podsmith/podsmith/internal/core/domain"
)

// Mock synthesizes deterministic audio offline: a fixed number of
// samples per word plus evenly spaced word timings.
type Mock struct {
	rate int
}

// NewMock creates a mock synthesis client.
func NewMock(sampleRate int) *Mock {
	if sampleRate == 0 {
		sampleRate = defaultSampleRate
	}

	return &Mock{rate: sampleRate}
}

// Samples per spoken word, roughly 2.5 words per second at 24 kHz.
const mockSamplesPerWord = 9600

func (m *Mock) SampleRate() int {
	return m.rate
}

func (m *Mock) Synthesize(_ context.Context, text string) (Chunk, error) {
	words := strings.Fields(text)

	perWord := float64(mockSamplesPerWord) / float64(m.rate)
	stamps := make([]domain.WordStamp, len(words))

	for i, word := range words {
		stamps[i] = domain.WordStamp{
			Word:  word,
			Start: float64(i) * perWord,
			End:   float64(i+1) * perWord,
		}
	}

	return Chunk{
		PCM:        make([]int16, len(words)*mockSamplesPerWord),
		SampleRate: m.rate,
		Words:      stamps,
	}, nil
}
