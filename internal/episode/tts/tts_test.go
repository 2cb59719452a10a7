package tts

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mu       sync.Mutex
	inFlight int
	peak     int

	failOn map[string]bool
}

func (f *fakeClient) SampleRate() int { return 24000 }

func (f *fakeClient) Synthesize(_ context.Context, text string) (Chunk, error) {
	f.mu.Lock()
	f.inFlight++

	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.failOn[text] {
		return Chunk{}, errors.New("synthesis error")
	}

	// One sample per input byte keeps chunks distinguishable.
	return Chunk{PCM: make([]int16, len(text)), SampleRate: 24000}, nil
}

func TestRenderAllPreservesOrder(t *testing.T) {
	logger := zerolog.Nop()
	renderer := NewRenderer(&fakeClient{}, RendererConfig{}, &logger)

	texts := []string{"a", "bb", "ccc"}

	chunks, err := renderer.RenderAll(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, text := range texts {
		assert.Len(t, chunks[i].PCM, len(text))
	}
}

func TestRenderAllSubstitutesSilence(t *testing.T) {
	logger := zerolog.Nop()
	client := &fakeClient{failOn: map[string]bool{"bad": true}}
	renderer := NewRenderer(client, RendererConfig{}, &logger)

	chunks, err := renderer.RenderAll(context.Background(), []string{"good one", "bad"})
	require.NoError(t, err)

	assert.False(t, chunks[0].Silence)
	assert.True(t, chunks[1].Silence)
	// Two seconds of silence at the provider's sample rate.
	assert.Len(t, chunks[1].PCM, 48000)
	assert.InDelta(t, 2.0, chunks[1].Seconds(), 1e-9)
}

func TestRenderAllBatchesBoundConcurrency(t *testing.T) {
	logger := zerolog.Nop()
	client := &fakeClient{}
	renderer := NewRenderer(client, RendererConfig{BatchSize: 3}, &logger)

	var texts []string
	for i := 0; i < 10; i++ {
		texts = append(texts, "text "+strconv.Itoa(i))
	}

	_, err := renderer.RenderAll(context.Background(), texts)
	require.NoError(t, err)

	assert.LessOrEqual(t, client.peak, 3)
}

func TestRenderAllCanceled(t *testing.T) {
	logger := zerolog.Nop()
	renderer := NewRenderer(&fakeClient{}, RendererConfig{}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := renderer.RenderAll(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockTimingsCoverEveryWord(t *testing.T) {
	mock := NewMock(24000)

	chunk, err := mock.Synthesize(context.Background(), "one two three")
	require.NoError(t, err)

	require.Len(t, chunk.Words, 3)
	assert.Equal(t, "three", chunk.Words[2].Word)
	assert.InDelta(t, chunk.Seconds(), chunk.Words[2].End, 1e-9)
	assert.Less(t, chunk.Words[0].End, chunk.Words[1].End)
}
