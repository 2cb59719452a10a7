package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/podsmith/podsmith/internal/core/domain"
	apperrors "github.com/podsmith/podsmith/internal/core/errors"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from domain.EpisodeStatus
		to   domain.EpisodeStatus
		want bool
	}{
		{"forward step", domain.StatusPending, domain.StatusDiscoveringArticles, true},
		{"forward skip", domain.StatusPending, domain.StatusGeneratingAudio, true},
		{"backward", domain.StatusGeneratingAudio, domain.StatusExtractingContent, false},
		{"self", domain.StatusFinalizing, domain.StatusFinalizing, false},
		{"fail from anywhere", domain.StatusGeneratingScript, domain.StatusFailed, true},
		{"fail from pending", domain.StatusPending, domain.StatusFailed, true},
		{"completed is terminal", domain.StatusCompleted, domain.StatusFailed, false},
		{"failed is terminal", domain.StatusFailed, domain.StatusPending, false},
		{"finish", domain.StatusFinalizing, domain.StatusCompleted, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestValidateTransition(t *testing.T) {
	assert.NoError(t, validateTransition(domain.StatusPending, domain.StatusDiscoveringArticles))

	err := validateTransition(domain.StatusCompleted, domain.StatusFailed)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestProgressIsMonotonic(t *testing.T) {
	order := []domain.EpisodeStatus{
		domain.StatusPending,
		domain.StatusDiscoveringArticles,
		domain.StatusExtractingContent,
		domain.StatusGeneratingScript,
		domain.StatusGeneratingAudio,
		domain.StatusGeneratingTimestamps,
		domain.StatusUploadingFiles,
		domain.StatusFinalizing,
		domain.StatusCompleted,
	}

	previous := -1
	for _, status := range order {
		assert.Greater(t, Progress(status), previous, "progress must grow at %s", status)
		previous = Progress(status)
	}

	assert.Equal(t, 100, Progress(domain.StatusCompleted))
}
