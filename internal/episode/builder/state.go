package builder

import (
	"fmt"

	"github.com/podsmith/podsmith/internal/core/domain"
	apperrors "github.com/podsmith/podsmith/internal/core/errors"
)

// stageOrder is the forward path of the episode state machine.
var stageOrder = map[domain.EpisodeStatus]int{
	domain.StatusPending:              0,
	domain.StatusDiscoveringArticles:  1,
	domain.StatusExtractingContent:    2,
	domain.StatusGeneratingScript:     3,
	domain.StatusGeneratingAudio:      4,
	domain.StatusGeneratingTimestamps: 5,
	domain.StatusUploadingFiles:       6,
	domain.StatusFinalizing:           7,
	domain.StatusCompleted:            8,
}

// stageProgress is the percentage reported at each stage entry.
var stageProgress = map[domain.EpisodeStatus]int{
	domain.StatusPending:              0,
	domain.StatusDiscoveringArticles:  10,
	domain.StatusExtractingContent:    20,
	domain.StatusGeneratingScript:     40,
	domain.StatusGeneratingAudio:      60,
	domain.StatusGeneratingTimestamps: 80,
	domain.StatusUploadingFiles:       90,
	domain.StatusFinalizing:           95,
	domain.StatusCompleted:            100,
}

// CanTransition reports whether the state machine admits the move.
// Forward-only along the pipeline; failed is reachable from any
// non-terminal state.
func CanTransition(from, to domain.EpisodeStatus) bool {
	if from.Terminal() {
		return false
	}

	if to == domain.StatusFailed {
		return true
	}

	fromRank, ok := stageOrder[from]
	if !ok {
		return false
	}

	toRank, ok := stageOrder[to]
	if !ok {
		return false
	}

	return toRank > fromRank
}

// Progress returns the progress percent reported for a status.
func Progress(status domain.EpisodeStatus) int {
	return stageProgress[status]
}

func validateTransition(from, to domain.EpisodeStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%s -> %s: %w", from, to, apperrors.ErrInvalidTransition)
	}

	return nil
}
