package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/podsmith/podsmith/internal/core/domain"
	apperrors "github.com/podsmith/podsmith/internal/core/errors"
)

// CreateEpisode persists a new pending episode.
func (db *DB) CreateEpisode(ctx context.Context, episode *domain.Episode) error {
	subcategories := episode.Subcategories
	if subcategories == nil {
		subcategories = []string{}
	}

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO episodes (id, user_id, status, progress, subcategories, created_at)
		VALUES ($1, $2, $3, $4, $5, now())`,
		toUUID(episode.ID), episode.UserID, string(episode.Status), episode.Progress, subcategories,
	)
	if err != nil {
		return fmt.Errorf("create episode: %w", err)
	}

	return nil
}

// UpdateEpisodeStatus records a stage transition with its progress percent.
func (db *DB) UpdateEpisodeStatus(ctx context.Context, id string, status domain.EpisodeStatus, progress int) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE episodes SET status = $2, progress = $3 WHERE id = $1`,
		toUUID(id), string(status), progress,
	)
	if err != nil {
		return fmt.Errorf("update episode status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("episode %s: %w", id, apperrors.ErrEpisodeNotFound)
	}

	return nil
}

// FailEpisode marks an episode failed with the given message.
func (db *DB) FailEpisode(ctx context.Context, id, message string) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE episodes SET status = $2, error_message = $3 WHERE id = $1`,
		toUUID(id), string(domain.StatusFailed), toText(message),
	)
	if err != nil {
		return fmt.Errorf("fail episode: %w", err)
	}

	return nil
}

// SetEpisodeMetadata stores the drafted title and description.
func (db *DB) SetEpisodeMetadata(ctx context.Context, id, title, description string) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE episodes SET title = $2, description = $3 WHERE id = $1`,
		toUUID(id), toText(title), toText(description),
	)
	if err != nil {
		return fmt.Errorf("set episode metadata: %w", err)
	}

	return nil
}

// CompleteEpisode stores artifact paths and marks the episode completed.
func (db *DB) CompleteEpisode(ctx context.Context, episode *domain.Episode) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE episodes
		SET status = $2, progress = 100,
		    audio_path = $3, transcript_path = $4, chapters_path = $5,
		    duration_seconds = $6, completed_at = now()
		WHERE id = $1`,
		toUUID(episode.ID),
		string(domain.StatusCompleted),
		toText(episode.AudioPath),
		toText(episode.TranscriptPath),
		toText(episode.ChaptersPath),
		episode.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("complete episode: %w", err)
	}

	return nil
}

// GetEpisode loads one episode.
func (db *DB) GetEpisode(ctx context.Context, id string) (*domain.Episode, error) {
	var (
		e                              domain.Episode
		episodeID                      pgtype.UUID
		title, description, errMessage pgtype.Text
		audio, transcript, chapters    pgtype.Text
		status                         string
		createdAt, completedAt         pgtype.Timestamptz
		playedAt                       pgtype.Timestamptz
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT id, user_id, title, description, status, progress, error_message,
		       audio_path, transcript_path, chapters_path, duration_seconds,
		       subcategories, play_progress, created_at, completed_at, played_at
		FROM episodes WHERE id = $1`,
		toUUID(id),
	).Scan(&episodeID, &e.UserID, &title, &description, &status, &e.Progress, &errMessage,
		&audio, &transcript, &chapters, &e.DurationSeconds,
		&e.Subcategories, &e.PlayProgress, &createdAt, &completedAt, &playedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("episode %s: %w", id, apperrors.ErrEpisodeNotFound)
		}

		return nil, fmt.Errorf("get episode: %w", err)
	}

	e.ID = fromUUID(episodeID)
	e.Title = fromText(title)
	e.Description = fromText(description)
	e.Status = domain.EpisodeStatus(status)
	e.ErrorMessage = fromText(errMessage)
	e.AudioPath = fromText(audio)
	e.TranscriptPath = fromText(transcript)
	e.ChaptersPath = fromText(chapters)
	e.CreatedAt = fromTimestamptz(createdAt)

	if completedAt.Valid {
		t := completedAt.Time
		e.CompletedAt = &t
	}

	if playedAt.Valid {
		t := playedAt.Time
		e.PlayedAt = &t
	}

	return &e, nil
}

// RecordEpisodePlayback advances the play cursor. The played-at
// timestamp is written once, on the first playback report.
func (db *DB) RecordEpisodePlayback(ctx context.Context, id string, progress float64) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE episodes
		SET play_progress = $2, played_at = COALESCE(played_at, now())
		WHERE id = $1`,
		toUUID(id), progress,
	)
	if err != nil {
		return fmt.Errorf("record episode playback: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("episode %s: %w", id, apperrors.ErrEpisodeNotFound)
	}

	return nil
}

// SaveEpisodeClusters records which clusters an episode covered,
// in presentation order.
func (db *DB) SaveEpisodeClusters(ctx context.Context, episodeID string, clusterIDs []string) error {
	for i, clusterID := range clusterIDs {
		_, err := db.Pool.Exec(ctx, `
			INSERT INTO episode_clusters (episode_id, cluster_id, position)
			VALUES ($1, $2, $3)
			ON CONFLICT (episode_id, cluster_id) DO NOTHING`,
			toUUID(episodeID), toUUID(clusterID), i,
		)
		if err != nil {
			return fmt.Errorf("save episode cluster: %w", err)
		}
	}

	return nil
}

// HeardClusterIDs returns the clusters covered by a user's completed
// episodes. These are excluded from future selections.
func (db *DB) HeardClusterIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT DISTINCT ec.cluster_id
		FROM episode_clusters ec
		JOIN episodes e ON e.id = ec.episode_id
		WHERE e.user_id = $1 AND e.status = $2`,
		userID, string(domain.StatusCompleted),
	)
	if err != nil {
		return nil, fmt.Errorf("query heard clusters: %w", err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id pgtype.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan heard cluster: %w", err)
		}

		ids = append(ids, fromUUID(id))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate heard clusters: %w", err)
	}

	return ids, nil
}
