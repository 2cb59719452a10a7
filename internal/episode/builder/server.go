package builder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/podsmith/podsmith/internal/core/domain"
	apperrors "github.com/podsmith/podsmith/internal/core/errors"
	"github.com/podsmith/podsmith/internal/platform/worker"
)

const (
	generationTimeout  = 15 * time.Minute
	statusPushInterval = 2 * time.Second
	shutdownTimeout    = 5 * time.Second
)

// Server exposes the episode API: request an episode, poll its row, or
// stream status frames until it reaches a terminal state.
type Server struct {
	builder *Builder
	db      EpisodeStore
	port    int
	logger  *zerolog.Logger

	base context.Context
}

// NewServer creates the episode HTTP server.
func NewServer(builder *Builder, db EpisodeStore, port int, logger *zerolog.Logger) *Server {
	return &Server{builder: builder, db: db, port: port, logger: logger}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /episodes", s.handleCreate)
	mux.HandleFunc("GET /episodes/{id}", s.handleGet)
	mux.HandleFunc("GET /episodes/{id}/events", s.handleEvents)
	mux.HandleFunc("POST /episodes/{id}/playback", s.handlePlayback)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return mux
}

// Start serves until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.base = ctx

	mux := s.routes()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("episode server shutdown")
		}
	}()

	s.logger.Info().Int("port", s.port).Msg("episode server listening")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("episode server: %w", err)
	}

	return nil
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")

		return
	}

	if req.EpisodeID == "" {
		req.EpisodeID = domain.NewID()
	}

	// Generation outlives the request; the episode row carries progress.
	go func() {
		defer worker.RecoverPanic(s.logger, "episode generation")

		err := worker.RunWithTimeout(context.WithoutCancel(s.base), generationTimeout, func(ctx context.Context) error {
			return s.builder.Generate(ctx, req)
		})
		if err != nil && !apperrors.Is(err, apperrors.ErrEpisodeInFlight) {
			s.logger.Warn().Err(err).Str("episode_id", req.EpisodeID).Msg("generation failed")
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"episode_id": req.EpisodeID}) //nolint:errcheck
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	episode, err := s.db.GetEpisode(r.Context(), r.PathValue("id"))
	if err != nil {
		if apperrors.Is(err, apperrors.ErrEpisodeNotFound) {
			writeError(w, http.StatusNotFound, "episode not found")

			return
		}

		s.logger.Error().Err(err).Msg("episode lookup failed")
		writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(episodeView(episode)) //nolint:errcheck
}

// handlePlayback records how far the listener got. The first report
// also stamps the episode as played.
func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Progress float64 `json:"progress"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Progress < 0 {
		writeError(w, http.StatusBadRequest, "invalid request body")

		return
	}

	if err := s.db.RecordEpisodePlayback(r.Context(), r.PathValue("id"), body.Progress); err != nil {
		if apperrors.Is(err, apperrors.ErrEpisodeNotFound) {
			writeError(w, http.StatusNotFound, "episode not found")

			return
		}

		s.logger.Error().Err(err).Msg("playback update failed")
		writeError(w, http.StatusInternalServerError, "internal error")

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// statusFrame is one server-push update.
type statusFrame struct {
	EpisodeID string `json:"episode_id"`
	Status    string `json:"status"`
	Stage     string `json:"stage"`
	Progress  int    `json:"progress"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

// handleEvents streams status frames as server-sent events every two
// seconds until the episode reaches a terminal state.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")

		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	id := r.PathValue("id")

	ticker := time.NewTicker(statusPushInterval)
	defer ticker.Stop()

	for {
		episode, err := s.db.GetEpisode(r.Context(), id)
		if err != nil {
			return
		}

		frame := statusFrame{
			EpisodeID: episode.ID,
			Status:    string(episode.Status),
			Stage:     string(episode.Status),
			Progress:  episode.Progress,
			Error:     episode.ErrorMessage,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		payload, _ := json.Marshal(frame)

		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()

		if episode.Status.Terminal() {
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// episodeView is the public shape of an episode row.
func episodeView(e *domain.Episode) map[string]any {
	view := map[string]any{
		"episode_id": e.ID,
		"status":     string(e.Status),
		"progress":   e.Progress,
		"created_at": e.CreatedAt.UTC().Format(time.RFC3339),
	}

	if e.Title != "" {
		view["title"] = e.Title
	}

	if e.Description != "" {
		view["description"] = e.Description
	}

	if e.ErrorMessage != "" {
		view["error"] = e.ErrorMessage
	}

	if len(e.Subcategories) > 0 {
		view["subcategories"] = e.Subcategories
	}

	if e.PlayedAt != nil {
		view["play_progress"] = e.PlayProgress
		view["played_at"] = e.PlayedAt.UTC().Format(time.RFC3339)
	}

	if e.Status == domain.StatusCompleted {
		view["audio_url"] = e.AudioPath
		view["transcript_url"] = e.TranscriptPath
		view["chapters_url"] = e.ChaptersPath
		view["duration_seconds"] = e.DurationSeconds
	}

	return view
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message}) //nolint:errcheck
}
