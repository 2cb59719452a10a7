package builder

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podsmith/podsmith/internal/core/domain"
	"github.com/podsmith/podsmith/internal/storage"
)

func newTestServer(t *testing.T, db *fakeEpisodeStore) *httptest.Server {
	t.Helper()

	logger := zerolog.Nop()
	b, _ := newBuilderForTest(db, &fakeDrafter{})

	server := NewServer(b, db, 0, &logger)
	server.base = context.Background()

	ts := httptest.NewServer(server.routes())
	t.Cleanup(ts.Close)

	return ts
}

func TestServerCreateAndPoll(t *testing.T) {
	db := newFakeEpisodeStore()
	db.candidates = []storage.EpisodeCandidate{candidateRow("c1", "Tennis", "Sports", 70)}

	ts := newTestServer(t, db)

	resp, err := http.Post(ts.URL+"/episodes", "application/json",
		strings.NewReader(`{"episode_id": "ep1", "subcategories": ["Tennis"], "duration_minutes": 5}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	assert.Equal(t, "ep1", accepted["episode_id"])

	// Generation runs in the background; poll until it lands.
	require.Eventually(t, func() bool {
		episode, err := db.GetEpisode(context.Background(), "ep1")

		return err == nil && episode.Status == domain.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	get, err := http.Get(ts.URL + "/episodes/ep1")
	require.NoError(t, err)
	defer get.Body.Close()

	require.Equal(t, http.StatusOK, get.StatusCode)

	var view map[string]any
	require.NoError(t, json.NewDecoder(get.Body).Decode(&view))
	assert.Equal(t, "completed", view["status"])
	assert.Equal(t, float64(100), view["progress"])
	assert.NotEmpty(t, view["audio_url"])
}

func TestServerGetUnknownEpisode(t *testing.T) {
	ts := newTestServer(t, newFakeEpisodeStore())

	resp, err := http.Get(ts.URL + "/episodes/nope")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerCreateRejectsBadBody(t *testing.T) {
	ts := newTestServer(t, newFakeEpisodeStore())

	resp, err := http.Post(ts.URL+"/episodes", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServerEventsStreamEndsOnTerminalState(t *testing.T) {
	db := newFakeEpisodeStore()
	db.episodes["ep1"] = &domain.Episode{ID: "ep1", Status: domain.StatusFailed, ErrorMessage: "boom"}

	ts := newTestServer(t, db)

	resp, err := http.Get(ts.URL + "/episodes/ep1/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data: "))

	var frame statusFrame
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &frame))

	assert.Equal(t, "ep1", frame.EpisodeID)
	assert.Equal(t, "failed", frame.Status)
	assert.Equal(t, "boom", frame.Error)

	// Terminal state: the stream closes after the first frame.
	_, err = reader.ReadString('\n') // trailing blank line
	require.NoError(t, err)
	_, err = reader.ReadString('\n')
	assert.Error(t, err)
}

func TestServerPlayback(t *testing.T) {
	db := newFakeEpisodeStore()
	db.episodes["ep1"] = &domain.Episode{ID: "ep1", Status: domain.StatusCompleted}

	ts := newTestServer(t, db)

	resp, err := http.Post(ts.URL+"/episodes/ep1/playback", "application/json",
		strings.NewReader(`{"progress": 123.5}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	episode, err := db.GetEpisode(context.Background(), "ep1")
	require.NoError(t, err)
	assert.InDelta(t, 123.5, episode.PlayProgress, 1e-9)
	require.NotNil(t, episode.PlayedAt)
	playedAt := *episode.PlayedAt

	// A later report advances the cursor but keeps the first played-at.
	resp2, err := http.Post(ts.URL+"/episodes/ep1/playback", "application/json",
		strings.NewReader(`{"progress": 300}`))
	require.NoError(t, err)
	resp2.Body.Close()

	episode, err = db.GetEpisode(context.Background(), "ep1")
	require.NoError(t, err)
	assert.InDelta(t, 300, episode.PlayProgress, 1e-9)
	assert.Equal(t, playedAt, *episode.PlayedAt)
}

func TestServerPlaybackUnknownEpisode(t *testing.T) {
	ts := newTestServer(t, newFakeEpisodeStore())

	resp, err := http.Post(ts.URL+"/episodes/nope/playback", "application/json",
		strings.NewReader(`{"progress": 10}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerHealthz(t *testing.T) {
	ts := newTestServer(t, newFakeEpisodeStore())

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
