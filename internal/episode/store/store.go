// Package store uploads episode artifacts (audio, transcript,
// chapters) to object storage and hands back their keys.
package store

import (
	"context"
	"fmt"
	"path"
)

// ObjectStore writes a single artifact.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Artifact content types.
const (
	ContentTypeMP3  = "audio/mpeg"
	ContentTypeJSON = "application/json"
	ContentTypeVTT  = "text/vtt"
)

// Keys computes the canonical artifact keys for an episode. A non-empty
// userID namespaces the keys under users/{id}/.
type Keys struct {
	Audio      string
	Transcript string
	Chapters   string
}

// KeysFor returns the artifact keys for one episode.
func KeysFor(episodeID, userID string) Keys {
	prefix := ""
	if userID != "" {
		prefix = path.Join("users", userID)
	}

	return Keys{
		Audio:      path.Join(prefix, "audio", episodeID+".mp3"),
		Transcript: path.Join(prefix, "transcripts", episodeID+".json"),
		Chapters:   path.Join(prefix, "vtt", episodeID+".vtt"),
	}
}

// Artifacts bundles the rendered episode files.
type Artifacts struct {
	MP3        []byte
	Transcript []byte
	Chapters   []byte
}

// Uploaded holds the stored locations of the three artifacts.
type Uploaded struct {
	AudioPath      string
	TranscriptPath string
	ChaptersPath   string
}

// Upload writes all three artifacts and returns their locations.
func Upload(ctx context.Context, objects ObjectStore, episodeID, userID string, artifacts Artifacts) (Uploaded, error) {
	keys := KeysFor(episodeID, userID)

	audioPath, err := objects.Put(ctx, keys.Audio, ContentTypeMP3, artifacts.MP3)
	if err != nil {
		return Uploaded{}, fmt.Errorf("upload audio: %w", err)
	}

	transcriptPath, err := objects.Put(ctx, keys.Transcript, ContentTypeJSON, artifacts.Transcript)
	if err != nil {
		return Uploaded{}, fmt.Errorf("upload transcript: %w", err)
	}

	chaptersPath, err := objects.Put(ctx, keys.Chapters, ContentTypeVTT, artifacts.Chapters)
	if err != nil {
		return Uploaded{}, fmt.Errorf("upload chapters: %w", err)
	}

	return Uploaded{
		AudioPath:      audioPath,
		TranscriptPath: transcriptPath,
		ChaptersPath:   chaptersPath,
	}, nil
}
