package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"
)

// DefaultBitrate is the MP3 export bitrate.
const DefaultBitrate = "128k"

// MP3Encoder turns a WAV stream into MP3.
type MP3Encoder interface {
	EncodeMP3(ctx context.Context, wav []byte) ([]byte, error)
}

// FFmpegEncoder shells out to ffmpeg for the MP3 export.
type FFmpegEncoder struct {
	Path    string
	Bitrate string
	Logger  *zerolog.Logger
}

// NewFFmpegEncoder creates an encoder using the given ffmpeg binary.
func NewFFmpegEncoder(path, bitrate string, logger *zerolog.Logger) *FFmpegEncoder {
	if path == "" {
		path = "ffmpeg"
	}

	if bitrate == "" {
		bitrate = DefaultBitrate
	}

	return &FFmpegEncoder{Path: path, Bitrate: bitrate, Logger: logger}
}

// EncodeMP3 pipes the WAV through ffmpeg and returns the MP3 bytes.
func (e *FFmpegEncoder) EncodeMP3(ctx context.Context, wav []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.Path,
		"-hide_banner", "-loglevel", "error",
		"-f", "wav", "-i", "pipe:0",
		"-b:a", e.Bitrate,
		"-f", "mp3", "pipe:1",
	)

	var out, errOut bytes.Buffer

	cmd.Stdin = bytes.NewReader(wav)
	cmd.Stdout = &out
	cmd.Stderr = &errOut

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, errOut.String())
	}

	e.Logger.Debug().Int("wav_bytes", len(wav)).Int("mp3_bytes", out.Len()).Msg("mp3 export complete")

	return out.Bytes(), nil
}
