// Package audio assembles synthesized chunks into one episode track:
// chunk concatenation with a short linear crossfade, WAV framing, and
// MP3 export through ffmpeg.
package audio

import (
	"github.com/podsmith/podsmith/internal/episode/tts"
)

// DefaultCrossfadeMillis is the overlap applied at each chunk boundary.
const DefaultCrossfadeMillis = 50

// Mixed is the assembled episode audio with the placement of every
// input chunk on the final timeline.
type Mixed struct {
	PCM        []int16
	SampleRate int

	// Offsets[i] and Durations[i] are the start position and length of
	// input chunk i in seconds. A skipped chunk keeps its slot with a
	// zero duration.
	Offsets   []float64
	Durations []float64
}

// Seconds returns the total track duration.
func (m Mixed) Seconds() float64 {
	if m.SampleRate == 0 {
		return 0
	}

	return float64(len(m.PCM)) / float64(m.SampleRate)
}

// Mix concatenates chunks in order with a linear crossfade at every
// interior boundary. Empty chunks are skipped and the timeline
// collapses around them. The chunk offsets account for the overlap:
// each boundary pulls the following chunk forward by the fade length.
func Mix(chunks []tts.Chunk, sampleRate, crossfadeMillis int) Mixed {
	mixed := Mixed{
		SampleRate: sampleRate,
		Offsets:    make([]float64, len(chunks)),
		Durations:  make([]float64, len(chunks)),
	}

	fade := sampleRate * crossfadeMillis / 1000

	for i, chunk := range chunks {
		if len(chunk.PCM) == 0 {
			// Unloadable chunk: keep the slot, collapse the timeline.
			mixed.Offsets[i] = float64(len(mixed.PCM)) / float64(sampleRate)

			continue
		}

		overlap := 0
		if len(mixed.PCM) > 0 {
			overlap = fade
			if overlap > len(mixed.PCM) {
				overlap = len(mixed.PCM)
			}

			if overlap > len(chunk.PCM) {
				overlap = len(chunk.PCM)
			}
		}

		start := len(mixed.PCM) - overlap

		for j := 0; j < overlap; j++ {
			t := float64(j+1) / float64(overlap+1)
			tail := float64(mixed.PCM[start+j])
			head := float64(chunk.PCM[j])
			mixed.PCM[start+j] = clampSample(tail*(1-t) + head*t)
		}

		mixed.PCM = append(mixed.PCM, chunk.PCM[overlap:]...)

		mixed.Offsets[i] = float64(start) / float64(sampleRate)
		mixed.Durations[i] = float64(len(chunk.PCM)) / float64(sampleRate)
	}

	return mixed
}

func clampSample(v float64) int16 {
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	default:
		return int16(v)
	}
}
