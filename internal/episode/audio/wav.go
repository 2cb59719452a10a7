package audio

import (
	"encoding/binary"
)

const (
	wavHeaderSize  = 44
	bitsPerSample  = 16
	wavNumChannels = 1
)

// EncodeWAV frames 16-bit mono PCM as a RIFF/WAVE stream.
func EncodeWAV(pcm []int16, sampleRate int) []byte {
	dataSize := len(pcm) * 2
	out := make([]byte, wavHeaderSize+dataSize)

	byteRate := sampleRate * wavNumChannels * bitsPerSample / 8
	blockAlign := wavNumChannels * bitsPerSample / 8

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataSize))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(out[22:24], wavNumChannels)
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))

	for i, sample := range pcm {
		binary.LittleEndian.PutUint16(out[wavHeaderSize+2*i:], uint16(sample))
	}

	return out
}
