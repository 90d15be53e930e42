package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrFormat marks audio payloads whose encoding parameters do not match
// the session's declared format. Such chunks are rejected, never
// reinterpreted.
var ErrFormat = errors.New("unsupported audio format")

// DecodePCM16 interprets raw bytes as little-endian signed 16-bit mono
// PCM samples.
func DecodePCM16(data []byte) ([]int16, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty audio payload", ErrFormat)
	}
	if len(data)%BytesPerSample != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of 16-bit samples", ErrFormat, len(data))
	}
	samples := make([]int16, len(data)/BytesPerSample)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*BytesPerSample:]))
	}
	return samples, nil
}

// EncodePCM16 is the inverse of DecodePCM16.
func EncodePCM16(samples []int16) []byte {
	data := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*BytesPerSample:], uint16(s))
	}
	return data
}
