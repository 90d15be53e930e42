package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// wavHeader is the fmt chunk of a RIFF/WAVE file.
type wavHeader struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// IsWAV reports whether the payload starts with a RIFF/WAVE signature.
func IsWAV(data []byte) bool {
	return len(data) >= 12 &&
		bytes.Equal(data[0:4], []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WAVE"))
}

// DecodeWAV extracts PCM samples from a WAV container. Only 16-bit mono
// PCM at the session sample rate is accepted; anything else is a format
// error so the caller can tell the client instead of transcribing noise.
func DecodeWAV(data []byte, sampleRate int) ([]int16, error) {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	if !IsWAV(data) {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE signature", ErrFormat)
	}

	var hdr wavHeader
	var pcm []byte
	haveFmt := false

	// Walk the chunk list; fmt must precede data.
	rest := data[12:]
	for len(rest) >= 8 {
		id := string(rest[0:4])
		size := int(binary.LittleEndian.Uint32(rest[4:8]))
		rest = rest[8:]
		if size < 0 || size > len(rest) {
			return nil, fmt.Errorf("%w: truncated %q chunk", ErrFormat, id)
		}
		body := rest[:size]

		switch id {
		case "fmt ":
			if err := binary.Read(bytes.NewReader(body), binary.LittleEndian, &hdr); err != nil {
				return nil, fmt.Errorf("%w: bad fmt chunk: %v", ErrFormat, err)
			}
			haveFmt = true
		case "data":
			pcm = body
		}

		// Chunks are word-aligned.
		if size%2 == 1 {
			size++
		}
		if size > len(rest) {
			break
		}
		rest = rest[size:]
	}

	if !haveFmt {
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrFormat)
	}
	if pcm == nil {
		return nil, fmt.Errorf("%w: missing data chunk", ErrFormat)
	}
	if hdr.AudioFormat != 1 {
		return nil, fmt.Errorf("%w: compressed WAV (format %d), want PCM", ErrFormat, hdr.AudioFormat)
	}
	if hdr.BitsPerSample != 16 {
		return nil, fmt.Errorf("%w: %d-bit samples, want 16-bit", ErrFormat, hdr.BitsPerSample)
	}
	if int(hdr.NumChannels) != Channels {
		return nil, fmt.Errorf("%w: %d channels, want mono", ErrFormat, hdr.NumChannels)
	}
	if int(hdr.SampleRate) != sampleRate {
		return nil, fmt.Errorf("%w: sample rate %d, want %d", ErrFormat, hdr.SampleRate, sampleRate)
	}

	return DecodePCM16(pcm)
}

// EncodeWAV wraps PCM samples in a minimal WAV container. Used by tests
// and the example client.
func EncodeWAV(samples []int16, sampleRate int) []byte {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	pcm := EncodePCM16(samples)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, wavHeader{
		AudioFormat:   1,
		NumChannels:   Channels,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate * Channels * BytesPerSample),
		BlockAlign:    uint16(Channels * BytesPerSample),
		BitsPerSample: 16,
	})
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
