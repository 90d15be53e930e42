package audio

import (
	"errors"
	"testing"
)

func TestDecodePCM16(t *testing.T) {
	samples, err := DecodePCM16([]byte{0x01, 0x00, 0xFF, 0xFF})
	if err != nil {
		t.Fatalf("DecodePCM16 failed: %v", err)
	}
	if len(samples) != 2 || samples[0] != 1 || samples[1] != -1 {
		t.Errorf("unexpected samples: %v", samples)
	}
}

func TestDecodePCM16_RejectsOddLength(t *testing.T) {
	_, err := DecodePCM16([]byte{0x01, 0x00, 0xFF})
	if !errors.Is(err, ErrFormat) {
		t.Errorf("expected ErrFormat for odd payload, got %v", err)
	}
}

func TestDecodePCM16_RejectsEmpty(t *testing.T) {
	_, err := DecodePCM16(nil)
	if !errors.Is(err, ErrFormat) {
		t.Errorf("expected ErrFormat for empty payload, got %v", err)
	}
}

func TestPCM16RoundTrip(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768, 1234}
	out, err := DecodePCM16(EncodePCM16(in))
	if err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("sample %d: got %d, want %d", i, out[i], in[i])
		}
	}
}

func TestDecodeWAV(t *testing.T) {
	in := []int16{10, -20, 30, -40}
	data := EncodeWAV(in, SampleRate)

	if !IsWAV(data) {
		t.Fatal("EncodeWAV output not recognized as WAV")
	}

	out, err := DecodeWAV(data, SampleRate)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(out))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("sample %d: got %d, want %d", i, out[i], in[i])
		}
	}
}

func TestDecodeWAV_RejectsMismatchedFormat(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"not wav", []byte("this is not audio at all, clearly")},
		{"wrong rate", EncodeWAV([]int16{1, 2, 3}, 8000)},
		{"truncated", EncodeWAV([]int16{1, 2, 3}, SampleRate)[:20]},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeWAV(tc.data, SampleRate); !errors.Is(err, ErrFormat) {
				t.Errorf("expected ErrFormat, got %v", err)
			}
		})
	}
}
