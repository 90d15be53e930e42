package vad

import (
	"math"
	"time"
)

const (
	// DefaultThreshold is the normalized RMS level below which a frame
	// counts as silence. Tuned for 16-bit speech captured at a normal
	// microphone gain.
	DefaultThreshold = 0.01

	// DefaultFrameDuration is the analysis frame length.
	DefaultFrameDuration = 20 * time.Millisecond
)

// Detector classifies audio frames as voiced or silent using short-term
// RMS energy. It is stateless across calls, so one detector can be shared
// by every session.
type Detector struct {
	threshold  float64
	frameSize  int
	sampleRate int
}

// NewDetector creates an energy detector. threshold is a normalized RMS
// level in [0,1]; zero values fall back to defaults.
func NewDetector(threshold float64, frameDuration time.Duration, sampleRate int) *Detector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if frameDuration <= 0 {
		frameDuration = DefaultFrameDuration
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	frameSize := int(frameDuration * time.Duration(sampleRate) / time.Second)
	if frameSize < 1 {
		frameSize = 1
	}
	return &Detector{
		threshold:  threshold,
		frameSize:  frameSize,
		sampleRate: sampleRate,
	}
}

// IsSilence reports whether every frame of the window is below the energy
// threshold. An empty window counts as silence.
func (d *Detector) IsSilence(samples []int16) bool {
	for start := 0; start < len(samples); start += d.frameSize {
		end := start + d.frameSize
		if end > len(samples) {
			end = len(samples)
		}
		if rms(samples[start:end]) >= d.threshold {
			return false
		}
	}
	return true
}

// TrailingSilence returns the duration of the silent run at the end of
// the window. A window that is entirely silent returns its full duration.
func (d *Detector) TrailingSilence(samples []int16) time.Duration {
	silent := 0
	end := len(samples)
	for end > 0 {
		start := end - d.frameSize
		if start < 0 {
			start = 0
		}
		if rms(samples[start:end]) >= d.threshold {
			break
		}
		silent += end - start
		end = start
	}
	return time.Duration(silent) * time.Second / time.Duration(d.sampleRate)
}

// rms computes the normalized root-mean-square level of a frame,
// 0.0 for digital silence and 1.0 for a full-scale square wave.
func rms(frame []int16) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum/float64(len(frame))) / 32768.0
}
