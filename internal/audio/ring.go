package audio

import (
	"time"
)

// Default capture format. Chunks arriving in any other format are
// rejected at decode time rather than reinterpreted.
const (
	SampleRate     = 16000
	Channels       = 1
	BytesPerSample = 2
)

// Ring accumulates unconsumed PCM samples for a single session. Arrived
// audio and transcribed audio are tracked separately: partial recognition
// passes re-read the buffered tail via Snapshot, while finalized audio is
// retired explicitly via Commit and never read again.
//
// Ring is not safe for concurrent use; the owning session serializes
// access.
type Ring struct {
	samples    []int16
	maxSamples int
	sampleRate int
}

// NewRing creates a buffer capped at maxDuration of audio. Appending past
// the cap evicts the oldest unconsumed samples (drop-oldest).
func NewRing(maxDuration time.Duration, sampleRate int) *Ring {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	max := samplesFor(maxDuration, sampleRate)
	if max <= 0 {
		max = samplesFor(30*time.Second, sampleRate)
	}
	return &Ring{
		samples:    make([]int16, 0, max),
		maxSamples: max,
		sampleRate: sampleRate,
	}
}

// Append adds samples in arrival order and returns the number of old
// samples evicted to stay under capacity. A non-zero return is the
// overflow signal: the caller should surface a warning because audio was
// lost before it could be transcribed.
func (r *Ring) Append(samples []int16) (dropped int) {
	if len(samples) >= r.maxSamples {
		// Chunk alone exceeds capacity: keep only its newest tail.
		dropped = len(r.samples) + len(samples) - r.maxSamples
		r.samples = r.samples[:0]
		r.samples = append(r.samples, samples[len(samples)-r.maxSamples:]...)
		return dropped
	}

	excess := len(r.samples) + len(samples) - r.maxSamples
	if excess > 0 {
		dropped = excess
		r.samples = r.samples[:copy(r.samples, r.samples[excess:])]
	}
	r.samples = append(r.samples, samples...)
	return dropped
}

// Snapshot returns a read-only copy of the most recent up-to-maxDuration
// of unconsumed audio. The buffer is left untouched so later appends and
// snapshots continue from the same tail.
func (r *Ring) Snapshot(maxDuration time.Duration) []int16 {
	n := samplesFor(maxDuration, r.sampleRate)
	if n > len(r.samples) {
		n = len(r.samples)
	}
	out := make([]int16, n)
	copy(out, r.samples[len(r.samples)-n:])
	return out
}

// SnapshotAll returns a copy of the whole unconsumed buffer.
func (r *Ring) SnapshotAll() []int16 {
	out := make([]int16, len(r.samples))
	copy(out, r.samples)
	return out
}

// Commit retires the oldest n samples. Committed audio is excluded from
// every future snapshot.
func (r *Ring) Commit(n int) {
	if n >= len(r.samples) {
		r.samples = r.samples[:0]
		return
	}
	r.samples = r.samples[:copy(r.samples, r.samples[n:])]
}

// CommitAll retires the entire unconsumed buffer.
func (r *Ring) CommitAll() {
	r.samples = r.samples[:0]
}

// Len returns the number of unconsumed samples.
func (r *Ring) Len() int {
	return len(r.samples)
}

// Duration returns the duration of unconsumed audio.
func (r *Ring) Duration() time.Duration {
	return Duration(len(r.samples), r.sampleRate)
}

// Duration converts a sample count to wall time at the given rate.
func Duration(samples, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

func samplesFor(d time.Duration, sampleRate int) int {
	return int(d * time.Duration(sampleRate) / time.Second)
}
