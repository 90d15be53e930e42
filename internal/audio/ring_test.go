package audio

import (
	"testing"
	"time"
)

func secondsOf(d time.Duration) []int16 {
	n := int(d * SampleRate / time.Second)
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(1000 + i%100)
	}
	return samples
}

func TestRing_AppendAndDuration(t *testing.T) {
	ring := NewRing(10*time.Second, SampleRate)

	dropped := ring.Append(secondsOf(2 * time.Second))
	if dropped != 0 {
		t.Errorf("expected no dropped samples, got %d", dropped)
	}

	if got := ring.Duration(); got != 2*time.Second {
		t.Errorf("expected 2s buffered, got %v", got)
	}

	ring.Append(secondsOf(1 * time.Second))
	if got := ring.Duration(); got != 3*time.Second {
		t.Errorf("expected 3s buffered, got %v", got)
	}
}

func TestRing_SnapshotDoesNotConsume(t *testing.T) {
	ring := NewRing(10*time.Second, SampleRate)
	ring.Append(secondsOf(4 * time.Second))

	window := ring.Snapshot(2 * time.Second)
	if got := Duration(len(window), SampleRate); got != 2*time.Second {
		t.Errorf("expected 2s window, got %v", got)
	}

	if ring.Duration() != 4*time.Second {
		t.Errorf("snapshot must not consume: have %v, want 4s", ring.Duration())
	}

	// Snapshot returns the most recent tail.
	tail := ring.SnapshotAll()
	if window[len(window)-1] != tail[len(tail)-1] {
		t.Error("snapshot window does not end at the buffer tail")
	}
}

func TestRing_SnapshotIsACopy(t *testing.T) {
	ring := NewRing(10*time.Second, SampleRate)
	ring.Append([]int16{1, 2, 3, 4})

	window := ring.SnapshotAll()
	window[0] = 999

	again := ring.SnapshotAll()
	if again[0] != 1 {
		t.Error("mutating a snapshot leaked into the buffer")
	}
}

func TestRing_Commit(t *testing.T) {
	ring := NewRing(10*time.Second, SampleRate)
	ring.Append(secondsOf(3 * time.Second))

	ring.Commit(SampleRate) // retire 1s
	if got := ring.Duration(); got != 2*time.Second {
		t.Errorf("expected 2s after commit, got %v", got)
	}

	ring.CommitAll()
	if ring.Len() != 0 {
		t.Errorf("expected empty buffer after CommitAll, got %d samples", ring.Len())
	}

	// Committing more than buffered clears instead of panicking.
	ring.Append(secondsOf(time.Second))
	ring.Commit(10 * SampleRate)
	if ring.Len() != 0 {
		t.Errorf("over-commit should empty the buffer, got %d samples", ring.Len())
	}
}

func TestRing_OverflowDropsOldest(t *testing.T) {
	ring := NewRing(2*time.Second, SampleRate)

	ring.Append(secondsOf(2 * time.Second))
	marker := []int16{7777}
	dropped := ring.Append(marker)

	if dropped != 1 {
		t.Errorf("expected 1 dropped sample, got %d", dropped)
	}
	if got := ring.Len(); got != 2*SampleRate {
		t.Errorf("buffer must stay capped at 2s, got %d samples", got)
	}

	tail := ring.SnapshotAll()
	if tail[len(tail)-1] != 7777 {
		t.Error("newest sample must survive an overflow")
	}
}

func TestRing_OversizedChunkKeepsNewestTail(t *testing.T) {
	ring := NewRing(time.Second, SampleRate)

	chunk := secondsOf(3 * time.Second)
	dropped := ring.Append(chunk)

	if dropped != 2*SampleRate {
		t.Errorf("expected %d dropped samples, got %d", 2*SampleRate, dropped)
	}
	tail := ring.SnapshotAll()
	if len(tail) != SampleRate {
		t.Fatalf("expected buffer capped at 1s, got %d samples", len(tail))
	}
	if tail[len(tail)-1] != chunk[len(chunk)-1] {
		t.Error("expected the newest tail of the oversized chunk to be kept")
	}
}

func TestRing_NeverGrowsUnbounded(t *testing.T) {
	ring := NewRing(5*time.Second, SampleRate)

	for i := 0; i < 100; i++ {
		ring.Append(secondsOf(500 * time.Millisecond))
	}

	if got := ring.Len(); got > 5*SampleRate {
		t.Errorf("buffer exceeded its cap: %d samples", got)
	}
}
