package repositories

import "context"

// Recognizer abstracts the speech recognition backend. One call
// transcribes one bounded PCM window; implementations may be shared
// across sessions and invoked concurrently.
type Recognizer interface {
	// Transcribe converts a window of 16kHz mono PCM samples to text.
	// The language hint follows BCP-47 ("zh", "en-US", ...). An empty
	// result with a nil error means no speech was detected.
	Transcribe(ctx context.Context, samples []int16, language string) (string, error)
}
