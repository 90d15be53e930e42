package recognizer

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/nadasuara/server/internal/audio"
)

// GoogleRecognizer implements speech recognition with the Google Cloud
// Speech-to-Text API. Each pass is a synchronous Recognize call over the
// snapshot window; passes are short (seconds) so the batch endpoint fits
// better than a long-lived streaming session per pass.
type GoogleRecognizer struct {
	client     *speech.Client
	sampleRate int
}

// NewGoogleRecognizer creates a recognizer backed by a shared speech
// client. Credentials come from the environment in the usual Google
// Cloud way.
func NewGoogleRecognizer(ctx context.Context, sampleRate int) (*GoogleRecognizer, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	if sampleRate <= 0 {
		sampleRate = audio.SampleRate
	}
	return &GoogleRecognizer{
		client:     client,
		sampleRate: sampleRate,
	}, nil
}

// Close releases the underlying client.
func (g *GoogleRecognizer) Close() error {
	return g.client.Close()
}

// Transcribe implements repositories.Recognizer.
func (g *GoogleRecognizer) Transcribe(ctx context.Context, samples []int16, language string) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: int32(g.sampleRate),
			LanguageCode:    languageCode(language),
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{
				Content: audio.EncodePCM16(samples),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("recognize request failed: %w", err)
	}

	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			parts = append(parts, result.Alternatives[0].Transcript)
		}
	}
	return strings.Join(parts, " "), nil
}

// languageCode maps the short language tags devices send to BCP-47 codes
// the API expects. Full codes pass through untouched.
func languageCode(language string) string {
	switch language {
	case "", "zh":
		return "cmn-Hans-CN"
	case "en":
		return "en-US"
	case "id":
		return "id-ID"
	default:
		return language
	}
}
