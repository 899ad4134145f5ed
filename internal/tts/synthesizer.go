// Package tts converts interviewer text into playable audio, one utterance
// at a time.
package tts

import (
	"context"
)

// Synthesizer produces playable WAV audio for a single utterance.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// SpeechProvider is the raw audio source behind a Synthesizer. The Gemini
// LLM client satisfies it with 16-bit 24kHz mono PCM.
type SpeechProvider interface {
	SynthesizeSpeech(ctx context.Context, text string) ([]byte, error)
}

// Gateway wraps a SpeechProvider and packages its PCM output as WAV.
type Gateway struct {
	provider SpeechProvider
}

func NewGateway(provider SpeechProvider) *Gateway {
	return &Gateway{provider: provider}
}

func (g *Gateway) Synthesize(ctx context.Context, text string) ([]byte, error) {
	pcm, err := g.provider.SynthesizeSpeech(ctx, text)
	if err != nil {
		return nil, err
	}
	return PCMToWAV(pcm, 1, 24000, 16), nil
}
