package gemini

import (
	"errors"
	"os"
)

// holds Gemini-specific configuration
type Config struct {
	APIKey   string
	Model    string
	TTSModel string
	Voice    string
}

func NewConfig() (*Config, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable is required")
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = "gemini-2.5-flash" // default model
	}

	ttsModel := os.Getenv("GEMINI_TTS_MODEL")
	if ttsModel == "" {
		ttsModel = "gemini-2.5-flash-preview-tts"
	}

	voice := os.Getenv("GEMINI_TTS_VOICE")
	if voice == "" {
		voice = "Charon"
	}

	return &Config{
		APIKey:   apiKey,
		Model:    model,
		TTSModel: ttsModel,
		Voice:    voice,
	}, nil
}
