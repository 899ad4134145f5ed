package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// app config, session policy knobs plus provider settings
type Config struct {
	Provider string
	Port     string

	// session policy
	PauseWindow      time.Duration // silence that finalizes an answer
	FullscreenGrace  time.Duration // countdown after fullscreen exit
	ViolationLimit   int           // count above which the session terminates
	ReasoningTimeout time.Duration // bound on a single LLM call

	// collaborators
	RedisAddr      string
	SpeechWSURL    string
	SpeechTokenURL string
	SpeechToken    string
}

// loads configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		Provider:         getEnvOrDefault("AI_PROVIDER", "gemini"),
		Port:             getEnvOrDefault("PORT", "8085"),
		PauseWindow:      getEnvDuration("SESSION_PAUSE_WINDOW", 7*time.Second),
		FullscreenGrace:  getEnvDuration("SESSION_FULLSCREEN_GRACE", 30*time.Second),
		ViolationLimit:   getEnvInt("SESSION_VIOLATION_LIMIT", 3),
		ReasoningTimeout: getEnvDuration("REASONING_TIMEOUT", 30*time.Second),
		RedisAddr:        getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		SpeechWSURL:      getEnvOrDefault("SPEECH_WS_URL", "wss://streaming.assemblyai.com/v3/ws"),
		SpeechTokenURL:   getEnvOrDefault("SPEECH_TOKEN_URL", "https://streaming.assemblyai.com/v3/token?expires_in_seconds=300"),
		SpeechToken:      os.Getenv("SPEECH_API_KEY"),
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Provider != "gemini" {
		return errors.New("unsupported AI provider: " + config.Provider + ". Currently supported: gemini")
	}
	if config.PauseWindow <= 0 {
		return errors.New("SESSION_PAUSE_WINDOW must be positive")
	}
	if config.FullscreenGrace <= 0 {
		return errors.New("SESSION_FULLSCREEN_GRACE must be positive")
	}
	if config.ViolationLimit < 1 {
		return errors.New("SESSION_VIOLATION_LIMIT must be at least 1")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
