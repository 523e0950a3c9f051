package ai

import (
	"fmt"

	"statuspulse-backend/pkg/gemini"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "gemini", "ollama" or "auto"

	// Gemini config
	GeminiAPIKey string

	// Ollama config
	OllamaBaseURL string // e.g., "http://localhost:11434"
	OllamaModel   string // e.g., "llama3", "mistral"
}

// NewGenerator creates a Generator based on the config. With ProviderAuto it
// picks Gemini when an API key is present, then Ollama when a base URL is
// present, and returns (nil, nil) when nothing is configured — the composer
// treats a nil provider as "LLM path absent" and uses the template fallback.
func NewGenerator(cfg Config) (Generator, error) {
	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return gemini.NewGeminiService(cfg.GeminiAPIKey), nil

	case ProviderOllama:
		if cfg.OllamaBaseURL == "" {
			return nil, fmt.Errorf("OLLAMA_BASE_URL is required for Ollama provider")
		}
		return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel), nil

	default:
		if cfg.GeminiAPIKey != "" {
			return gemini.NewGeminiService(cfg.GeminiAPIKey), nil
		}
		if cfg.OllamaBaseURL != "" {
			return NewOllamaService(cfg.OllamaBaseURL, cfg.OllamaModel), nil
		}
		return nil, nil
	}
}
