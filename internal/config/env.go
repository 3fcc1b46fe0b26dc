package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ConfigurationError сообщает об отсутствующей или некорректной обязательной настройке.
type ConfigurationError struct {
	Variable string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Variable, e.Reason)
}

// EnvConfig содержит ключи API и другие секреты из переменных окружения.
type EnvConfig struct {
	GeminiAPIKey     string
	OpenRouterAPIKey string
	FishAPIKey       string
	RedisPassword    string
}

// LLMKey возвращает ключ выбранного провайдера.
func (e *EnvConfig) LLMKey(provider string) string {
	if provider == ProviderOpenRouter {
		return e.OpenRouterAPIKey
	}
	return e.GeminiAPIKey
}

// LoadDotEnv подгружает .env, если он есть. Отсутствие файла не ошибка.
func LoadDotEnv(paths ...string) {
	_ = godotenv.Load(paths...)
}

// LoadStoreEnv читает секреты без проверки ключей моделей и синтеза.
// Нужен командам, которые работают только с хранилищами (например, с кэшем).
func LoadStoreEnv() *EnvConfig {
	return &EnvConfig{
		GeminiAPIKey:     strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		OpenRouterAPIKey: strings.TrimSpace(os.Getenv("API_KEY")),
		FishAPIKey:       strings.TrimSpace(os.Getenv("FISH_API_KEY")),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
	}
}

// LoadEnvConfig читает переменные окружения и проверяет, что ключи, нужные
// выбранной конфигурации, заданы.
func LoadEnvConfig(root Root) (*EnvConfig, error) {
	env := LoadStoreEnv()

	switch root.LLM.Provider {
	case ProviderGemini:
		if env.GeminiAPIKey == "" {
			return nil, &ConfigurationError{Variable: "GEMINI_API_KEY", Reason: "environment variable is required for provider gemini"}
		}
	case ProviderOpenRouter:
		if env.OpenRouterAPIKey == "" {
			return nil, &ConfigurationError{Variable: "API_KEY", Reason: "environment variable is required for provider openrouter"}
		}
	default:
		return nil, &ConfigurationError{Variable: "llm.provider", Reason: fmt.Sprintf("unknown provider %q (valid: gemini, openrouter)", root.LLM.Provider)}
	}

	if root.TTS.Enabled && env.FishAPIKey == "" {
		return nil, &ConfigurationError{Variable: "FISH_API_KEY", Reason: "environment variable is required when tts.enabled is true"}
	}

	return env, nil
}
