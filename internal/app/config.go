package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/animap/animap-backend/internal/domain"
	"github.com/animap/animap-backend/internal/pkg/envutil"
	apperrors "github.com/animap/animap-backend/internal/pkg/errors"
	"github.com/animap/animap-backend/internal/pkg/logger"
)

type Config struct {
	HTTPAddr   string
	SQLitePath string
	ExportDir  string

	ProviderTimeout       time.Duration
	ProviderMaxRetries    int
	ProviderRatePerSecond float64

	// Per-provider credentials; a job only needs the key of the
	// provider it runs with.
	ProviderKeys     map[string]string
	ProviderBaseURLs map[string]string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		HTTPAddr:              envutil.Str("HTTP_ADDR", ":8080"),
		SQLitePath:            envutil.Str("SQLITE_PATH", "animap.db"),
		ExportDir:             envutil.Str("EXPORT_DIR", "exports"),
		ProviderTimeout:       envutil.Seconds("PROVIDER_TIMEOUT_SECONDS", 60*time.Second),
		ProviderMaxRetries:    envutil.Int("PROVIDER_MAX_RETRIES", 2),
		ProviderRatePerSecond: envutil.Float("PROVIDER_RATE_PER_SECOND", 1),
		ProviderKeys: map[string]string{
			domain.ProviderOpenAI:   envutil.Str("OPENAI_API_KEY", ""),
			domain.ProviderDeepseek: envutil.Str("DEEPSEEK_API_KEY", ""),
			domain.ProviderXai:      envutil.Str("XAI_API_KEY", ""),
			domain.ProviderGemini:   envutil.Str("GEMINI_API_KEY", ""),
		},
		ProviderBaseURLs: map[string]string{
			domain.ProviderOpenAI:   envutil.Str("OPENAI_BASE_URL", ""),
			domain.ProviderDeepseek: envutil.Str("DEEPSEEK_BASE_URL", ""),
			domain.ProviderXai:      envutil.Str("XAI_BASE_URL", ""),
			domain.ProviderGemini:   envutil.Str("GEMINI_BASE_URL", ""),
		},
	}

	var configured []string
	for name, key := range cfg.ProviderKeys {
		if key != "" {
			configured = append(configured, name)
		}
	}
	if len(configured) == 0 {
		log.Warn("No provider API keys configured; matching jobs will not run")
	} else {
		log.Info("Provider keys configured", "providers", strings.Join(configured, ","))
	}
	return cfg
}

// ProviderConfig resolves the matching config for one provider name.
func (c Config) ProviderConfig(provider string) (key, baseURL string, err error) {
	name, err := domain.ParseProvider(provider)
	if err != nil {
		return "", "", err
	}
	key = c.ProviderKeys[name]
	if key == "" {
		return "", "", fmt.Errorf("%w: no API key configured for provider %s", apperrors.ErrInvalidArgument, name)
	}
	return key, c.ProviderBaseURLs[name], nil
}
