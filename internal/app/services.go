package app

import (
	"github.com/animap/animap-backend/internal/jobs"
	"github.com/animap/animap-backend/internal/matching"
	"github.com/animap/animap-backend/internal/pkg/logger"
	"github.com/animap/animap-backend/internal/services"
)

type Services struct {
	Review   services.ReviewService
	Transfer services.TransferService
	Runner   *jobs.Runner
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos) Services {
	log.Info("Wiring services...")

	factory := func(provider, model string) (matching.Provider, error) {
		key, baseURL, err := cfg.ProviderConfig(provider)
		if err != nil {
			return nil, err
		}
		return matching.New(matching.Config{
			Provider: provider,
			Model:    model,
			APIKey:   key,
			BaseURL:  baseURL,
		})
	}

	runner := jobs.NewRunner(reposet.Anime, reposet.Job, factory, jobs.Options{
		ItemTimeout:   cfg.ProviderTimeout,
		MaxRetries:    cfg.ProviderMaxRetries,
		RatePerSecond: cfg.ProviderRatePerSecond,
	}, log)

	return Services{
		Review:   services.NewReviewService(reposet.Anime, log),
		Transfer: services.NewTransferService(cfg.ExportDir, reposet.Anime, log),
		Runner:   runner,
	}
}
