package app

import (
	httpH "github.com/animap/animap-backend/internal/http/handlers"
	"github.com/animap/animap-backend/internal/pkg/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Anime    *httpH.AnimeHandler
	Job      *httpH.JobHandler
	Transfer *httpH.TransferHandler
}

func wireHandlers(log *logger.Logger, reposet Repos, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Anime:    httpH.NewAnimeHandler(reposet.Anime, reposet.Stats, serviceset.Review, log),
		Job:      httpH.NewJobHandler(serviceset.Runner, log),
		Transfer: httpH.NewTransferHandler(serviceset.Transfer, log),
	}
}
