package app

import (
	"gorm.io/gorm"

	"github.com/animap/animap-backend/internal/data/repos"
	"github.com/animap/animap-backend/internal/pkg/logger"
)

type Repos struct {
	Anime repos.AnimeRepo
	Stats repos.StatsRepo
	Job   repos.JobRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Anime: repos.NewAnimeRepo(db, log),
		Stats: repos.NewStatsRepo(db, log),
		Job:   repos.NewJobRepo(db, log),
	}
}
