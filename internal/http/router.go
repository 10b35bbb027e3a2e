package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/animap/animap-backend/internal/http/handlers"
	httpMW "github.com/animap/animap-backend/internal/http/middleware"
	"github.com/animap/animap-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AnimeHandler    *httpH.AnimeHandler
	JobHandler      *httpH.JobHandler
	TransferHandler *httpH.TransferHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestID())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Animes
		if cfg.AnimeHandler != nil {
			api.POST("/animes/page", cfg.AnimeHandler.QueryAnimes)
			api.GET("/animes/summary", cfg.AnimeHandler.Summary)
			api.GET("/animes/year-statistics", cfg.AnimeHandler.YearStatistics)
			api.GET("/anime/:anilist_id/review/:platform/:status", cfg.AnimeHandler.Review)
			api.POST("/anime/mapping/manual", cfg.AnimeHandler.ManualMapping)
		}

		// Jobs
		if cfg.JobHandler != nil {
			api.GET("/job/list", cfg.JobHandler.List)
			api.GET("/job/:platform/create/:year/:provider/:model", cfg.JobHandler.Create)
			api.GET("/job/:platform/run/:year", cfg.JobHandler.Run)
			api.GET("/job/:platform/pause/:year", cfg.JobHandler.Pause)
			api.GET("/job/:platform/resume/:year", cfg.JobHandler.Resume)
			api.GET("/job/:platform/remove/:year", cfg.JobHandler.Remove)
		}

		// Export / import / compact
		if cfg.TransferHandler != nil {
			api.GET("/export/animes/:year", cfg.TransferHandler.Export)
			api.GET("/import/animes/:year", cfg.TransferHandler.Import)
			api.GET("/compact/animes/dir", cfg.TransferHandler.Compact)
		}
	}

	return r
}
