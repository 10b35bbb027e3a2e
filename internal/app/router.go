package app

import (
	"github.com/gin-gonic/gin"

	internalhttp "github.com/animap/animap-backend/internal/http"
	"github.com/animap/animap-backend/internal/pkg/logger"
)

func wireRouter(log *logger.Logger, handlerset Handlers) *gin.Engine {
	log.Info("Wiring router...")
	return internalhttp.NewRouter(internalhttp.RouterConfig{
		Log:             log,
		HealthHandler:   handlerset.Health,
		AnimeHandler:    handlerset.Anime,
		JobHandler:      handlerset.Job,
		TransferHandler: handlerset.Transfer,
	})
}
