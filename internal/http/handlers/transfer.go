package handlers

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/animap/animap-backend/internal/http/response"
	apperrors "github.com/animap/animap-backend/internal/pkg/errors"
	"github.com/animap/animap-backend/internal/pkg/logger"
	"github.com/animap/animap-backend/internal/services"
)

type TransferHandler struct {
	transfer services.TransferService
	log      *logger.Logger
}

func NewTransferHandler(transfer services.TransferService, baseLog *logger.Logger) *TransferHandler {
	return &TransferHandler{
		transfer: transfer,
		log:      baseLog.With("handler", "TransferHandler"),
	}
}

func yearParam(c *gin.Context) (int, error) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		return 0, fmt.Errorf("%w: year must be an integer", apperrors.ErrInvalidArgument)
	}
	return year, nil
}

// Export handles GET /api/export/animes/:year.
func (h *TransferHandler) Export(c *gin.Context) {
	year, err := yearParam(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	n, err := h.transfer.Export(c.Request.Context(), year)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"records": n})
}

// Import handles GET /api/import/animes/:year.
func (h *TransferHandler) Import(c *gin.Context) {
	year, err := yearParam(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	n, err := h.transfer.Import(c.Request.Context(), year)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"records": n})
}

// Compact handles GET /api/compact/animes/dir.
func (h *TransferHandler) Compact(c *gin.Context) {
	n, err := h.transfer.Compact(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"records": n})
}
