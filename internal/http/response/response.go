package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/animap/animap-backend/internal/pkg/errors"
)

// Business error codes carried in the envelope. The transport status is
// 200 either way; clients branch on code.
const (
	CodeOK              = 0
	CodeInternal        = 1
	CodeNotFound        = 2
	CodeConflict        = 3
	CodeInvalidArgument = 4
)

// Envelope is the uniform response body: {code, msg, data}.
type Envelope struct {
	Code int     `json:"code"`
	Msg  *string `json:"msg"`
	Data any     `json:"data"`
}

func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Code: CodeOK, Data: data})
}

func RespondError(c *gin.Context, err error) {
	code := CodeInternal
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code = CodeNotFound
	case errors.Is(err, apperrors.ErrConflict):
		code = CodeConflict
	case errors.Is(err, apperrors.ErrInvalidArgument):
		code = CodeInvalidArgument
	}
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(http.StatusOK, Envelope{Code: code, Msg: &msg})
}
