package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	errx "github.com/Jadir123-w/repli-post/internal/core/error"
	logx "github.com/Jadir123-w/repli-post/pkg/logger"
)

type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// RespondError writes a failure envelope. Validation errors keep their status,
// integration failures are reported as 500.
func RespondError(c *gin.Context, err error) {
	status := errx.StatusOf(err)
	if status >= 500 {
		logx.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		status = http.StatusInternalServerError
	}
	c.JSON(status, ErrorEnvelope{Success: false, Error: errx.SafeMessage(err)})
}

func RespondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorEnvelope{Success: false, Error: message})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
