package utils

import (
	"errors"

	"github.com/gin-gonic/gin"

	"call-session-service/logger"
	"call-session-service/src/schemas"
)

// SendError writes an RFC 7807 error response and logs it. Errors that are
// not *schemas.ErrorResponse are masked as a generic 500.
func SendError(ctx *gin.Context, err error) {
	var errResp *schemas.ErrorResponse
	if !errors.As(err, &errResp) {
		errResp = schemas.NewInternalError("Internal server error", ctx.FullPath())
	}
	ctx.JSON(errResp.Status, errResp)
	logger.Logger.WithFields(map[string]interface{}{
		"status":   errResp.Status,
		"instance": errResp.Instance,
	}).Error(errResp.Title + ": " + errResp.Detail)
}
