package controller

import (
	"strings"

	"github.com/gin-gonic/gin"

	"call-session-service/src/models"
	"call-session-service/src/schemas"
)

// respond writes the uniform success envelope.
func respond(ctx *gin.Context, status int, data interface{}, message string) {
	ctx.JSON(status, schemas.APIResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// captureMetadata snapshots request attributes for the session record.
func captureMetadata(ctx *gin.Context) models.Metadata {
	ua := ctx.GetHeader("User-Agent")
	return models.Metadata{
		UserAgent:  ua,
		IPAddress:  ctx.ClientIP(),
		DeviceType: deviceType(ua),
	}
}

func deviceType(userAgent string) string {
	ua := strings.ToLower(userAgent)
	if strings.Contains(ua, "mobile") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone") {
		return "mobile"
	}
	return "desktop"
}
