package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"call-session-service/src/models"
	"call-session-service/src/schemas"
	"call-session-service/src/service"
	"call-session-service/src/utils"
)

// PhoneCallController serves the outbound phone-call surface.
type PhoneCallController struct {
	Service *service.SessionService
}

func NewPhoneCallController(svc *service.SessionService) *PhoneCallController {
	return &PhoneCallController{Service: svc}
}

// Initiate handles POST /api/phone-call. A phone number is required; the
// session record is only created once the request passes validation.
func (pc *PhoneCallController) Initiate(ctx *gin.Context) {
	var req schemas.InitiatePhoneCallRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.SendError(ctx, schemas.ValidationFailedError("Invalid JSON format: "+err.Error(), ctx.FullPath()))
		return
	}

	result, err := pc.Service.Initiate(ctx.Request.Context(), service.InitiateParams{
		Kind:        models.TypePhoneCall,
		UserID:      req.UserID,
		PhoneNumber: req.PhoneNumber,
		UserInfo:    req.UserInfo,
		Metadata:    captureMetadata(ctx),
	})
	if err != nil {
		utils.SendError(ctx, err)
		return
	}

	respond(ctx, http.StatusOK, result, result.Message)
}

// EmergencyContacts handles GET /api/phone-call/emergency-contacts. The
// directory is static: it must stay reachable even when storage and the
// vendor are both down.
func (pc *PhoneCallController) EmergencyContacts(ctx *gin.Context) {
	respond(ctx, http.StatusOK, gin.H{
		"contacts": schemas.DefaultEmergencyContacts(),
	}, "If you are in immediate danger, call 911")
}
