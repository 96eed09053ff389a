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

// WebCallController serves the browser-based call surface. Its status, end,
// and get handlers are session-generic and are reused for phone sessions.
type WebCallController struct {
	Service *service.SessionService
}

func NewWebCallController(svc *service.SessionService) *WebCallController {
	return &WebCallController{Service: svc}
}

// Initiate handles POST /api/web-call. The body is optional; an anonymous
// session is opened when no user info is supplied.
func (wc *WebCallController) Initiate(ctx *gin.Context) {
	var req schemas.InitiateWebCallRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.SendError(ctx, schemas.ValidationFailedError("Invalid JSON format: "+err.Error(), ctx.FullPath()))
		return
	}

	result, err := wc.Service.Initiate(ctx.Request.Context(), service.InitiateParams{
		Kind:     models.TypeWebCall,
		UserInfo: req.UserInfo,
		Metadata: captureMetadata(ctx),
	})
	if err != nil {
		utils.SendError(ctx, err)
		return
	}

	respond(ctx, http.StatusOK, result, result.Message)
}

// Get handles GET /api/web-call/:sessionId.
func (wc *WebCallController) Get(ctx *gin.Context) {
	sessionID := ctx.Param("sessionId")

	view, err := wc.Service.Get(ctx.Request.Context(), sessionID, ctx.FullPath())
	if err != nil {
		utils.SendError(ctx, err)
		return
	}

	respond(ctx, http.StatusOK, view, "")
}

// UpdateStatus handles PUT /api/web-call/status.
func (wc *WebCallController) UpdateStatus(ctx *gin.Context) {
	var req schemas.UpdateSessionStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.SendError(ctx, schemas.ValidationFailedError("Invalid JSON format: "+err.Error(), ctx.FullPath()))
		return
	}

	result, err := wc.Service.UpdateStatus(ctx.Request.Context(), req.SessionID, req.Status, req.Notes, ctx.FullPath())
	if err != nil {
		utils.SendError(ctx, err)
		return
	}

	respond(ctx, http.StatusOK, result, result.Message)
}

// End handles POST /api/web-call/end.
func (wc *WebCallController) End(ctx *gin.Context) {
	var req schemas.EndSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.SendError(ctx, schemas.ValidationFailedError("Invalid JSON format: "+err.Error(), ctx.FullPath()))
		return
	}

	result, err := wc.Service.End(ctx.Request.Context(), req.SessionID, req.Outcome, req.Notes, ctx.FullPath())
	if err != nil {
		utils.SendError(ctx, err)
		return
	}

	respond(ctx, http.StatusOK, result, result.Message)
}
