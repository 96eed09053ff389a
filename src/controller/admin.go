package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"call-session-service/src/models"
	"call-session-service/src/repository"
	"call-session-service/src/service"
	"call-session-service/src/utils"
)

// AdminController serves the operational monitoring surface.
type AdminController struct {
	Service *service.SessionService
}

func NewAdminController(svc *service.SessionService) *AdminController {
	return &AdminController{Service: svc}
}

// ListSessions handles GET /api/web-call/admin/sessions with paging and
// optional status/type/emergency filters.
func (ac *AdminController) ListSessions(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	filter := repository.SessionFilter{
		Status: models.SessionStatus(ctx.Query("status")),
		Type:   models.SessionType(ctx.Query("type")),
	}
	if raw := ctx.Query("emergency"); raw != "" {
		emergency := raw == "true"
		filter.Emergency = &emergency
	}

	result, err := ac.Service.List(ctx.Request.Context(), filter, page, limit)
	if err != nil {
		utils.SendError(ctx, err)
		return
	}

	respond(ctx, http.StatusOK, result, "")
}

// Stats handles GET /api/web-call/admin/stats.
func (ac *AdminController) Stats(ctx *gin.Context) {
	stats, err := ac.Service.Stats(ctx.Request.Context())
	if err != nil {
		utils.SendError(ctx, err)
		return
	}

	respond(ctx, http.StatusOK, stats, "")
}
