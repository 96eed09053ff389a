package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"call-session-service/src/config"
	"call-session-service/src/controller"
	"call-session-service/src/db"
	"call-session-service/src/middleware"
	"call-session-service/src/realtime"
	"call-session-service/src/schemas"
	"call-session-service/src/service"
)

// NewRouter sets up the gin engine with all routes for the service.
// Mutating session routes sit behind bearer auth; initiation and the
// emergency directory stay open so a caller in crisis is never blocked by a
// missing token.
func NewRouter(cfg *config.GlobalConfig, svc *service.SessionService, hub *realtime.Hub, database *db.DB) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(middleware.CORS(cfg.CORSOrigin))

	webCall := controller.NewWebCallController(svc)
	phoneCall := controller.NewPhoneCallController(svc)
	admin := controller.NewAdminController(svc)
	health := controller.NewHealthController(cfg, database)

	auth := middleware.AuthRequired(cfg.JWTSecret)

	web := router.Group("/api/web-call")
	{
		web.POST("", webCall.Initiate)
		web.PUT("/status", auth, webCall.UpdateStatus)
		web.POST("/end", auth, webCall.End)
		web.GET("/admin/sessions", auth, admin.ListSessions)
		web.GET("/admin/stats", auth, admin.Stats)
		web.GET("/:sessionId", webCall.Get)
	}

	phone := router.Group("/api/phone-call")
	{
		phone.POST("", phoneCall.Initiate)
		phone.GET("/emergency-contacts", phoneCall.EmergencyContacts)
		phone.PUT("/status", webCall.UpdateStatus)
		phone.POST("/end", webCall.End)
		phone.GET("/:sessionId", webCall.Get)
	}

	router.GET("/health", health.Health)
	router.GET("/setup", health.Setup)

	router.GET("/ws", func(c *gin.Context) {
		hub.HandleWebSocket(c.Writer, c.Request)
	})

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound,
			schemas.NewNotFoundError("Route not found", c.Request.URL.Path))
	})

	return router
}
