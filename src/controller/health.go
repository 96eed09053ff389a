package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"call-session-service/src/config"
	"call-session-service/src/db"
)

// HealthController serves the health and setup diagnostics endpoints.
type HealthController struct {
	Config *config.GlobalConfig
	// DB is nil when the in-memory repository is selected.
	DB *db.DB

	startedAt time.Time
}

func NewHealthController(cfg *config.GlobalConfig, database *db.DB) *HealthController {
	return &HealthController{Config: cfg, DB: database, startedAt: time.Now()}
}

// Health handles GET /health.
func (hc *HealthController) Health(ctx *gin.Context) {
	storage := "memory"
	if hc.DB != nil {
		storage = "postgres"
		if err := hc.DB.Ping(); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "degraded",
				"service":   "call-session-service",
				"storage":   storage,
				"error":     "database unreachable",
				"timestamp": time.Now().UTC(),
			})
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"service":     "call-session-service",
		"environment": hc.Config.Environment,
		"storage":     storage,
		"uptime":      int64(time.Since(hc.startedAt).Seconds()),
		"timestamp":   time.Now().UTC(),
	})
}

// Setup handles GET /setup: it reports which required environment variables
// are missing and whether the vendor integration is configured. Values are
// never echoed back.
func (hc *HealthController) Setup(ctx *gin.Context) {
	missing := config.MissingRequired()

	ctx.JSON(http.StatusOK, gin.H{
		"service":             "call-session-service",
		"environment":         hc.Config.Environment,
		"configured":          len(missing) == 0,
		"missing":             missing,
		"provider_configured": hc.Config.OmnidimAPIKey != "" && hc.Config.OmnidimAgentID != "",
		"database_configured": hc.Config.DatabaseURL != "",
		"amqp_configured":     hc.Config.AMQPURL != "",
	})
}
