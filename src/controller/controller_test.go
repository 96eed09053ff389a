package controller_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"call-session-service/src/config"
	"call-session-service/src/middleware"
	"call-session-service/src/provider"
	"call-session-service/src/realtime"
	"call-session-service/src/repository"
	"call-session-service/src/router"
	"call-session-service/src/service"
)

const testSecret = "test-secret"

// newTestRouter wires the full HTTP surface against the in-memory store and
// an unreachable vendor, so every initiation takes the mock fallback path.
func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.GlobalConfig{
		Environment: "test",
		JWTSecret:   testSecret,
		CORSOrigin:  "*",
	}

	adapter := provider.NewOmnidimAdapter(provider.Config{
		APIKey:  "k",
		AgentID: "a",
		BaseURL: "http://127.0.0.1:1",
		Timeout: 300 * time.Millisecond,
	})

	svc := service.NewSessionService(repository.NewMemorySessionRepository(), adapter, realtime.NopNotifier{})

	hub := realtime.NewHub()
	t.Cleanup(hub.Close)

	return router.NewRouter(cfg, svc, hub, nil)
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, payload interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	parsed := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	}
	return rec, parsed
}

func startSession(t *testing.T, engine *gin.Engine) string {
	t.Helper()
	rec, resp := doJSON(t, engine, http.MethodPost, "/api/web-call", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp["data"].(map[string]interface{})
	return data["sessionId"].(string)
}

func testToken(t *testing.T) string {
	t.Helper()
	token, err := middleware.IssueToken("user-1", "user", testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func TestInitiateWebCallWithoutBody(t *testing.T) {
	engine := newTestRouter(t)

	rec, resp := doJSON(t, engine, http.MethodPost, "/api/web-call", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, true, resp["success"])
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, true, data["mock"])
	assert.Equal(t, "active", data["status"])
	assert.NotEmpty(t, data["sessionId"])
}

func TestInitiatePhoneCall(t *testing.T) {
	engine := newTestRouter(t)

	t.Run("requires a phone number", func(t *testing.T) {
		rec, resp := doJSON(t, engine, http.MethodPost, "/api/phone-call", "", map[string]interface{}{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, resp["type"], "validation-error")
	})

	t.Run("connects with a mock counselor", func(t *testing.T) {
		rec, resp := doJSON(t, engine, http.MethodPost, "/api/phone-call", "", map[string]interface{}{
			"phoneNumber": "+15551234567",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		data := resp["data"].(map[string]interface{})
		assert.Equal(t, true, data["mock"])
		assert.Equal(t, "connecting", data["status"])
		assert.Equal(t, "2-3 minutes", data["estimatedWait"])
		assert.Equal(t, "+15551234567", data["phoneNumber"])
	})
}

func TestGetSession(t *testing.T) {
	engine := newTestRouter(t)
	sessionID := startSession(t, engine)

	rec, resp := doJSON(t, engine, http.MethodGet, "/api/web-call/"+sessionID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data := resp["data"].(map[string]interface{})
	assert.Equal(t, sessionID, data["session_id"])
	assert.Equal(t, "Available Counselor", data["counselor_name"])

	rec, _ = doJSON(t, engine, http.MethodGet, "/api/web-call/unknown-id", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateStatusRequiresAuth(t *testing.T) {
	engine := newTestRouter(t)
	sessionID := startSession(t, engine)

	rec, _ := doJSON(t, engine, http.MethodPut, "/api/web-call/status", "", map[string]interface{}{
		"sessionId": sessionID,
		"status":    "connecting",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = doJSON(t, engine, http.MethodPut, "/api/web-call/status", "not-a-token", map[string]interface{}{
		"sessionId": sessionID,
		"status":    "connecting",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateStatusLifecycle(t *testing.T) {
	engine := newTestRouter(t)
	sessionID := startSession(t, engine)
	token := testToken(t)

	rec, resp := doJSON(t, engine, http.MethodPut, "/api/web-call/status", token, map[string]interface{}{
		"sessionId": sessionID,
		"status":    "connecting",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "connecting", data["status"])

	rec, _ = doJSON(t, engine, http.MethodPost, "/api/web-call/end", token, map[string]interface{}{
		"sessionId": sessionID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Terminal sessions reject every further mutation.
	rec, resp = doJSON(t, engine, http.MethodPut, "/api/web-call/status", token, map[string]interface{}{
		"sessionId": sessionID,
		"status":    "active",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, resp["type"], "session-already-terminal")

	rec, _ = doJSON(t, engine, http.MethodPost, "/api/web-call/end", token, map[string]interface{}{
		"sessionId": sessionID,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPhoneRouteErrorsReportPhoneInstance(t *testing.T) {
	engine := newTestRouter(t)

	rec, resp := doJSON(t, engine, http.MethodPut, "/api/phone-call/status", "", map[string]interface{}{
		"sessionId": "unknown-id",
		"status":    "active",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/api/phone-call/status", resp["instance"])

	rec, resp = doJSON(t, engine, http.MethodPost, "/api/phone-call/end", "", map[string]interface{}{
		"sessionId": "unknown-id",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "/api/phone-call/end", resp["instance"])
}

func TestEndSessionDefaultsOutcome(t *testing.T) {
	engine := newTestRouter(t)
	sessionID := startSession(t, engine)

	rec, resp := doJSON(t, engine, http.MethodPost, "/api/web-call/end", testToken(t), map[string]interface{}{
		"sessionId": sessionID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ended", data["status"])
	assert.Equal(t, "resolved", data["outcome"])
}

func TestAdminSurface(t *testing.T) {
	engine := newTestRouter(t)
	startSession(t, engine)
	startSession(t, engine)
	token := testToken(t)

	rec, _ := doJSON(t, engine, http.MethodGet, "/api/web-call/admin/sessions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp := doJSON(t, engine, http.MethodGet, "/api/web-call/admin/sessions?page=1&limit=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["total"])
	assert.Equal(t, float64(2), data["totalPages"])

	rec, resp = doJSON(t, engine, http.MethodGet, "/api/web-call/admin/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data = resp["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["totalSessions"])
	assert.Equal(t, float64(2), data["activeSessions"])
}

func TestEmergencyContactsDirectory(t *testing.T) {
	engine := newTestRouter(t)

	rec, resp := doJSON(t, engine, http.MethodGet, "/api/phone-call/emergency-contacts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data := resp["data"].(map[string]interface{})
	contacts := data["contacts"].(map[string]interface{})
	require.NotEmpty(t, contacts)

	var numbers []string
	for _, c := range contacts {
		numbers = append(numbers, c.(map[string]interface{})["number"].(string))
	}
	assert.Contains(t, numbers, "911")
	assert.Contains(t, numbers, "1-800-273-8255")
}

func TestHealthEndpoint(t *testing.T) {
	engine := newTestRouter(t)

	rec, resp := doJSON(t, engine, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "memory", resp["storage"])
}

func TestSetupEndpoint(t *testing.T) {
	engine := newTestRouter(t)

	rec, resp := doJSON(t, engine, http.MethodGet, "/setup", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, resp, "missing")
	assert.Contains(t, resp, "provider_configured")
}

func TestUnknownRoute(t *testing.T) {
	engine := newTestRouter(t)

	rec, resp := doJSON(t, engine, http.MethodGet, "/api/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", resp["title"])
}
