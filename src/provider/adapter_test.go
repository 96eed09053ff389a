package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"call-session-service/src/models"
)

func TestAttemptCallVendorSuccess(t *testing.T) {
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/agents/agent-1/calls", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))

		var req vendorCallRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "web_call", req.CallType)

		json.NewEncoder(w).Encode(vendorCallResponse{
			SessionID:  "vendor-ref-1",
			Status:     "active",
			WebCallURL: "https://vendor.example/call/1",
			Message:    "Connected",
		})
	}))
	defer vendor.Close()

	adapter := NewOmnidimAdapter(Config{
		APIKey:  "key-1",
		AgentID: "agent-1",
		BaseURL: vendor.URL,
	})

	result, err := adapter.AttemptCall(context.Background(), models.TypeWebCall, "sess-1", "", models.UserInfo{Name: "Jamie"})
	require.NoError(t, err)
	assert.False(t, result.Mock)
	assert.Equal(t, "vendor-ref-1", result.Ref)
	assert.Equal(t, models.StatusActive, result.Status)
	assert.Equal(t, "https://vendor.example/call/1", result.WebCallURL)
}

func TestAttemptCallFallsBackWhenUnreachable(t *testing.T) {
	adapter := NewOmnidimAdapter(Config{
		APIKey:  "key-1",
		AgentID: "agent-1",
		BaseURL: "http://127.0.0.1:1", // nothing listens here
		Timeout: 500 * time.Millisecond,
	})

	result, err := adapter.AttemptCall(context.Background(), models.TypeWebCall, "sess-1", "", models.UserInfo{})
	require.NoError(t, err, "vendor unreachability must not surface as an error")
	assert.True(t, result.Mock)
	assert.Equal(t, "mock_sess-1", result.Ref)
	assert.Equal(t, models.StatusActive, result.Status)
	assert.Equal(t, "mock_counselor_001", result.Counselor.ID)
	assert.Equal(t, "Available Counselor", result.Counselor.Name)
}

func TestAttemptCallFallsBackOnVendorError(t *testing.T) {
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer vendor.Close()

	adapter := NewOmnidimAdapter(Config{APIKey: "k", AgentID: "a", BaseURL: vendor.URL})

	result, err := adapter.AttemptCall(context.Background(), models.TypePhoneCall, "sess-2", "+15551234567", models.UserInfo{})
	require.NoError(t, err)
	assert.True(t, result.Mock)
	assert.Equal(t, models.StatusConnecting, result.Status)
	assert.Equal(t, "2-3 minutes", result.EstimatedWait)
}

func TestAttemptCallFallsBackOnMalformedBody(t *testing.T) {
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer vendor.Close()

	adapter := NewOmnidimAdapter(Config{APIKey: "k", AgentID: "a", BaseURL: vendor.URL})

	result, err := adapter.AttemptCall(context.Background(), models.TypeWebCall, "sess-3", "", models.UserInfo{})
	require.NoError(t, err)
	assert.True(t, result.Mock)
}

func TestAttemptCallHonorsContextCancellation(t *testing.T) {
	adapter := NewOmnidimAdapter(Config{APIKey: "k", AgentID: "a", BaseURL: "http://127.0.0.1:1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := adapter.AttemptCall(ctx, models.TypeWebCall, "sess-4", "", models.UserInfo{})
	assert.Error(t, err)
}

func TestFallbackShapes(t *testing.T) {
	phone := Fallback(models.TypePhoneCall, "id-1")
	assert.Equal(t, models.StatusConnecting, phone.Status)
	assert.Equal(t, "mock_id-1", phone.Ref)
	assert.NotEmpty(t, phone.EstimatedWait)

	web := Fallback(models.TypeWebCall, "id-2")
	assert.Equal(t, models.StatusActive, web.Status)
	assert.Empty(t, web.EstimatedWait)
	assert.Contains(t, web.Message, "chat widget")
}
