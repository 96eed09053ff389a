package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"call-session-service/src/models"
)

// CallResult is the uniform outcome of a call attempt, whether the vendor
// answered or the fallback path synthesized it. Mock distinguishes the two.
type CallResult struct {
	Ref           string
	Status        models.SessionStatus
	Counselor     models.Counselor
	Message       string
	WebCallURL    string
	EstimatedWait string
	Mock          bool
}

// Adapter attempts a call through the external vendor. Vendor
// unreachability is never surfaced as an error; the non-nil error return is
// reserved for context cancellation.
type Adapter interface {
	AttemptCall(ctx context.Context, kind models.SessionType, sessionID, target string, info models.UserInfo) (*CallResult, error)
}

// Config holds the vendor API settings.
type Config struct {
	APIKey  string
	AgentID string
	BaseURL string
	Timeout time.Duration
}

// OmnidimAdapter brokers calls through the OmniDimension API, degrading to a
// synthesized counselor whenever the vendor cannot be reached. The fallback
// keeps a vendor outage invisible to the caller: the user still reaches a
// generic counselor instead of an error.
type OmnidimAdapter struct {
	config Config
	client *http.Client
}

// NewOmnidimAdapter creates an adapter with a bounded vendor timeout.
func NewOmnidimAdapter(cfg Config) *OmnidimAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	return &OmnidimAdapter{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type vendorCallRequest struct {
	AgentID  string `json:"agent_id"`
	CallType string `json:"call_type"`
	ToNumber string `json:"to_number,omitempty"`
	UserName string `json:"user_name,omitempty"`
	Email    string `json:"email,omitempty"`
}

type vendorCallResponse struct {
	SessionID  string `json:"session_id"`
	Status     string `json:"status"`
	WebCallURL string `json:"web_call_url"`
	Counselor  struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"counselor"`
	Message string `json:"message"`
}

// AttemptCall tries the vendor once and falls back on any failure: dial
// error, timeout, non-2xx status, or an unparseable body.
func (a *OmnidimAdapter) AttemptCall(ctx context.Context, kind models.SessionType, sessionID, target string, info models.UserInfo) (*CallResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := a.callVendor(ctx, kind, target, info)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("OmniDimension API not reachable, using mock response",
			"session_id", sessionID,
			"kind", kind,
			"error", err.Error())
		return Fallback(kind, sessionID), nil
	}

	slog.Info("Vendor accepted call",
		"session_id", sessionID,
		"vendor_ref", result.Ref,
		"status", result.Status)

	return result, nil
}

func (a *OmnidimAdapter) callVendor(ctx context.Context, kind models.SessionType, target string, info models.UserInfo) (*CallResult, error) {
	payload := vendorCallRequest{
		AgentID:  a.config.AgentID,
		CallType: string(kind),
		ToNumber: target,
		UserName: info.Name,
		Email:    info.Email,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vendor request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/agents/%s/calls", a.config.BaseURL, a.config.AgentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build vendor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vendor request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("vendor returned status code: %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read vendor response: %w", err)
	}

	var vendor vendorCallResponse
	if err := json.Unmarshal(respBody, &vendor); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vendor response: %w", err)
	}

	status, err := models.ParseSessionStatus(vendor.Status)
	if err != nil || status.IsTerminal() {
		status = models.StatusConnecting
	}

	message := vendor.Message
	if message == "" {
		message = "Call connected"
	}

	return &CallResult{
		Ref:    vendor.SessionID,
		Status: status,
		Counselor: models.Counselor{
			ID:   vendor.Counselor.ID,
			Name: vendor.Counselor.Name,
		},
		Message:    message,
		WebCallURL: vendor.WebCallURL,
		Mock:       false,
	}, nil
}

// Fallback synthesizes the deterministic mock response used whenever the
// vendor is unreachable. The "mock_" ref prefix and Mock flag keep simulated
// sessions distinguishable from real ones downstream.
func Fallback(kind models.SessionType, sessionID string) *CallResult {
	result := &CallResult{
		Ref: "mock_" + sessionID,
		Counselor: models.Counselor{
			ID:   "mock_counselor_001",
			Name: "Available Counselor",
		},
		Mock: true,
	}

	switch kind {
	case models.TypePhoneCall:
		result.Status = models.StatusConnecting
		result.EstimatedWait = "2-3 minutes"
		result.Message = "Phone call initiated successfully (mock)"
	default:
		result.Status = models.StatusActive
		result.Message = "Using fallback chat widget. Please use the chat widget in the bottom right corner."
	}

	return result
}
