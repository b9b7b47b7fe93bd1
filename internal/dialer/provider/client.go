// Package provider implements the client for the external voice calling API.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dialer_backend/internal/dialer/repository"
	"dialer_backend/platform/apperr"
	"dialer_backend/platform/config"
	"dialer_backend/platform/logger"
	"dialer_backend/platform/phone"

	"golang.org/x/time/rate"
)

const callType = "outbound_prospecting"

// Client places calls through the voice provider's REST API.
type Client struct {
	baseURL    string
	apiKey     string
	agentID    string
	fromNumber string
	http       *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
}

type createCallRequest struct {
	AgentID    string            `json:"agentId"`
	ToNumber   string            `json:"toNumber"`
	FromNumber string            `json:"fromNumber,omitempty"`
	Metadata   map[string]string `json:"metadata"`
	Variables  map[string]string `json:"variables"`
}

type createCallResponse struct {
	CallID string `json:"callId"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewClient builds a provider client. Missing credentials are not an error
// here: Dispatch fails fast per attempt so the rest of the engine keeps
// working (and reporting) without a configured provider.
func NewClient(cfg config.VoiceProviderConfig, log *logger.Logger) *Client {
	timeout := cfg.GetVoiceRequestTimeout()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	perMinute := cfg.GetVoiceRequestsPerMinute()
	if perMinute < 1 {
		perMinute = 30
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.GetVoiceAPIURL(), "/"),
		apiKey:     cfg.GetVoiceAPIKey(),
		agentID:    cfg.GetVoiceAgentID(),
		fromNumber: cfg.GetVoiceFromNumber(),
		http:       &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		log:        log,
	}
}

// FromNumber returns the configured origin number.
func (c *Client) FromNumber() string {
	return c.fromNumber
}

// Dispatch places one outbound call for the lead and returns the provider
// call id. All failure modes come back as typed errors; nothing raised by
// the provider escapes this boundary and lead state is never touched here.
func (c *Client) Dispatch(ctx context.Context, lead repository.Lead) (callID string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperr.Provider(fmt.Sprintf("voice provider panic: %v", r))
		}
	}()

	if c.baseURL == "" || c.apiKey == "" || c.agentID == "" {
		return "", apperr.Configuration("voice provider credentials or agent id not configured")
	}
	if lead.Phone == nil || strings.TrimSpace(*lead.Phone) == "" {
		return "", apperr.Validation("lead has no phone number")
	}

	toNumber := phone.NormalizeE164(*lead.Phone)

	variables := callVariables{
		FullName:   lead.FullName,
		FirstName:  firstName(lead.FullName),
		Role:       orDefault(lead.Role, defaultRole),
		Company:    orDefault(lead.Company, defaultCompany),
		ProfileURL: optional(lead.ProfileURL),
		LeadID:     lead.ID.String(),
	}

	payload := createCallRequest{
		AgentID:    c.agentID,
		ToNumber:   toNumber,
		FromNumber: c.fromNumber,
		Metadata: map[string]string{
			"leadId":      lead.ID.String(),
			"leadName":    lead.FullName,
			"leadCompany": variables.Company,
			"callType":    callType,
		},
		Variables: variables.Map(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "marshal call request", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", apperr.Wrap(apperr.KindProvider, "rate limit wait interrupted", err)
	}

	url := fmt.Sprintf("%s/v1/calls", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "build call request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindProvider, "voice provider request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return "", apperr.Provider(providerReason(resp.StatusCode, data))
	}

	var result createCallResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return "", apperr.Wrap(apperr.KindProvider, "decode voice provider response", err)
	}
	if result.CallID == "" {
		reason := result.Error
		if reason == "" {
			reason = "provider returned no call id"
		}
		return "", apperr.Provider(reason)
	}

	c.log.Info("voice call dispatched",
		"leadId", lead.ID,
		"to", phone.Mask(toNumber),
		"callId", result.CallID,
	)

	return result.CallID, nil
}

// providerReason extracts a terse failure reason from an error response.
// Providers return either a bare token ("rate_limited") or a JSON object
// with an error field; both are preserved verbatim for the lead's notes.
func providerReason(status int, body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return fmt.Sprintf("provider returned status %d", status)
	}

	var decoded createCallResponse
	if err := json.Unmarshal(body, &decoded); err == nil && decoded.Error != "" {
		return decoded.Error
	}

	return text
}
