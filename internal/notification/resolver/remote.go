package resolver

import (
	"context"
	"encoding/json"
	"fmt"

	"intake-notifications/internal/common/auth"
	commonhttp "intake-notifications/internal/common/http"
	"intake-notifications/internal/common/validation"
	"intake-notifications/internal/models"
)

const (
	statusPath     = "/notification-status"
	fullConfigPath = "/notification-full-config"
)

var fullConfigSchema = validation.MustDocumentValidator(`{
	"type": "object",
	"required": ["serviceId", "templateId", "publicKey"],
	"properties": {
		"serviceId":  {"type": "string"},
		"templateId": {"type": "string"},
		"publicKey":  {"type": "string"},
		"privateKey": {"type": ["string", "null"]},
		"fromName":   {"type": ["string", "null"]},
		"fromEmail":  {"type": ["string", "null"]}
	}
}`)

type statusResponse struct {
	Configured bool `json:"configured"`
}

// RemoteStrategy asks the intake API whether notifications are configured and,
// if so, fetches the full configuration from its privileged endpoint.
type RemoteStrategy struct {
	baseURL string
	client  *commonhttp.Client
	tokens  auth.TokenSource
}

// NewRemoteStrategy returns nil when baseURL is empty so callers can skip it.
func NewRemoteStrategy(baseURL string, client *commonhttp.Client, tokens auth.TokenSource) *RemoteStrategy {
	if baseURL == "" {
		return nil
	}
	return &RemoteStrategy{baseURL: baseURL, client: client, tokens: tokens}
}

func (r *RemoteStrategy) Name() string { return SourceRemote }

func (r *RemoteStrategy) Resolve(ctx context.Context) (*models.NotificationConfig, error) {
	var status statusResponse
	if err := r.client.GetJSON(ctx, r.baseURL+statusPath, nil, &status); err != nil {
		return nil, fmt.Errorf("status check: %w", err)
	}
	if !status.Configured {
		return nil, nil
	}

	headers := map[string]string{}
	if r.tokens != nil {
		token, err := r.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("access token: %w", err)
		}
		headers["Authorization"] = "Bearer " + token
	}

	var payload map[string]interface{}
	if err := r.client.GetJSON(ctx, r.baseURL+fullConfigPath, headers, &payload); err != nil {
		return nil, fmt.Errorf("full config: %w", err)
	}
	if err := fullConfigSchema.Validate(payload); err != nil {
		return nil, fmt.Errorf("full config: %w", err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("full config: %w", err)
	}
	var cfg models.NotificationConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("full config: %w", err)
	}
	return &cfg, nil
}
