package relay

import (
	"context"
	"strings"

	commonhttp "intake-notifications/internal/common/http"
)

const emailJSSendPath = "/api/v1.0/email/send"

type emailJSPayload struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// EmailJSRelay posts to an EmailJS-compatible REST endpoint.
type EmailJSRelay struct {
	baseURL string
	client  *commonhttp.Client
}

func NewEmailJSRelay(baseURL string, client *commonhttp.Client) *EmailJSRelay {
	return &EmailJSRelay{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (r *EmailJSRelay) Send(ctx context.Context, req Request) (*Response, error) {
	payload := emailJSPayload{
		ServiceID:      req.ServiceID,
		TemplateID:     req.TemplateID,
		UserID:         req.PublicKey,
		AccessToken:    req.PrivateKey,
		TemplateParams: req.Params,
	}

	status, body, err := r.client.PostJSON(ctx, r.baseURL+emailJSSendPath, nil, payload)
	if err != nil {
		return nil, err
	}
	return &Response{Status: status, Text: strings.TrimSpace(string(body))}, nil
}
