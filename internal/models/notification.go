// internal/models/notification.go
package models

import "strings"

// NotificationConfig holds the relay credentials and sender identity used to
// deliver administrator notifications.
type NotificationConfig struct {
	ServiceID  string `json:"serviceId"`
	TemplateID string `json:"templateId"`
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey,omitempty"`
	FromName   string `json:"fromName,omitempty"`
	FromEmail  string `json:"fromEmail,omitempty"`

	// Source names where the configuration came from ("remote", "environment", "manual").
	Source string `json:"-"`
}

// IsComplete reports whether the three required relay fields are present.
func (c *NotificationConfig) IsComplete() bool {
	if c == nil {
		return false
	}
	return strings.TrimSpace(c.ServiceID) != "" &&
		strings.TrimSpace(c.TemplateID) != "" &&
		strings.TrimSpace(c.PublicKey) != ""
}

// MissingRequired lists the required fields that are empty, in a fixed order.
func (c *NotificationConfig) MissingRequired() []string {
	var missing []string
	if c == nil || strings.TrimSpace(c.ServiceID) == "" {
		missing = append(missing, "serviceId")
	}
	if c == nil || strings.TrimSpace(c.TemplateID) == "" {
		missing = append(missing, "templateId")
	}
	if c == nil || strings.TrimSpace(c.PublicKey) == "" {
		missing = append(missing, "publicKey")
	}
	return missing
}

// WithDefaults returns a trimmed copy with sender defaults applied.
func (c NotificationConfig) WithDefaults(fromName, fromEmail string) NotificationConfig {
	out := NotificationConfig{
		ServiceID:  strings.TrimSpace(c.ServiceID),
		TemplateID: strings.TrimSpace(c.TemplateID),
		PublicKey:  strings.TrimSpace(c.PublicKey),
		PrivateKey: strings.TrimSpace(c.PrivateKey),
		FromName:   strings.TrimSpace(c.FromName),
		FromEmail:  strings.TrimSpace(c.FromEmail),
		Source:     c.Source,
	}
	if out.FromName == "" {
		out.FromName = fromName
	}
	if out.FromEmail == "" {
		out.FromEmail = fromEmail
	}
	return out
}

// Redacted returns the view safe to hand to operators. The private key never
// leaves the service.
func (c NotificationConfig) Redacted() *RedactedConfig {
	return &RedactedConfig{
		ServiceID:     c.ServiceID,
		TemplateID:    c.TemplateID,
		PublicKey:     c.PublicKey,
		FromName:      c.FromName,
		FromEmail:     c.FromEmail,
		HasPrivateKey: c.PrivateKey != "",
		Source:        c.Source,
	}
}

// RedactedConfig is the operator-facing view of NotificationConfig.
type RedactedConfig struct {
	ServiceID     string `json:"serviceId"`
	TemplateID    string `json:"templateId"`
	PublicKey     string `json:"publicKey"`
	FromName      string `json:"fromName"`
	FromEmail     string `json:"fromEmail"`
	HasPrivateKey bool   `json:"hasPrivateKey"`
	Source        string `json:"source,omitempty"`
}

// BuiltMessage is the rendered content for one submission.
type BuiltMessage struct {
	Subject string            `json:"subject"`
	HTML    string            `json:"html"`
	Text    string            `json:"text"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// RecipientOutcome is the result of one delivery attempt to one recipient.
type RecipientOutcome struct {
	Recipient   string `json:"recipient"`
	Delivered   bool   `json:"delivered"`
	ErrorCode   string `json:"errorCode,omitempty"`
	ErrorDetail string `json:"errorDetail,omitempty"`
}

// DispatchResult aggregates the outcomes of a single dispatch call.
type DispatchResult struct {
	Attempted int                `json:"attempted"`
	Delivered int                `json:"delivered"`
	Outcomes  []RecipientOutcome `json:"outcomes"`
}

// Success applies the at-least-one-success policy.
func (r DispatchResult) Success() bool {
	return r.Delivered > 0
}

// Failed returns the outcomes that were not delivered.
func (r DispatchResult) Failed() []RecipientOutcome {
	var failed []RecipientOutcome
	for _, o := range r.Outcomes {
		if !o.Delivered {
			failed = append(failed, o)
		}
	}
	return failed
}

// Dispatch statuses reported to callers and job variables.
const (
	DispatchStatusSent         = "sent"
	DispatchStatusPartial      = "partial"
	DispatchStatusFailed       = "failed"
	DispatchStatusSkipped      = "skipped"
	DispatchStatusUnconfigured = "unconfigured"
	DispatchStatusInvalidInput = "invalid_input"
)

// Status classifies a completed dispatch.
func (r DispatchResult) Status() string {
	switch {
	case r.Attempted == 0:
		return DispatchStatusSkipped
	case r.Delivered == r.Attempted:
		return DispatchStatusSent
	case r.Delivered > 0:
		return DispatchStatusPartial
	default:
		return DispatchStatusFailed
	}
}
