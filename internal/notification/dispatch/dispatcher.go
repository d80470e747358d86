// Package dispatch fans one notification out to a list of recipients, one
// relay call each, without letting a single failure abort the batch.
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"intake-notifications/internal/common/errors"
	"intake-notifications/internal/common/logger"
	"intake-notifications/internal/common/metrics"
	"intake-notifications/internal/common/validation"
	"intake-notifications/internal/models"
	"intake-notifications/internal/notification/relay"
)

type Dispatcher struct {
	transport relay.Transport
	logger    logger.Logger
	tracer    trace.Tracer
}

func New(transport relay.Transport, log logger.Logger, tracer trace.Tracer) *Dispatcher {
	if tracer == nil {
		tracer = otel.Tracer("intake-notifications/dispatch")
	}
	return &Dispatcher{
		transport: transport,
		logger:    log.WithFields(map[string]interface{}{"component": "dispatcher"}),
		tracer:    tracer,
	}
}

// Dispatch delivers content to every recipient in order and returns one
// outcome per recipient. It never panics and never returns early.
func (d *Dispatcher) Dispatch(ctx context.Context, content models.BuiltMessage, recipients []string, cfg models.NotificationConfig) models.DispatchResult {
	result := models.DispatchResult{Outcomes: make([]models.RecipientOutcome, 0, len(recipients))}

	for _, r := range recipients {
		outcome := d.deliver(ctx, content, r, cfg)
		result.Attempted++
		if outcome.Delivered {
			result.Delivered++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	d.logger.Info("dispatch finished", map[string]interface{}{
		"attempted": result.Attempted,
		"delivered": result.Delivered,
	})
	return result
}

func (d *Dispatcher) deliver(ctx context.Context, content models.BuiltMessage, raw string, cfg models.NotificationConfig) (outcome models.RecipientOutcome) {
	recipient := strings.TrimSpace(raw)
	outcome.Recipient = recipient

	ctx, span := d.tracer.Start(ctx, "notification.deliver",
		trace.WithAttributes(attribute.String("recipient.domain", domainOf(recipient))))
	defer span.End()

	defer func() {
		if p := recover(); p != nil {
			outcome = failed(recipient, errors.NewTransportUnreachableError(fmt.Errorf("panic: %v", p)))
		}
		record(span, outcome)
		if !outcome.Delivered {
			d.logger.Warn("recipient delivery failed", map[string]interface{}{
				"recipient": recipient,
				"code":      outcome.ErrorCode,
				"detail":    outcome.ErrorDetail,
			})
		}
	}()

	if recipient == "" || !validation.ValidateEmail(recipient) {
		return failed(recipient, errors.NewInvalidInputError(fmt.Sprintf("invalid recipient address %q", raw)))
	}

	resp, err := d.transport.Send(ctx, relay.Request{
		ServiceID:  cfg.ServiceID,
		TemplateID: cfg.TemplateID,
		PublicKey:  cfg.PublicKey,
		PrivateKey: cfg.PrivateKey,
		Params:     BuildParams(content, recipient, cfg),
	})
	if err != nil {
		return failed(recipient, errors.NewTransportUnreachableError(err))
	}
	if resp == nil {
		return failed(recipient, errors.NewTransportUnreachableError(fmt.Errorf("relay returned no response")))
	}
	if !resp.OK() {
		rejected := errors.NewTransportRejectedError(resp.Status, resp.Text)
		rejected.Details = fmt.Sprintf("relay rejected delivery (status %d): %s", resp.Status, resp.Text)
		return failed(recipient, rejected)
	}

	return models.RecipientOutcome{Recipient: recipient, Delivered: true}
}

func failed(recipient string, err *errors.StandardError) models.RecipientOutcome {
	return models.RecipientOutcome{
		Recipient:   recipient,
		Delivered:   false,
		ErrorCode:   string(err.Code),
		ErrorDetail: err.Details,
	}
}

func record(span trace.Span, o models.RecipientOutcome) {
	status := "delivered"
	switch o.ErrorCode {
	case "":
	case string(errors.ErrCodeInvalidInput):
		status = "invalid"
	case string(errors.ErrCodeTransportRejected):
		status = "rejected"
	default:
		status = "unreachable"
	}
	metrics.RecipientDeliveries.WithLabelValues(status).Inc()

	span.SetAttributes(attribute.String("delivery.status", status))
	if !o.Delivered {
		span.SetStatus(codes.Error, o.ErrorCode)
	}
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 {
		return addr[i+1:]
	}
	return ""
}
