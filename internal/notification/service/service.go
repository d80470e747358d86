// Package service is the notification facade: it owns the active relay
// configuration and turns submissions into dispatched notifications.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"intake-notifications/internal/common/errors"
	"intake-notifications/internal/common/logger"
	"intake-notifications/internal/common/observability"
	"intake-notifications/internal/models"
	"intake-notifications/internal/notification/resolver"
	"intake-notifications/internal/notification/template"
)

// ConfigResolver yields a complete configuration or nil.
type ConfigResolver interface {
	Resolve(ctx context.Context) *models.NotificationConfig
}

// Dispatcher delivers built content to recipients.
type Dispatcher interface {
	Dispatch(ctx context.Context, content models.BuiltMessage, recipients []string, cfg models.NotificationConfig) models.DispatchResult
}

// AuditRecorder persists dispatch outcomes.
type AuditRecorder interface {
	Record(ctx context.Context, submissionID string, result models.DispatchResult, at time.Time) error
}

// Alerter is told about dispatches that reached nobody.
type Alerter interface {
	TotalFailure(ctx context.Context, sub *models.SubmissionRecord, result models.DispatchResult) error
}

// SendReport is the detailed outcome of Send.
type SendReport struct {
	Success bool                  `json:"success"`
	Status  string                `json:"status"`
	Result  models.DispatchResult `json:"result"`
	Err     error                 `json:"-"`
}

// TestResult is returned by Test.
type TestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Options struct {
	Resolver   ConfigResolver
	Builder    template.Builder
	Dispatcher Dispatcher
	Audit      AuditRecorder
	Alerts     Alerter
	Obs        *observability.Observability
	Logger     logger.Logger

	DefaultFromName  string
	DefaultFromEmail string
}

type Service struct {
	mu     sync.RWMutex
	config *models.NotificationConfig

	resolver   ConfigResolver
	builder    template.Builder
	dispatcher Dispatcher
	audit      AuditRecorder
	alerts     Alerter
	obs        *observability.Observability
	logger     logger.Logger

	defaultFromName  string
	defaultFromEmail string
	now              func() time.Time
}

func New(opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{
		resolver:         opts.Resolver,
		builder:          opts.Builder,
		dispatcher:       opts.Dispatcher,
		audit:            opts.Audit,
		alerts:           opts.Alerts,
		obs:              opts.Obs,
		logger:           log.WithFields(map[string]interface{}{"component": "notification-service"}),
		defaultFromName:  opts.DefaultFromName,
		defaultFromEmail: opts.DefaultFromEmail,
		now:              time.Now,
	}
}

// Configure replaces the active configuration. It returns false and leaves
// the current state untouched when cfg lacks a required field.
func (s *Service) Configure(cfg models.NotificationConfig) bool {
	if !cfg.IsComplete() {
		s.logger.Warn("rejected incomplete notification configuration", map[string]interface{}{
			"missing": cfg.MissingRequired(),
		})
		return false
	}

	next := cfg.WithDefaults(s.defaultFromName, s.defaultFromEmail)
	if next.Source == "" {
		next.Source = resolver.SourceManual
	}

	s.mu.Lock()
	s.config = &next
	s.mu.Unlock()

	s.logger.Info("notification service configured", map[string]interface{}{
		"source":    next.Source,
		"serviceId": next.ServiceID,
	})
	return true
}

// Bootstrap resolves a configuration and applies it. Failure leaves the
// service unconfigured and is only logged.
func (s *Service) Bootstrap(ctx context.Context) bool {
	if s.resolver == nil {
		return false
	}
	cfg := s.resolver.Resolve(ctx)
	if cfg == nil {
		s.logger.Warn("notification service left unconfigured", nil)
		return false
	}
	return s.Configure(*cfg)
}

func (s *Service) IsConfigured() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config != nil
}

// GetConfig returns the redacted active configuration or nil.
func (s *Service) GetConfig() *models.RedactedConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return nil
	}
	return s.config.Redacted()
}

// Clear drops the active configuration.
func (s *Service) Clear() {
	s.mu.Lock()
	s.config = nil
	s.mu.Unlock()
	s.logger.Info("notification configuration cleared", nil)
}

func (s *Service) snapshot() (models.NotificationConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return models.NotificationConfig{}, false
	}
	return *s.config, true
}

// Send notifies recipients about sub and reports whether at least one was reached.
func (s *Service) Send(ctx context.Context, sub *models.SubmissionRecord, recipients []string) bool {
	return s.SendDetailed(ctx, sub, recipients).Success
}

// SendDetailed is Send with the full outcome. An empty recipient list is a
// no-op reported as unsuccessful with status "skipped".
func (s *Service) SendDetailed(ctx context.Context, sub *models.SubmissionRecord, recipients []string) *SendReport {
	return s.send(ctx, sub, recipients, !sub.IsTest())
}

// Test sends a synthetic submission to address. It writes no audit rows and
// raises no alerts.
func (s *Service) Test(ctx context.Context, address string) TestResult {
	sub := models.NewTestSubmission(uuid.New().String(), s.now())
	report := s.send(ctx, sub, []string{address}, false)

	switch {
	case report.Success:
		return TestResult{Success: true, Message: fmt.Sprintf("Test notification sent to %s", address)}
	case report.Status == models.DispatchStatusUnconfigured:
		return TestResult{Message: "Notification service is not configured"}
	case len(report.Result.Outcomes) == 1:
		o := report.Result.Outcomes[0]
		return TestResult{Message: fmt.Sprintf("Test notification to %s failed: %s %s", address, o.ErrorCode, o.ErrorDetail)}
	default:
		return TestResult{Message: fmt.Sprintf("Test notification to %s failed: %v", address, report.Err)}
	}
}

func (s *Service) send(ctx context.Context, sub *models.SubmissionRecord, recipients []string, sideEffects bool) *SendReport {
	started := s.now()

	cfg, ok := s.snapshot()
	if !ok {
		err := errors.NewNotConfiguredError()
		s.logger.Warn(err.Message, map[string]interface{}{"code": err.Code})
		return s.finish(ctx, &SendReport{Status: models.DispatchStatusUnconfigured, Result: emptyResult(), Err: err}, started)
	}

	if len(recipients) == 0 {
		s.logger.Warn("no recipients to notify", map[string]interface{}{"submissionId": submissionID(sub)})
		return s.finish(ctx, &SendReport{Status: models.DispatchStatusSkipped, Result: emptyResult()}, started)
	}

	content, err := s.build(sub)
	if err != nil {
		invalid := errors.NewInvalidInputError(err.Error())
		s.logger.Error("notification content could not be built", map[string]interface{}{
			"submissionId": submissionID(sub),
			"error":        err.Error(),
		})
		return s.finish(ctx, &SendReport{Status: models.DispatchStatusInvalidInput, Result: emptyResult(), Err: invalid}, started)
	}

	result := s.dispatcher.Dispatch(ctx, *content, recipients, cfg)
	report := &SendReport{Success: result.Success(), Status: result.Status(), Result: result}
	if !report.Success {
		report.Err = errors.NewNoRecipientDeliveredError(result.Attempted)
	}

	s.logger.Info("notification dispatched", map[string]interface{}{
		"submissionId": submissionID(sub),
		"status":       report.Status,
		"attempted":    result.Attempted,
		"delivered":    result.Delivered,
	})

	if sideEffects {
		s.afterDispatch(ctx, sub, result, started)
	}
	return s.finish(ctx, report, started)
}

// build shields the facade from a panicking template implementation.
func (s *Service) build(sub *models.SubmissionRecord) (msg *models.BuiltMessage, err error) {
	if sub == nil {
		return nil, fmt.Errorf("submission is required")
	}
	defer func() {
		if p := recover(); p != nil {
			msg, err = nil, fmt.Errorf("template builder panicked: %v", p)
		}
	}()
	return s.builder.Build(sub)
}

func (s *Service) afterDispatch(ctx context.Context, sub *models.SubmissionRecord, result models.DispatchResult, at time.Time) {
	if s.audit != nil {
		if err := s.audit.Record(ctx, sub.ID, result, at); err != nil {
			s.logSideEffectFailure("failed to record delivery outcomes", sub.ID, err)
		}
	}

	if s.alerts != nil && result.Attempted > 0 && result.Delivered == 0 {
		if err := s.alerts.TotalFailure(ctx, sub, result); err != nil {
			s.logSideEffectFailure("failed to publish total-failure alert", sub.ID, err)
		}
	}
}

func (s *Service) logSideEffectFailure(msg, submissionID string, err error) {
	stdErr := errors.Normalize(err)
	s.logger.Error(msg, map[string]interface{}{
		"submissionId": submissionID,
		"code":         stdErr.Code,
		"category":     errors.GetErrorCategory(stdErr.Code),
		"error":        err.Error(),
	})
}

func (s *Service) finish(ctx context.Context, report *SendReport, started time.Time) *SendReport {
	s.obs.RecordDispatch(ctx, report.Status, report.Result.Attempted, report.Result.Delivered)
	s.obs.RecordDispatchDuration(ctx, s.now().Sub(started), report.Status)
	return report
}

func emptyResult() models.DispatchResult {
	return models.DispatchResult{Outcomes: []models.RecipientOutcome{}}
}

func submissionID(sub *models.SubmissionRecord) string {
	if sub == nil {
		return ""
	}
	return sub.ID
}
