// Package diagnostics exposes read-mostly checks over the notification
// pipeline. None of them persist a submission or change the facade's state.
package diagnostics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"intake-notifications/internal/common/logger"
	"intake-notifications/internal/models"
	"intake-notifications/internal/notification/resolver"
	"intake-notifications/internal/notification/service"
	"intake-notifications/internal/notification/template"
)

// Full-flow step names, in execution order.
const (
	StepConfigured        = "configured"
	StepAdminEmailsLoaded = "admin_emails_loaded"
	StepContentBuilt      = "content_built"
	StepTestDispatched    = "test_dispatched"
)

var flowSteps = []string{StepConfigured, StepAdminEmailsLoaded, StepContentBuilt, StepTestDispatched}

type EnvInspector interface {
	Inspect() resolver.EnvSnapshot
}

type Facade interface {
	IsConfigured() bool
	Test(ctx context.Context, address string) service.TestResult
}

type AdminDirectory interface {
	AdminEmails(ctx context.Context) ([]string, error)
}

type EnvironmentReport struct {
	Configured    bool              `json:"configured"`
	RequiredFound int               `json:"requiredFound"`
	Missing       []string          `json:"missing"`
	Sources       map[string]string `json:"sources"`
}

type ReadinessReport struct {
	Ready           bool   `json:"ready"`
	AdminEmailCount int    `json:"adminEmailCount"`
	Message         string `json:"message"`
}

type FullFlowReport struct {
	Success bool            `json:"success"`
	Steps   map[string]bool `json:"steps"`
	Message string          `json:"message"`
}

// Harness runs diagnostics against the live collaborators.
type Harness struct {
	env       EnvInspector
	facade    Facade
	directory AdminDirectory
	builder   template.Builder
	logger    logger.Logger
	now       func() time.Time
}

func NewHarness(env EnvInspector, facade Facade, directory AdminDirectory, builder template.Builder, log logger.Logger) *Harness {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Harness{
		env:       env,
		facade:    facade,
		directory: directory,
		builder:   builder,
		logger:    log.WithFields(map[string]interface{}{"component": "notification-diagnostics"}),
		now:       time.Now,
	}
}

// CheckEnvironment reports which relay variables the local environment supplies.
func (h *Harness) CheckEnvironment() EnvironmentReport {
	report := EnvironmentReport{Missing: []string{}, Sources: map[string]string{}}
	if h.env == nil {
		report.Missing = append(report.Missing, resolver.RequiredVars...)
		return report
	}

	snap := h.env.Inspect()
	for name, mechanism := range snap.Sources {
		report.Sources[name] = mechanism
	}
	for _, name := range resolver.RequiredVars {
		if snap.Found(name) {
			report.RequiredFound++
		} else {
			report.Missing = append(report.Missing, name)
		}
	}
	report.Configured = report.RequiredFound == len(resolver.RequiredVars)
	return report
}

// CheckReadiness reports whether a submission created now would notify anyone.
func (h *Harness) CheckReadiness(ctx context.Context) ReadinessReport {
	if h.facade == nil || !h.facade.IsConfigured() {
		return ReadinessReport{Message: "Notification service is not configured"}
	}

	emails, err := h.adminEmails(ctx)
	if err != nil {
		return ReadinessReport{Message: fmt.Sprintf("Admin directory unavailable: %v", err)}
	}
	if len(emails) == 0 {
		return ReadinessReport{Message: "No administrator email addresses are registered"}
	}
	return ReadinessReport{
		Ready:           true,
		AdminEmailCount: len(emails),
		Message:         fmt.Sprintf("Ready to notify %d administrator(s)", len(emails)),
	}
}

// RunFullFlow walks the pipeline end to end with a synthetic submission and
// sends one test message. When address is empty the first admin email is used.
func (h *Harness) RunFullFlow(ctx context.Context, address string) FullFlowReport {
	report := FullFlowReport{Steps: make(map[string]bool, len(flowSteps))}
	for _, s := range flowSteps {
		report.Steps[s] = false
	}

	if h.facade == nil || !h.facade.IsConfigured() {
		report.Message = "Notification service is not configured"
		return report
	}
	report.Steps[StepConfigured] = true

	emails, err := h.adminEmails(ctx)
	if err != nil {
		h.logger.Warn("full flow could not load admin emails", map[string]interface{}{"error": err.Error()})
	}
	report.Steps[StepAdminEmailsLoaded] = err == nil && len(emails) > 0

	address = strings.TrimSpace(address)
	if address == "" {
		if len(emails) == 0 {
			report.Message = "No test address given and no administrator email addresses are registered"
			return report
		}
		address = emails[0]
	}

	if _, err := h.builder.Build(models.NewTestSubmission(uuid.New().String(), h.now())); err != nil {
		report.Message = fmt.Sprintf("Notification content could not be built: %v", err)
		return report
	}
	report.Steps[StepContentBuilt] = true

	res := h.facade.Test(ctx, address)
	report.Steps[StepTestDispatched] = res.Success
	report.Success = res.Success
	report.Message = res.Message

	h.logger.Info("full notification flow finished", map[string]interface{}{
		"success": report.Success,
		"steps":   report.Steps,
	})
	return report
}

func (h *Harness) adminEmails(ctx context.Context) ([]string, error) {
	if h.directory == nil {
		return nil, nil
	}
	return h.directory.AdminEmails(ctx)
}
