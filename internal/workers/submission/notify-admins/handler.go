// Package notifyadmins completes submission-created jobs by notifying the
// administrators. A notification problem never fails the job: the process
// that persisted the submission always moves on, carrying the outcome.
package notifyadmins

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"intake-notifications/internal/common/errors"
	"intake-notifications/internal/common/logger"
	"intake-notifications/internal/common/metrics"
	"intake-notifications/internal/common/validation"
	"intake-notifications/internal/models"
	"intake-notifications/internal/notification/service"
)

const TaskType = "notify-submission-created"

// completeTimeout bounds the complete-job call. It has its own context so a
// dispatch that ran into its deadline still completes the job.
const completeTimeout = 10 * time.Second

// Notifier sends one submission to a recipient list.
type Notifier interface {
	SendDetailed(ctx context.Context, sub *models.SubmissionRecord, recipients []string) *service.SendReport
}

// RecipientSource supplies the default recipients.
type RecipientSource interface {
	AdminEmails(ctx context.Context) ([]string, error)
}

type Handler struct {
	config    *Config
	notifier  Notifier
	directory RecipientSource
	logger    logger.Logger
	now       func() time.Time
}

func NewHandler(cfg *Config, notifier Notifier, directory RecipientSource, log logger.Logger) (*Handler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	return &Handler{
		config:    cfg,
		notifier:  notifier,
		directory: directory,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:       time.Now,
	}, nil
}

// Handle always completes the job. The returned error only reports that the
// completion itself could not be sent.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	var output *Output
	input, err := h.parseInput(job)
	if err != nil {
		h.logger.Warn("invalid job variables", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		output = h.invalidOutput(err)
	} else {
		output = h.Execute(ctx, input)
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType, output.Status).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())

	completeCtx, cancelComplete := context.WithTimeout(context.Background(), completeTimeout)
	defer cancelComplete()
	return h.completeJob(completeCtx, client, job, output)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("parse job variables: %v", err))
	}
	if v, ok := variables["recipients"]; ok && v == nil {
		delete(variables, "recipients")
	}

	result := validation.ValidateInput(variables, GetInputSchema())
	if !result.Valid {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("validation errors: %v", result.GetErrorMessages()))
	}

	raw, err := json.Marshal(map[string]interface{}{
		"submission": variables["submission"],
		"recipients": variables["recipients"],
	})
	if err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}
	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("decode submission: %v", err))
	}
	return &input, nil
}

// Execute resolves recipients when none were given and sends the notification.
func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	recipients := input.Recipients
	if recipients == nil && h.directory != nil {
		emails, err := h.directory.AdminEmails(ctx)
		if err != nil {
			h.logger.Error("admin recipients unavailable", map[string]interface{}{
				"submissionId": input.Submission.ID,
				"error":        err.Error(),
			})
			return &Output{
				Status:     models.DispatchStatusSkipped,
				Outcomes:   []models.RecipientOutcome{},
				NotifiedAt: h.timestamp(),
				ErrorCode:  errors.CodeOf(err),
			}
		}
		recipients = emails
	}

	report := h.notifier.SendDetailed(ctx, input.Submission, recipients)
	out := &Output{
		Notified:   report.Success,
		Status:     report.Status,
		Attempted:  report.Result.Attempted,
		Delivered:  report.Result.Delivered,
		Outcomes:   report.Result.Outcomes,
		NotifiedAt: h.timestamp(),
	}
	if out.Outcomes == nil {
		out.Outcomes = []models.RecipientOutcome{}
	}
	if report.Err != nil {
		out.ErrorCode = errors.CodeOf(report.Err)
	}
	return out
}

func (h *Handler) invalidOutput(err error) *Output {
	return &Output{
		Status:     models.DispatchStatusInvalidInput,
		Outcomes:   []models.RecipientOutcome{},
		NotifiedAt: h.timestamp(),
		ErrorCode:  errors.CodeOf(err),
	}
}

func (h *Handler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return fmt.Errorf("build complete command: %w", err)
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return fmt.Errorf("complete job %d: %w", job.GetKey(), err)
	}

	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":    job.GetKey(),
		"status":    output.Status,
		"attempted": output.Attempted,
		"delivered": output.Delivered,
	})
	return nil
}
