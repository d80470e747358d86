package notifyadmins

import "intake-notifications/internal/models"

type Input struct {
	Submission *models.SubmissionRecord `json:"submission"`
	// Recipients is nil when the process did not supply any; the admin
	// directory is consulted in that case.
	Recipients []string `json:"recipients,omitempty"`
}

// Output is written back as process variables.
type Output struct {
	Notified   bool                      `json:"notified"`
	Status     string                    `json:"status"`
	Attempted  int                       `json:"attempted"`
	Delivered  int                       `json:"delivered"`
	Outcomes   []models.RecipientOutcome `json:"outcomes"`
	NotifiedAt string                    `json:"notifiedAt"`
	ErrorCode  string                    `json:"errorCode,omitempty"`
}
