// internal/models/submission.go
package models

import (
	"strings"
	"time"
)

// NotSpecified is shown for any submission field the applicant left empty.
const NotSpecified = "Tidak dinyatakan"

// Submission statuses seen by the notification pipeline.
const (
	SubmissionStatusPending = "pending"
	SubmissionStatusTest    = "test"
)

// TestSubmissionPrefix marks synthetic submissions built by test tooling.
const TestSubmissionPrefix = "TEST-"

// SubmissionRecord is a project-intake submission owned by the external data
// service. The notification pipeline only reads it.
type SubmissionRecord struct {
	ID                      string    `json:"id"`
	ProjectName             string    `json:"projectName"`
	Department              string    `json:"department"`
	OfficerName             string    `json:"officerName"`
	ApplicantEmail          string    `json:"applicantEmail"`
	Purpose                 string    `json:"purpose"`
	WebsiteURL              string    `json:"websiteUrl"`
	DataCollectionFrequency string    `json:"dataCollectionFrequency"`
	Notes                   string    `json:"notes,omitempty"`
	Status                  string    `json:"status"`
	CreatedAt               time.Time `json:"createdAt"`
}

// IsTest reports whether the record was generated by test tooling.
func (s *SubmissionRecord) IsTest() bool {
	return s != nil && strings.HasPrefix(s.ID, TestSubmissionPrefix)
}

// OrNotSpecified returns the trimmed value or the NotSpecified fallback.
func OrNotSpecified(v string) string {
	if v = strings.TrimSpace(v); v == "" {
		return NotSpecified
	}
	return v
}

// NewTestSubmission builds the synthetic record used by test sends. It is
// never persisted.
func NewTestSubmission(id string, now time.Time) *SubmissionRecord {
	return &SubmissionRecord{
		ID:                      TestSubmissionPrefix + id,
		ProjectName:             "[UJI] Notifikasi Sistem Intake Proyek",
		Department:              "Pengujian",
		OfficerName:             "Operator Sistem",
		ApplicantEmail:          "",
		Purpose:                 "Memastikan pengiriman notifikasi admin berfungsi",
		WebsiteURL:              "",
		DataCollectionFrequency: "",
		Status:                  SubmissionStatusTest,
		CreatedAt:               now.UTC(),
	}
}
