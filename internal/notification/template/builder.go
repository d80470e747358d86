// Package template renders administrator notification content for a submission.
package template

import (
	"fmt"
	"html"
	"strings"
	"time"

	"intake-notifications/internal/models"
)

// Builder turns a submission into subject, bodies and flat template fields.
type Builder interface {
	Build(sub *models.SubmissionRecord) (*models.BuiltMessage, error)
}

// Field names exposed to relay templates.
const (
	FieldSubmissionID   = "submission_id"
	FieldProjectName    = "project_name"
	FieldDepartment     = "department"
	FieldOfficerName    = "officer_name"
	FieldApplicantEmail = "applicant_email"
	FieldPurpose        = "purpose"
	FieldWebsiteURL     = "website_url"
	FieldCollectionFreq = "data_collection_frequency"
	FieldNotes          = "notes"
	FieldStatus         = "status"
	FieldSubmittedAt    = "submitted_at"
)

const subjectTemplate = "Pengajuan Proyek Baru: {{project_name}}"

const textTemplate = `Pengajuan proyek baru telah diterima.

ID Pengajuan: {{submission_id}}
Nama Proyek: {{project_name}}
Instansi: {{department}}
Nama Petugas: {{officer_name}}
Email Pemohon: {{applicant_email}}
Tujuan: {{purpose}}
URL Situs: {{website_url}}
Frekuensi Pengumpulan Data: {{data_collection_frequency}}
Catatan: {{notes}}
Status: {{status}}
Diajukan: {{submitted_at}}
`

const htmlTemplate = `<h2>Pengajuan proyek baru telah diterima</h2>
<table>
<tr><td>ID Pengajuan</td><td>{{submission_id}}</td></tr>
<tr><td>Nama Proyek</td><td>{{project_name}}</td></tr>
<tr><td>Instansi</td><td>{{department}}</td></tr>
<tr><td>Nama Petugas</td><td>{{officer_name}}</td></tr>
<tr><td>Email Pemohon</td><td>{{applicant_email}}</td></tr>
<tr><td>Tujuan</td><td>{{purpose}}</td></tr>
<tr><td>URL Situs</td><td>{{website_url}}</td></tr>
<tr><td>Frekuensi Pengumpulan Data</td><td>{{data_collection_frequency}}</td></tr>
<tr><td>Catatan</td><td>{{notes}}</td></tr>
<tr><td>Status</td><td>{{status}}</td></tr>
<tr><td>Diajukan</td><td>{{submitted_at}}</td></tr>
</table>`

// DefaultBuilder renders the built-in Indonesian templates.
type DefaultBuilder struct {
	location *time.Location
	now      func() time.Time
}

// NewDefaultBuilder formats timestamps in loc (UTC when nil).
func NewDefaultBuilder(loc *time.Location) *DefaultBuilder {
	if loc == nil {
		loc = time.UTC
	}
	return &DefaultBuilder{location: loc, now: time.Now}
}

func (b *DefaultBuilder) Build(sub *models.SubmissionRecord) (*models.BuiltMessage, error) {
	if sub == nil {
		return nil, fmt.Errorf("submission is required")
	}

	fields := b.fields(sub)

	subject := renderTemplate(subjectTemplate, fields, false)
	if sub.IsTest() {
		subject = "[TEST] " + subject
	}

	return &models.BuiltMessage{
		Subject: subject,
		HTML:    renderTemplate(htmlTemplate, fields, true),
		Text:    renderTemplate(textTemplate, fields, false),
		Fields:  fields,
	}, nil
}

func (b *DefaultBuilder) fields(sub *models.SubmissionRecord) map[string]string {
	created := sub.CreatedAt
	if created.IsZero() {
		created = b.now()
	}

	status := sub.Status
	if strings.TrimSpace(status) == "" {
		status = models.SubmissionStatusPending
	}

	return map[string]string{
		FieldSubmissionID:   models.OrNotSpecified(sub.ID),
		FieldProjectName:    models.OrNotSpecified(sub.ProjectName),
		FieldDepartment:     models.OrNotSpecified(sub.Department),
		FieldOfficerName:    models.OrNotSpecified(sub.OfficerName),
		FieldApplicantEmail: models.OrNotSpecified(sub.ApplicantEmail),
		FieldPurpose:        models.OrNotSpecified(sub.Purpose),
		FieldWebsiteURL:     models.OrNotSpecified(sub.WebsiteURL),
		FieldCollectionFreq: models.OrNotSpecified(sub.DataCollectionFrequency),
		FieldNotes:          models.OrNotSpecified(sub.Notes),
		FieldStatus:         status,
		FieldSubmittedAt:    created.In(b.location).Format("02 Jan 2006 15:04 MST"),
	}
}

// renderTemplate replaces {{key}} placeholders and drops any left unmatched.
func renderTemplate(tmpl string, data map[string]string, escape bool) string {
	result := tmpl

	for k, v := range data {
		if escape {
			v = html.EscapeString(v)
		}
		result = strings.ReplaceAll(result, "{{"+k+"}}", v)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}
