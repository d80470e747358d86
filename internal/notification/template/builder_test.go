package template

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intake-notifications/internal/models"
)

func TestDefaultBuilder_Build(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	b := NewDefaultBuilder(jakarta)

	sub := &models.SubmissionRecord{
		ID:             "S-100",
		ProjectName:    "Portal <Data> & Statistik",
		Department:     "Dinas Kominfo",
		OfficerName:    "Budi",
		ApplicantEmail: "budi@kominfo.go.id",
		Purpose:        "Publikasi data",
		Status:         "pending",
		CreatedAt:      time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC),
	}

	msg, err := b.Build(sub)
	require.NoError(t, err)

	assert.Equal(t, "Pengajuan Proyek Baru: Portal <Data> & Statistik", msg.Subject)
	assert.Contains(t, msg.HTML, "Portal &lt;Data&gt; &amp; Statistik")
	assert.Contains(t, msg.Text, "Portal <Data> & Statistik")
	assert.Contains(t, msg.Text, "URL Situs: "+models.NotSpecified)
	assert.Contains(t, msg.Text, "Diajukan: 01 Mar 2026 09:00 WIB")
	assert.NotContains(t, msg.HTML, "{{")
	assert.NotContains(t, msg.Text, "{{")

	assert.Equal(t, "S-100", msg.Fields[FieldSubmissionID])
	assert.Equal(t, models.NotSpecified, msg.Fields[FieldNotes])
	assert.Equal(t, models.NotSpecified, msg.Fields[FieldCollectionFreq])
}

func TestDefaultBuilder_EmptySubmissionUsesFallbacks(t *testing.T) {
	b := NewDefaultBuilder(nil)
	b.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	msg, err := b.Build(&models.SubmissionRecord{})
	require.NoError(t, err)

	for _, key := range []string{FieldSubmissionID, FieldProjectName, FieldDepartment, FieldOfficerName, FieldApplicantEmail, FieldPurpose} {
		assert.Equal(t, models.NotSpecified, msg.Fields[key], key)
	}
	assert.Equal(t, models.SubmissionStatusPending, msg.Fields[FieldStatus])
	assert.Equal(t, "01 Jan 2026 00:00 UTC", msg.Fields[FieldSubmittedAt])
}

func TestDefaultBuilder_TestSubmissionSubject(t *testing.T) {
	msg, err := NewDefaultBuilder(nil).Build(models.NewTestSubmission("x", time.Now()))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg.Subject, "[TEST] "))
}

func TestDefaultBuilder_NilSubmission(t *testing.T) {
	_, err := NewDefaultBuilder(nil).Build(nil)
	assert.Error(t, err)
}

func TestRenderTemplate_DropsUnknownPlaceholders(t *testing.T) {
	out := renderTemplate("Halo {{name}}, {{missing}}selesai", map[string]string{"name": "Ani"}, false)
	assert.Equal(t, "Halo Ani, selesai", out)
}
