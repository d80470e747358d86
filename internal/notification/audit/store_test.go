package audit

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "intake-notifications/internal/common/errors"
	"intake-notifications/internal/models"
)

func sampleResult() models.DispatchResult {
	return models.DispatchResult{
		Attempted: 2,
		Delivered: 1,
		Outcomes: []models.RecipientOutcome{
			{Recipient: "a@test.com", Delivered: true},
			{Recipient: "b@test.com", ErrorCode: "TRANSPORT_REJECTED", ErrorDetail: "relay rejected delivery (status 400): bad"},
		},
	}
}

func TestStore_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO notification_deliveries"))
	prep.ExpectExec().
		WithArgs("S-1", "a@test.com", true, sql.NullString{}, sql.NullString{}, at).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().
		WithArgs("S-1", "b@test.com", false,
			sql.NullString{String: "TRANSPORT_REJECTED", Valid: true},
			sql.NullString{String: "relay rejected delivery (status 400): bad", Valid: true},
			at).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, NewStore(db).Record(context.Background(), "S-1", sampleResult(), at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RecordRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO notification_deliveries"))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = NewStore(db).Record(context.Background(), "S-1", sampleResult(), time.Now())
	require.Error(t, err)
	assert.Equal(t, string(commonerrors.ErrCodeAuditWriteFailed), commonerrors.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RecordNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, NewStore(db).Record(context.Background(), "S-1", models.DispatchResult{}, time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS notification_deliveries")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewStore(db).EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ForSubmission(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"submission_id", "recipient", "delivered", "error_code", "error_detail", "attempted_at"}).
		AddRow("S-1", "a@test.com", true, "", "", at).
		AddRow("S-1", "b@test.com", false, "TRANSPORT_REJECTED", "bad", at)
	mock.ExpectQuery(regexp.QuoteMeta("FROM notification_deliveries")).WithArgs("S-1").WillReturnRows(rows)

	entries, err := NewStore(db).ForSubmission(context.Background(), "S-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Delivered)
	assert.Equal(t, "TRANSPORT_REJECTED", entries[1].ErrorCode)
	assert.Equal(t, at, entries[1].AttemptedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
