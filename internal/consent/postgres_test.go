package consent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peptide-safety-engine/internal/domain"
)

var recordColumns = []string{
	"id", "patient_id", "protocol_id", "confirmed_elements", "confirmed_by",
	"revoked", "created_at", "updated_at",
}

func setupMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return store, mock
}

func TestNewPostgresStore_RequiresDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_Record(t *testing.T) {
	store, mock := setupMockStore(t)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO consent_records").
		WithArgs("patient-1", "protocol-1",
			`["Informed consent for peptide therapy","Risk acknowledgment signed","Treatment alternatives discussed","Patient questions answered"]`,
			"nurse-7", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(42, created))

	record := fullConsent("patient-1", "protocol-1")
	require.NoError(t, store.Record(context.Background(), record))

	assert.Equal(t, int64(42), record.ID)
	assert.Equal(t, created, record.CreatedAt)
	assert.False(t, record.UpdatedAt.IsZero())
}

func TestPostgresStore_RecordRejectsInvalid(t *testing.T) {
	store, _ := setupMockStore(t)

	record := fullConsent("patient-1", "protocol-1")
	record.ConfirmedBy = ""
	err := store.Record(context.Background(), record)
	assert.True(t, domain.IsValidationError(err))
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := setupMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM consent_records").
		WithArgs("patient-1", "protocol-1").
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(7, "patient-1", "protocol-1", []byte(`["Informed consent for peptide therapy"]`), "nurse-7", false, now, now))

	got, err := store.Get(context.Background(), "patient-1", "protocol-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, []string{domain.ConsentInformed}, got.ConfirmedElements)
}

func TestPostgresStore_GetMissing(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM consent_records").
		WithArgs("patient-1", "protocol-1").
		WillReturnRows(sqlmock.NewRows(recordColumns))

	got, err := store.Get(context.Background(), "patient-1", "protocol-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPostgresStore_ConsentStatus(t *testing.T) {
	t.Run("obtained", func(t *testing.T) {
		store, mock := setupMockStore(t)
		now := time.Now().UTC()

		mock.ExpectQuery("SELECT (.+) FROM consent_records").
			WithArgs("patient-1", "protocol-1").
			WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(
				1, "patient-1", "protocol-1",
				[]byte(`["Informed consent for peptide therapy","Risk acknowledgment signed","Treatment alternatives discussed","Patient questions answered"]`),
				"nurse-7", false, now, now))

		status, err := store.ConsentStatus(context.Background(), "patient-1", "protocol-1")
		require.NoError(t, err)
		assert.True(t, status.Obtained)
	})

	t.Run("revoked", func(t *testing.T) {
		store, mock := setupMockStore(t)
		now := time.Now().UTC()

		mock.ExpectQuery("SELECT (.+) FROM consent_records").
			WithArgs("patient-1", "protocol-1").
			WillReturnRows(sqlmock.NewRows(recordColumns).AddRow(
				1, "patient-1", "protocol-1",
				[]byte(`["Informed consent for peptide therapy","Risk acknowledgment signed","Treatment alternatives discussed","Patient questions answered"]`),
				"nurse-7", true, now, now))

		status, err := store.ConsentStatus(context.Background(), "patient-1", "protocol-1")
		require.NoError(t, err)
		assert.False(t, status.Obtained)
	})

	t.Run("database failure is an error", func(t *testing.T) {
		store, mock := setupMockStore(t)

		mock.ExpectQuery("SELECT (.+) FROM consent_records").
			WithArgs("patient-1", "protocol-1").
			WillReturnError(errors.New("connection reset by peer"))

		_, err := store.ConsentStatus(context.Background(), "patient-1", "protocol-1")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrConsentUnavailable))
	})
}

func TestPostgresStore_Revoke(t *testing.T) {
	store, mock := setupMockStore(t)

	mock.ExpectExec("UPDATE consent_records SET revoked = TRUE").
		WithArgs(sqlmock.AnyArg(), "patient-1", "protocol-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE consent_records SET revoked = TRUE").
		WithArgs(sqlmock.AnyArg(), "patient-2", "protocol-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Revoke(context.Background(), "patient-1", "protocol-1"))

	err := store.Revoke(context.Background(), "patient-2", "protocol-1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
