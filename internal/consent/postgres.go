package consent

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/peptide-safety-engine/internal/domain"
)

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL consent store.
// It expects the consent_records table to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a PostgreSQL consent store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Record stores or replaces the consent confirmation of a patient and protocol.
func (s *PostgresStore) Record(ctx context.Context, record *domain.ConsentRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}
	elements, err := json.Marshal(nonNil(record.ConfirmedElements))
	if err != nil {
		return fmt.Errorf("failed to encode confirmed elements: %w", err)
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO consent_records (
			patient_id, protocol_id, confirmed_elements, confirmed_by,
			revoked, created_at, updated_at
		) VALUES ($1, $2, $3, $4, FALSE, $5, $6)
		ON CONFLICT (patient_id, protocol_id) DO UPDATE SET
			confirmed_elements = EXCLUDED.confirmed_elements,
			confirmed_by = EXCLUDED.confirmed_by,
			revoked = FALSE,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		record.PatientID,
		record.ProtocolID,
		string(elements),
		record.ConfirmedBy,
		now,
		now,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save consent: %w", err)
	}

	record.Revoked = false
	record.UpdatedAt = now
	return nil
}

// Get returns the consent record of a patient and protocol, or nil.
func (s *PostgresStore) Get(ctx context.Context, patientID, protocolID string) (*domain.ConsentRecord, error) {
	query := `
		SELECT id, patient_id, protocol_id, confirmed_elements, confirmed_by,
			revoked, created_at, updated_at
		FROM consent_records
		WHERE patient_id = $1 AND protocol_id = $2
		LIMIT 1
	`

	record, err := scanRecord(s.db.QueryRowContext(ctx, query, patientID, protocolID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get consent: %w", err)
	}
	return record, nil
}

// Revoke marks the consent of a patient and protocol as withdrawn.
func (s *PostgresStore) Revoke(ctx context.Context, patientID, protocolID string) error {
	if err := validateKey(patientID, protocolID); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE consent_records SET revoked = TRUE, updated_at = $1 WHERE patient_id = $2 AND protocol_id = $3",
		time.Now().UTC(), patientID, protocolID,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke consent: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("consent for patient %s and protocol %s: %w", patientID, protocolID, domain.ErrNotFound)
	}
	return nil
}

// ConsentStatus reports the consent recorded for a patient and protocol.
func (s *PostgresStore) ConsentStatus(ctx context.Context, patientID, protocolID string) (domain.ConsentStatus, error) {
	record, err := s.Get(ctx, patientID, protocolID)
	if err != nil {
		return domain.ConsentStatus{}, fmt.Errorf("%w: %w", domain.ErrConsentUnavailable, err)
	}
	return record.Status(), nil
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
