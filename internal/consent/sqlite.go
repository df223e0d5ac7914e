package consent

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/peptide-safety-engine/internal/domain"
)

// SQLiteStore implements Store on an embedded SQLite database. It is the
// store of the single-binary MCP server.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens the database at dbPath, creating the file and schema
// if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets readers proceed while a confirmation is being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS consent_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		patient_id TEXT NOT NULL,
		protocol_id TEXT NOT NULL,
		confirmed_elements TEXT NOT NULL DEFAULT '[]',
		confirmed_by TEXT NOT NULL,
		revoked INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(patient_id, protocol_id)
	);

	CREATE INDEX IF NOT EXISTS idx_consent_patient_id ON consent_records(patient_id);
	`

	_, err := db.Exec(schema)
	return err
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*domain.ConsentRecord, error) {
	record := &domain.ConsentRecord{}
	var elements []byte

	err := s.Scan(
		&record.ID, &record.PatientID, &record.ProtocolID, &elements,
		&record.ConfirmedBy, &record.Revoked, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(elements, &record.ConfirmedElements); err != nil {
		return nil, fmt.Errorf("failed to decode confirmed elements: %w", err)
	}
	return record, nil
}

// Record stores or replaces the consent confirmation of a patient and protocol.
func (s *SQLiteStore) Record(ctx context.Context, record *domain.ConsentRecord) error {
	if err := validateRecord(record); err != nil {
		return err
	}
	elements, err := json.Marshal(nonNil(record.ConfirmedElements))
	if err != nil {
		return fmt.Errorf("failed to encode confirmed elements: %w", err)
	}

	now := time.Now().UTC()

	var existingID int64
	var createdAt time.Time
	err = s.db.QueryRowContext(ctx,
		"SELECT id, created_at FROM consent_records WHERE patient_id = ? AND protocol_id = ?",
		record.PatientID, record.ProtocolID,
	).Scan(&existingID, &createdAt)

	if err == nil {
		_, err = s.db.ExecContext(ctx, `
			UPDATE consent_records SET
				confirmed_elements = ?,
				confirmed_by = ?,
				revoked = 0,
				updated_at = ?
			WHERE id = ?
		`, string(elements), record.ConfirmedBy, now, existingID)
		if err != nil {
			return fmt.Errorf("failed to update consent: %w", err)
		}
		record.ID = existingID
		record.Revoked = false
		record.CreatedAt = createdAt
		record.UpdatedAt = now
		return nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO consent_records (
			patient_id, protocol_id, confirmed_elements, confirmed_by,
			revoked, created_at, updated_at
		) VALUES (?, ?, ?, ?, 0, ?, ?)
	`,
		record.PatientID,
		record.ProtocolID,
		string(elements),
		record.ConfirmedBy,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	record.ID = id
	record.Revoked = false
	record.CreatedAt = now
	record.UpdatedAt = now

	return nil
}

// Get returns the consent record of a patient and protocol, or nil.
func (s *SQLiteStore) Get(ctx context.Context, patientID, protocolID string) (*domain.ConsentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, patient_id, protocol_id, confirmed_elements, confirmed_by,
			revoked, created_at, updated_at
		FROM consent_records
		WHERE patient_id = ? AND protocol_id = ?
		LIMIT 1
	`, patientID, protocolID)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return record, nil
}

// Revoke marks the consent of a patient and protocol as withdrawn.
func (s *SQLiteStore) Revoke(ctx context.Context, patientID, protocolID string) error {
	if err := validateKey(patientID, protocolID); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE consent_records SET revoked = 1, updated_at = ? WHERE patient_id = ? AND protocol_id = ?",
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

// ConsentStatus reports the consent recorded for a patient and protocol. A
// missing or revoked record is not-obtained; a read failure is an error.
func (s *SQLiteStore) ConsentStatus(ctx context.Context, patientID, protocolID string) (domain.ConsentStatus, error) {
	record, err := s.Get(ctx, patientID, protocolID)
	if err != nil {
		return domain.ConsentStatus{}, fmt.Errorf("%w: %w", domain.ErrConsentUnavailable, err)
	}
	return record.Status(), nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func nonNil(elements []string) []string {
	if elements == nil {
		return []string{}
	}
	return elements
}
