package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/peptide-safety-engine/internal/domain"
)

// PostgresSource reads and publishes catalog versions in PostgreSQL. The
// tables are created by the catalog migration.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource wraps an open connection pool.
func NewPostgresSource(pool *pgxpool.Pool) (*PostgresSource, error) {
	if pool == nil {
		return nil, errors.New("connection pool is required")
	}
	return &PostgresSource{pool: pool}, nil
}

// Load builds a catalog from the most recently published version.
func (s *PostgresSource) Load(ctx context.Context) (*Catalog, error) {
	var version string
	err := s.pool.QueryRow(ctx,
		`SELECT version FROM catalog_versions ORDER BY published_at DESC, version DESC LIMIT 1`,
	).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("no published catalog: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying catalog version: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT document FROM compound_catalog WHERE version = $1 ORDER BY compound_id`, version)
	if err != nil {
		return nil, fmt.Errorf("querying compounds: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CompoundEntry, error) {
		var raw []byte
		var entry domain.CompoundEntry
		if err := row.Scan(&raw); err != nil {
			return entry, err
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return entry, fmt.Errorf("decoding compound document: %w", err)
		}
		return entry, nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading compounds: %w", err)
	}

	rows, err = s.pool.Query(ctx,
		`SELECT class_name, member FROM drug_class_members WHERE version = $1 ORDER BY class_name, position`, version)
	if err != nil {
		return nil, fmt.Errorf("querying drug classes: %w", err)
	}
	defer rows.Close()

	classes := make(map[string][]string)
	for rows.Next() {
		var class, member string
		if err := rows.Scan(&class, &member); err != nil {
			return nil, fmt.Errorf("scanning drug class: %w", err)
		}
		classes[class] = append(classes[class], member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading drug classes: %w", err)
	}

	return NewCatalog(version, entries, classes)
}

// Loader adapts Load to the Loader signature.
func (s *PostgresSource) Loader() Loader {
	return s.Load
}

// Publish stores c as a new catalog version in a single transaction.
func (s *PostgresSource) Publish(ctx context.Context, c *Catalog) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO catalog_versions (version, published_at) VALUES ($1, NOW())
		 ON CONFLICT (version) DO UPDATE SET published_at = EXCLUDED.published_at`,
		c.Version()); err != nil {
		return fmt.Errorf("publishing version: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM compound_catalog WHERE version = $1`, c.Version()); err != nil {
		return fmt.Errorf("clearing compounds: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM drug_class_members WHERE version = $1`, c.Version()); err != nil {
		return fmt.Errorf("clearing drug classes: %w", err)
	}

	batch := &pgx.Batch{}
	for _, entry := range c.Entries() {
		doc, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encoding compound %s: %w", entry.ID, err)
		}
		batch.Queue(`INSERT INTO compound_catalog (version, compound_id, document) VALUES ($1, $2, $3)`,
			c.Version(), entry.ID, doc)
	}
	for class, members := range c.DrugClasses() {
		for i, member := range members {
			batch.Queue(`INSERT INTO drug_class_members (version, class_name, member, position) VALUES ($1, $2, $3, $4)`,
				c.Version(), class, member, i)
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("writing catalog rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing catalog: %w", err)
	}
	return nil
}
