// Package store persists deployment records between runs. A record remembers
// which topology revision was last applied and which resources it owns, which
// is what makes repeated setup calls cheap no-ops and teardown precise.
//
// The backing store is a single SQLite file next to the operator's topology,
// accessed through the pure-Go driver so the binary stays cgo-free.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no record exists for a deployment.
var ErrNotFound = errors.New("deployment record not found")

// Resource kinds tracked in a deployment record.
const (
	KindNetwork = "network"
	KindNode    = "node"
)

// Resource is one runtime resource owned by a deployment.
type Resource struct {
	Kind string
	Name string
}

// DeploymentRecord is the persisted state of one deployment.
type DeploymentRecord struct {
	Name         string
	RunID        string
	TopologyHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Resources    []Resource
}

const schema = `
CREATE TABLE IF NOT EXISTS deployments (
	name          TEXT PRIMARY KEY,
	run_id        TEXT NOT NULL,
	topology_hash TEXT NOT NULL,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS resources (
	deployment TEXT NOT NULL,
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL,
	PRIMARY KEY (deployment, kind, name),
	FOREIGN KEY (deployment) REFERENCES deployments(name) ON DELETE CASCADE
);
`

// Store reads and writes deployment records.
type Store struct {
	db *sql.DB
}

// Open opens (and if necessary initializes) the state database at path.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database %q: %w", path, err)
	}
	// The driver opens lazily; concurrent writers would fight over the file
	// lock anyway, so a single connection keeps transactions serialized.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize state database %q: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure state database %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get loads the record for a deployment, or ErrNotFound.
func (s *Store) Get(ctx context.Context, name string) (*DeploymentRecord, error) {
	rec := &DeploymentRecord{Name: name}
	var created, updated int64
	err := s.db.QueryRowContext(ctx,
		"SELECT run_id, topology_hash, created_at, updated_at FROM deployments WHERE name = ?",
		name,
	).Scan(&rec.RunID, &rec.TopologyHash, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("deployment %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load deployment %q: %w", name, err)
	}
	rec.CreatedAt = time.Unix(created, 0).UTC()
	rec.UpdatedAt = time.Unix(updated, 0).UTC()

	rows, err := s.db.QueryContext(ctx,
		"SELECT kind, name FROM resources WHERE deployment = ? ORDER BY kind, name", name)
	if err != nil {
		return nil, fmt.Errorf("failed to load resources for %q: %w", name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var r Resource
		if err := rows.Scan(&r.Kind, &r.Name); err != nil {
			return nil, fmt.Errorf("failed to scan resource row for %q: %w", name, err)
		}
		rec.Resources = append(rec.Resources, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load resources for %q: %w", name, err)
	}
	return rec, nil
}

// Save upserts the record and replaces its resource list atomically.
func (s *Store) Save(ctx context.Context, rec *DeploymentRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin state transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO deployments (name, run_id, topology_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			run_id = excluded.run_id,
			topology_hash = excluded.topology_hash,
			updated_at = excluded.updated_at`,
		rec.Name, rec.RunID, rec.TopologyHash, rec.CreatedAt.Unix(), rec.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save deployment %q: %w", rec.Name, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM resources WHERE deployment = ?", rec.Name); err != nil {
		return fmt.Errorf("failed to replace resources for %q: %w", rec.Name, err)
	}
	for _, r := range rec.Resources {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO resources (deployment, kind, name) VALUES (?, ?, ?)",
			rec.Name, r.Kind, r.Name); err != nil {
			return fmt.Errorf("failed to save resource %s/%s for %q: %w", r.Kind, r.Name, rec.Name, err)
		}
	}
	return tx.Commit()
}

// Delete removes a deployment record and its resources. Deleting an absent
// record is a no-op.
func (s *Store) Delete(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin state transaction: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM resources WHERE deployment = ?", name); err != nil {
		return fmt.Errorf("failed to delete resources for %q: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM deployments WHERE name = ?", name); err != nil {
		return fmt.Errorf("failed to delete deployment %q: %w", name, err)
	}
	return tx.Commit()
}
