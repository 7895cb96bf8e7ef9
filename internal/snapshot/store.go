// Package snapshot persists a loaded collation into a local SQLite file so
// plots and reports can be re-run without touching the lab database. The
// store also serves the documents back through the repository interfaces.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/gmarchiori/wafertrack/internal/collation"
	"github.com/gmarchiori/wafertrack/internal/common"
	"github.com/gmarchiori/wafertrack/internal/entity"
)

const schema = `
CREATE TABLE IF NOT EXISTS components (
	id    TEXT PRIMARY KEY,
	name  TEXT NOT NULL,
	batch TEXT NOT NULL DEFAULT '',
	parent_id TEXT,
	doc   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS blueprints (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	doc  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_components_name   ON components(name);
CREATE INDEX IF NOT EXISTS idx_components_parent ON components(parent_id);
`

// Store is a local snapshot database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (and initializes) a snapshot file.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init snapshot schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveCollation upserts the wafer, its children and every resolved
// blueprint of a collation.
func (s *Store) SaveCollation(ctx context.Context, col *collation.Collation) error {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertComponent(ctx, tx, col.Wafer); err != nil {
		return err
	}
	for _, child := range col.Children {
		if err := upsertComponent(ctx, tx, child); err != nil {
			return err
		}
	}
	for _, bp := range col.Blueprints {
		if err := upsertBlueprint(ctx, tx, bp); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Info("snapshot.save.ok",
		"wafer", col.Wafer.Name,
		"children", len(col.Children),
		"blueprints", len(col.Blueprints),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func upsertComponent(ctx context.Context, tx *sql.Tx, c *entity.Component) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal component %s: %w", c.Name, err)
	}
	var parent any
	if c.ParentComponentID != nil {
		parent = c.ParentComponentID.String()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO components (id, name, batch, parent_id, doc) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, batch=excluded.batch,
			parent_id=excluded.parent_id, doc=excluded.doc`,
		c.ID.String(), c.Name, c.Batch, parent, string(doc))
	return err
}

func upsertBlueprint(ctx context.Context, tx *sql.Tx, bp *entity.Blueprint) error {
	doc, err := json.Marshal(bp)
	if err != nil {
		return fmt.Errorf("marshal blueprint %s: %w", bp.Name, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO blueprints (id, name, doc) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, doc=excluded.doc`,
		bp.ID.String(), bp.Name, string(doc))
	return err
}

// Components returns a read-only ComponentRepository over the snapshot.
func (s *Store) Components() *ComponentStore { return &ComponentStore{store: s} }

// Blueprints returns a read-only BlueprintRepository over the snapshot.
func (s *Store) Blueprints() *BlueprintStore { return &BlueprintStore{store: s} }

// ComponentStore implements repository.ComponentRepository over a snapshot.
type ComponentStore struct {
	store *Store
}

func (r *ComponentStore) GetByID(ctx context.Context, id uuid.UUID) (*entity.Component, error) {
	return r.one(ctx, `SELECT doc FROM components WHERE id = ?`, id.String())
}

func (r *ComponentStore) GetByName(ctx context.Context, name string) (*entity.Component, error) {
	return r.one(ctx, `SELECT doc FROM components WHERE name = ?`, name)
}

func (r *ComponentStore) one(ctx context.Context, query string, arg any) (*entity.Component, error) {
	var doc string
	err := r.store.db.QueryRowContext(ctx, query, arg).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, common.NotFoundf("component %v not in snapshot", arg)
	}
	if err != nil {
		return nil, err
	}
	return decodeComponent(doc)
}

func (r *ComponentStore) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Component, error) {
	var out []*entity.Component
	for _, id := range ids {
		c, err := r.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *ComponentStore) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*entity.Component, error) {
	return r.list(ctx, `SELECT doc FROM components WHERE parent_id = ? ORDER BY name`, parentID.String())
}

func (r *ComponentStore) ListByBatch(ctx context.Context, batch string) ([]*entity.Component, error) {
	return r.list(ctx, `SELECT doc FROM components WHERE batch = ? ORDER BY name`, batch)
}

func (r *ComponentStore) list(ctx context.Context, query string, arg any) ([]*entity.Component, error) {
	rows, err := r.store.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*entity.Component
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		c, err := decodeComponent(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// BlueprintStore implements repository.BlueprintRepository over a snapshot.
type BlueprintStore struct {
	store *Store
}

func (r *BlueprintStore) GetByID(ctx context.Context, id uuid.UUID) (*entity.Blueprint, error) {
	var doc string
	err := r.store.db.QueryRowContext(ctx, `SELECT doc FROM blueprints WHERE id = ?`, id.String()).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, common.NotFoundf("blueprint %s not in snapshot", id)
	}
	if err != nil {
		return nil, err
	}
	var bp entity.Blueprint
	if err := json.Unmarshal([]byte(doc), &bp); err != nil {
		return nil, err
	}
	return &bp, nil
}

func (r *BlueprintStore) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Blueprint, error) {
	var out []*entity.Blueprint
	for _, id := range ids {
		bp, err := r.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, bp)
	}
	return out, nil
}

func decodeComponent(doc string) (*entity.Component, error) {
	var c entity.Component
	if err := json.Unmarshal([]byte(doc), &c); err != nil {
		return nil, err
	}
	return &c, nil
}

