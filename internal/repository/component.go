package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gmarchiori/wafertrack/internal/common"
	"github.com/gmarchiori/wafertrack/internal/entity"
)

// ComponentRepository reads component documents. All methods honor a pinned
// session connection (see WithSession).
type ComponentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Component, error)
	GetByName(ctx context.Context, name string) (*entity.Component, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Component, error)
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]*entity.Component, error)
	ListByBatch(ctx context.Context, batch string) ([]*entity.Component, error)
}

type componentRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewComponentRepository(pool *pgxpool.Pool, logger *slog.Logger) ComponentRepository {
	return &componentRepository{pool: pool, logger: logger}
}

const componentColumns = `
	id, name, component_type, parent_component_id, blueprint_id,
	status, process_stage, COALESCE(batch, ''), COALESCE(wafer_label, ''),
	status_log, inner_component_ids, test_history, created_at, updated_at`

func (r *componentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Component, error) {
	row := querierFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT `+componentColumns+` FROM components WHERE id = $1`, id)
	c, err := scanComponent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("component %s", id)
	}
	if err != nil {
		r.logger.Error("failed to get component", "id", id, "error", err)
		return nil, err
	}
	return c, nil
}

func (r *componentRepository) GetByName(ctx context.Context, name string) (*entity.Component, error) {
	row := querierFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT `+componentColumns+` FROM components WHERE name = $1`, name)
	c, err := scanComponent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("component named %q", name)
	}
	if err != nil {
		r.logger.Error("failed to get component", "name", name, "error", err)
		return nil, err
	}
	return c, nil
}

func (r *componentRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Component, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := querierFrom(ctx, r.pool).Query(ctx,
		`SELECT `+componentColumns+` FROM components WHERE id = ANY($1) ORDER BY name`, ids)
	if err != nil {
		return nil, err
	}
	return collectComponents(rows)
}

func (r *componentRepository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*entity.Component, error) {
	rows, err := querierFrom(ctx, r.pool).Query(ctx,
		`SELECT `+componentColumns+` FROM components WHERE parent_component_id = $1 ORDER BY name`, parentID)
	if err != nil {
		r.logger.Error("failed to list children", "parent_id", parentID, "error", err)
		return nil, err
	}
	return collectComponents(rows)
}

func (r *componentRepository) ListByBatch(ctx context.Context, batch string) ([]*entity.Component, error) {
	rows, err := querierFrom(ctx, r.pool).Query(ctx,
		`SELECT `+componentColumns+` FROM components WHERE batch = $1 ORDER BY name`, batch)
	if err != nil {
		r.logger.Error("failed to list batch", "batch", batch, "error", err)
		return nil, err
	}
	return collectComponents(rows)
}

func collectComponents(rows pgx.Rows) ([]*entity.Component, error) {
	defer rows.Close()
	var out []*entity.Component
	for rows.Next() {
		c, err := scanComponent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// scanComponent decodes one component row; the nested documents arrive as
// JSONB payloads.
func scanComponent(row pgx.Row) (*entity.Component, error) {
	var (
		c         entity.Component
		statusLog []byte
		innerIDs  []byte
		history   []byte
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.ComponentType, &c.ParentComponentID, &c.BlueprintID,
		&c.Status, &c.ProcessStage, &c.Batch, &c.WaferLabel,
		&statusLog, &innerIDs, &history, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSONB(statusLog, &c.StatusLog); err != nil {
		return nil, fmt.Errorf("component %s status_log: %w", c.ID, err)
	}
	if err := decodeJSONB(innerIDs, &c.InnerComponentIDs); err != nil {
		return nil, fmt.Errorf("component %s inner_component_ids: %w", c.ID, err)
	}
	if err := decodeJSONB(history, &c.TestHistory); err != nil {
		return nil, fmt.Errorf("component %s test_history: %w", c.ID, err)
	}
	return &c, nil
}

func decodeJSONB(b []byte, dst any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}
