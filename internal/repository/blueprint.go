package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gmarchiori/wafertrack/internal/common"
	"github.com/gmarchiori/wafertrack/internal/entity"
)

// BlueprintRepository reads blueprint documents. Documents are validated
// against the blueprint JSON-Schema on load, so a malformed datasheet
// definition surfaces here and not halfway through a projection.
type BlueprintRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Blueprint, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Blueprint, error)
}

type blueprintRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewBlueprintRepository(pool *pgxpool.Pool, logger *slog.Logger) BlueprintRepository {
	return &blueprintRepository{pool: pool, logger: logger}
}

const blueprintColumns = `
	id, name, locations, datasheet_definition, wafer_layout, created_at, updated_at`

func (r *blueprintRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Blueprint, error) {
	row := querierFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT `+blueprintColumns+` FROM blueprints WHERE id = $1`, id)
	bp, err := scanBlueprint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NotFoundf("blueprint %s", id)
	}
	if err != nil {
		r.logger.Error("failed to get blueprint", "id", id, "error", err)
		return nil, err
	}
	return bp, nil
}

// ListByIDs fetches the distinct blueprints in a single batch query.
func (r *blueprintRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Blueprint, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := querierFrom(ctx, r.pool).Query(ctx,
		`SELECT `+blueprintColumns+` FROM blueprints WHERE id = ANY($1) ORDER BY name`, ids)
	if err != nil {
		r.logger.Error("failed to list blueprints", "error", err)
		return nil, err
	}
	defer rows.Close()
	var out []*entity.Blueprint
	for rows.Next() {
		bp, err := scanBlueprint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, bp)
	}
	return out, rows.Err()
}

func scanBlueprint(row pgx.Row) (*entity.Blueprint, error) {
	var (
		bp        entity.Blueprint
		locations []byte
		def       []byte
		layout    []byte
	)
	err := row.Scan(&bp.ID, &bp.Name, &locations, &def, &layout, &bp.CreatedAt, &bp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(def) > 0 {
		if err := ValidateDatasheetDefinition(def); err != nil {
			return nil, fmt.Errorf("blueprint %s: %w", bp.ID, err)
		}
	}
	if err := decodeJSONB(locations, &bp.Locations); err != nil {
		return nil, fmt.Errorf("blueprint %s locations: %w", bp.ID, err)
	}
	if err := decodeJSONB(def, &bp.DatasheetDefinition); err != nil {
		return nil, fmt.Errorf("blueprint %s datasheet_definition: %w", bp.ID, err)
	}
	if err := decodeJSONB(layout, &bp.WaferLayout); err != nil {
		return nil, fmt.Errorf("blueprint %s wafer_layout: %w", bp.ID, err)
	}
	return &bp, nil
}
