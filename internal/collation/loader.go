package collation

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gmarchiori/wafertrack/internal/entity"
	"github.com/gmarchiori/wafertrack/internal/repository"
)

// Loader populates collations. Loads are lenient: a missing wafer is fatal,
// everything else degrades to a warning and a well-defined gap.
type Loader struct {
	pool       *pgxpool.Pool
	components repository.ComponentRepository
	blueprints repository.BlueprintRepository
	logger     *slog.Logger
}

func NewLoader(pool *pgxpool.Pool, components repository.ComponentRepository, blueprints repository.BlueprintRepository, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{pool: pool, components: components, blueprints: blueprints, logger: logger}
}

// session pins all queries of one load to a single connection. With no pool
// (snapshot-backed repositories) it is a no-op.
func (l *Loader) session(ctx context.Context) (context.Context, func(), error) {
	if l.pool == nil {
		return ctx, func() {}, nil
	}
	return repository.WithSession(ctx, l.pool)
}

// LoadWaferCollation resolves a wafer by id or name and loads its children,
// the referenced blueprints, and the four label partitions.
func (l *Loader) LoadWaferCollation(ctx context.Context, idOrName string) (*Collation, error) {
	ctx, release, err := l.session(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	wafer, err := l.resolveComponent(ctx, idOrName)
	if err != nil {
		return nil, err
	}

	col := &Collation{
		Wafer:      wafer,
		Chips:      make(map[string]*entity.Component),
		TestChips:  make(map[string]*entity.Component),
		Bars:       make(map[string]*entity.Component),
		TestCells:  make(map[string]*entity.Component),
		Blueprints: make(map[uuid.UUID]*entity.Blueprint),
	}

	waferBP, err := l.blueprints.GetByID(ctx, wafer.BlueprintID)
	if err != nil {
		l.logger.Warn("collation.wafer_blueprint.missing",
			"wafer", wafer.Name, "blueprint_id", wafer.BlueprintID, "error", err)
	} else {
		col.WaferBlueprint = waferBP
		col.Blueprints[waferBP.ID] = waferBP
	}

	var layout *entity.WaferLayout
	if col.WaferBlueprint != nil {
		layout = col.WaferBlueprint.WaferLayout
	}
	if layout == nil {
		l.logger.Warn("collation.wafer_layout.missing", "wafer", wafer.Name)
		layout = &entity.WaferLayout{}
	}

	if err := l.loadPartitionBlueprints(ctx, col, layout); err != nil {
		return nil, err
	}

	children, err := l.components.ListChildren(ctx, wafer.ID)
	if err != nil {
		return nil, err
	}
	col.Children = children
	l.classify(col, layout, children)

	l.logger.Info("collation.load.ok",
		"wafer", wafer.Name,
		"children", len(children),
		"chips", len(col.Chips),
		"test_chips", len(col.TestChips),
		"bars", len(col.Bars),
		"test_cells", len(col.TestCells),
	)
	return col, nil
}

// LoadComponent resolves one component by id or name together with its
// blueprint. Used for single-component reports (golden samples).
func (l *Loader) LoadComponent(ctx context.Context, idOrName string) (*entity.Component, *entity.Blueprint, error) {
	ctx, release, err := l.session(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	comp, err := l.resolveComponent(ctx, idOrName)
	if err != nil {
		return nil, nil, err
	}
	bp, err := l.blueprints.GetByID(ctx, comp.BlueprintID)
	if err != nil {
		return nil, nil, err
	}
	return comp, bp, nil
}

// LoadBlueprints batch-fetches the distinct blueprints of the given ids.
func (l *Loader) LoadBlueprints(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Blueprint, error) {
	ctx, release, err := l.session(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	seen := make(map[uuid.UUID]struct{})
	var distinct []uuid.UUID
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		distinct = append(distinct, id)
	}
	bps, err := l.blueprints.ListByIDs(ctx, distinct)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*entity.Blueprint, len(bps))
	for _, bp := range bps {
		out[bp.ID] = bp
	}
	return out, nil
}

// resolveComponent accepts either a document id or a component name.
func (l *Loader) resolveComponent(ctx context.Context, idOrName string) (*entity.Component, error) {
	if id, err := uuid.Parse(idOrName); err == nil {
		return l.components.GetByID(ctx, id)
	}
	return l.components.GetByName(ctx, idOrName)
}

// loadPartitionBlueprints batch-fetches the distinct blueprints the four
// partitions reference.
func (l *Loader) loadPartitionBlueprints(ctx context.Context, col *Collation, layout *entity.WaferLayout) error {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, part := range []*entity.LabelPartition{&layout.Chips, &layout.TestChips, &layout.Bars, &layout.TestCells} {
		for _, id := range part.BlueprintIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	bps, err := l.blueprints.ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, bp := range bps {
		col.Blueprints[bp.ID] = bp
	}
	if len(bps) < len(ids) {
		l.logger.Warn("collation.partition_blueprints.partial",
			"wanted", len(ids), "loaded", len(bps))
	}
	return nil
}

// classify places each child into the partition whose blueprint set carries
// its blueprint id. Children with an unknown blueprint or no wafer label
// are warned and left out of the label dictionaries.
func (l *Loader) classify(col *Collation, layout *entity.WaferLayout, children []*entity.Component) {
	partitions := []struct {
		part *entity.LabelPartition
		dict map[string]*entity.Component
		name string
	}{
		{&layout.Chips, col.Chips, "chips"},
		{&layout.TestChips, col.TestChips, "test_chips"},
		{&layout.Bars, col.Bars, "bars"},
		{&layout.TestCells, col.TestCells, "test_cells"},
	}

	for _, child := range children {
		var dict map[string]*entity.Component
		var partName string
		for _, p := range partitions {
			if p.part.HasBlueprint(child.BlueprintID) {
				dict = p.dict
				partName = p.name
				break
			}
		}
		if dict == nil {
			l.logger.Warn("collation.child.unknown_blueprint",
				"component", child.Name, "blueprint_id", child.BlueprintID)
			continue
		}
		if child.WaferLabel == "" {
			l.logger.Warn("collation.child.unlabeled",
				"component", child.Name, "partition", partName)
			continue
		}
		if prev, dup := dict[child.WaferLabel]; dup {
			l.logger.Warn("collation.child.duplicate_label",
				"label", child.WaferLabel, "kept", prev.Name, "dropped", child.Name)
			continue
		}
		dict[child.WaferLabel] = child
	}
}

// LoadModuleBatch loads every module of a batch and traverses the
// inner-component relation twice (Module → COS → Chip), producing three
// parallel lists. Modules that do not resolve all the way down are warned
// and skipped.
func (l *Loader) LoadModuleBatch(ctx context.Context, batch string) (*ModuleBatch, error) {
	ctx, release, err := l.session(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	modules, err := l.components.ListByBatch(ctx, batch)
	if err != nil {
		return nil, err
	}

	out := &ModuleBatch{Batch: batch}
	for _, mod := range modules {
		cos := l.firstInner(ctx, mod)
		if cos == nil {
			l.logger.Warn("collation.module.no_cos", "module", mod.Name)
			continue
		}
		chip := l.firstInner(ctx, cos)
		if chip == nil {
			l.logger.Warn("collation.module.no_chip", "module", mod.Name, "cos", cos.Name)
			continue
		}
		out.Modules = append(out.Modules, mod)
		out.COSs = append(out.COSs, cos)
		out.Chips = append(out.Chips, chip)
	}

	l.logger.Info("collation.batch.ok", "batch", batch, "modules", len(out.Modules), "skipped", len(modules)-len(out.Modules))
	return out, nil
}

func (l *Loader) firstInner(ctx context.Context, comp *entity.Component) *entity.Component {
	if len(comp.InnerComponentIDs) == 0 {
		return nil
	}
	inner, err := l.components.GetByID(ctx, comp.InnerComponentIDs[0])
	if err != nil {
		l.logger.Warn("collation.inner.missing", "component", comp.Name, "inner_id", comp.InnerComponentIDs[0], "error", err)
		return nil
	}
	return inner
}
