package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"

	"github.com/google/uuid"

	"github.com/gmarchiori/wafertrack/internal/entity"
)

type Component struct{ ent.Schema }

func (Component) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "components"},
	}
}

func (Component) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable().
			StorageKey("id"),
		field.String("name").NotEmpty().Unique(),
		field.String("component_type").NotEmpty(),
		field.UUID("parent_component_id", uuid.UUID{}).Optional().Nillable(),
		field.UUID("blueprint_id", uuid.UUID{}),
		field.String("status").NotEmpty(),
		field.String("process_stage").Optional(),
		field.String("batch").Optional(),
		field.String("wafer_label").Optional(),
		field.JSON("status_log", []entity.StatusChange{}).Optional().
			SchemaType(map[string]string{dialect.Postgres: "jsonb"}),
		field.JSON("inner_component_ids", []uuid.UUID{}).Optional().
			SchemaType(map[string]string{dialect.Postgres: "jsonb"}),
		// Append-only; entries are never rewritten once landed.
		field.JSON("test_history", []entity.TestEntry{}).Optional().
			SchemaType(map[string]string{dialect.Postgres: "jsonb"}),
		field.Time("created_at").Default(time.Now),
		field.Time("updated_at").Default(time.Now).UpdateDefault(time.Now),
	}
}

func (Component) Edges() []ent.Edge {
	return []ent.Edge{
		// MANY components -> ONE blueprint (FK: components.blueprint_id)
		edge.From("blueprint", Blueprint.Type).
			Ref("components").
			Field("blueprint_id").
			Required().
			Unique(),
		// Self-referencing parent/child hierarchy.
		edge.To("children", Component.Type).
			From("parent").
			Field("parent_component_id").
			Unique(),
	}
}
