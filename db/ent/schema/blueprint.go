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

type Blueprint struct{ ent.Schema }

func (Blueprint) Annotations() []schema.Annotation {
	return []schema.Annotation{
		entsql.Annotation{Table: "blueprints"},
	}
}

func (Blueprint) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable().
			StorageKey("id"),
		field.String("name").NotEmpty().Unique(),
		field.JSON("locations", entity.Locations{}).Optional().
			SchemaType(map[string]string{dialect.Postgres: "jsonb"}),
		field.JSON("datasheet_definition", []entity.DSDefEntry{}).Optional().
			SchemaType(map[string]string{dialect.Postgres: "jsonb"}),
		field.JSON("wafer_layout", &entity.WaferLayout{}).Optional().
			SchemaType(map[string]string{dialect.Postgres: "jsonb"}),
		field.Time("created_at").Default(time.Now),
		field.Time("updated_at").Default(time.Now).UpdateDefault(time.Now),
	}
}

func (Blueprint) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("components", Component.Type),
	}
}
