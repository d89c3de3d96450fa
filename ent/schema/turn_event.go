package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// TurnEvent records one transcript turn. A session's transcript is the
// ordered set of its turn events; score is derived by replaying the
// verdicts, never stored per session mid-run.
type TurnEvent struct {
	ent.Schema
}

func (TurnEvent) Mixin() []ent.Mixin {
	return []ent.Mixin{EventMixin{}}
}

func (TurnEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("session_id").
			NotEmpty().
			Comment("UUID grouping events in a session"),
		field.String("question_id").
			Default("").
			Comment("Question this turn belongs to, empty for session-level system turns"),
		field.String("speaker").
			NotEmpty().
			Comment("agent, user, or system"),
		field.Text("text").
			Comment("What was said or logged"),
		field.Bool("has_verdict").
			Default(false).
			Comment("Whether evaluation resolved for this user turn"),
		field.Bool("verdict").
			Default(false).
			Comment("Evaluation outcome, meaningful only when has_verdict"),
	}
}

func (TurnEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("session_id"),
		index.Fields("speaker"),
	}
}
