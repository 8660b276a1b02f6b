package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	// SessionsColumns holds the columns for the "sessions" table.
	SessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "phase", Type: field.TypeString},
		{Name: "worker_id", Type: field.TypeString, Default: ""},
		{Name: "delay_group", Type: field.TypeString, Default: ""},
		{Name: "outcome", Type: field.TypeString, Default: ""},
		{Name: "entry_code", Type: field.TypeString, Default: ""},
		{Name: "exit_code", Type: field.TypeString, Default: ""},
		{Name: "trial_count", Type: field.TypeInt},
		{Name: "started_at", Type: field.TypeTime},
		{Name: "submitted_at", Type: field.TypeTime},
		{Name: "record", Type: field.TypeJSON},
	}
	// SessionsTable holds the schema information for the "sessions" table.
	SessionsTable = &schema.Table{
		Name:       "sessions",
		Columns:    SessionsColumns,
		PrimaryKey: []*schema.Column{SessionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "session_phase", Columns: []*schema.Column{SessionsColumns[2]}},
		},
	}

	// TrialsColumns holds the columns for the "trials" table.
	TrialsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "session_id", Type: field.TypeString},
		{Name: "trial_index", Type: field.TypeInt},
		{Name: "stimulus", Type: field.TypeString},
		{Name: "condition", Type: field.TypeString, Default: ""},
		{Name: "response_kind", Type: field.TypeString},
		{Name: "response", Type: field.TypeString},
		{Name: "rt_ms", Type: field.TypeInt64},
		{Name: "correct", Type: field.TypeBool, Nullable: true},
	}
	// TrialsTable holds the schema information for the "trials" table.
	TrialsTable = &schema.Table{
		Name:       "trials",
		Columns:    TrialsColumns,
		PrimaryKey: []*schema.Column{TrialsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "trials_sessions_trials",
				Columns:    []*schema.Column{TrialsColumns[1]},
				RefColumns: []*schema.Column{SessionsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "trial_session_id_trial_index", Unique: true, Columns: []*schema.Column{TrialsColumns[1], TrialsColumns[2]}},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		SessionsTable,
		TrialsTable,
	}
)

func init() {
	TrialsTable.ForeignKeys[0].RefTable = SessionsTable
}
