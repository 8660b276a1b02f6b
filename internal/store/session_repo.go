package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/trialgate/internal/session"
	"github.com/abhisek/trialgate/internal/trial"
)

// ErrNotFound is returned when no session has the requested ID.
var ErrNotFound = errors.New("store: session not found")

// Summary is one row of the session listing.
type Summary struct {
	ID          string
	Sequence    int64
	Phase       session.Phase
	WorkerID    string
	DelayGroup  string
	Outcome     string
	ExitCode    string
	Trials      int
	StartedAt   time.Time
	SubmittedAt time.Time
}

// QueryOpts filters and paginates session listings.
type QueryOpts struct {
	Limit int           // max results (0 = unlimited)
	Phase session.Phase // only this phase ("" = all)
	After int64         // sequence > After
}

// SessionRepo stores submitted session records. It satisfies
// session.Submitter.
type SessionRepo interface {
	// Submit stores a wrapped-up record and its trials.
	Submit(ctx context.Context, rec session.Record) error

	// Get returns the full record of one session.
	Get(ctx context.Context, id string) (*session.Record, error)

	// List returns session summaries, newest first.
	List(ctx context.Context, opts QueryOpts) ([]Summary, error)

	// Trials returns the stored trial rows of one session in order.
	Trials(ctx context.Context, id string) ([]trial.Trial, error)

	// Delete removes a session and its trials.
	Delete(ctx context.Context, id string) error
}

type sessionRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

func (r *sessionRepo) Submit(ctx context.Context, rec session.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("submit session: missing id")
	}
	if !rec.Submitted() {
		return fmt.Errorf("submit session %s: record not wrapped up", rec.ID)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin submit: %w", err)
	}
	defer tx.Rollback()

	seqNum, err := r.seq.Next(ctx, tx)
	if err != nil {
		return err
	}

	outcome := ""
	if rec.Outcome != nil {
		outcome = string(rec.Outcome.Kind)
	}

	query, args := builder().Insert(SessionsTable.Name).
		Columns("id", "sequence", "phase", "worker_id", "delay_group", "outcome",
			"entry_code", "exit_code", "trial_count", "started_at", "submitted_at", "record").
		Values(rec.ID, seqNum, string(rec.Phase), rec.WorkerID, string(rec.DelayGroup), outcome,
			rec.EntryCode, rec.ExitCode, len(rec.Trials), rec.StartedAt, rec.SubmitTime, string(data)).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save session %s: %w", rec.ID, err)
	}

	for _, t := range rec.Trials {
		var correct any
		if t.Correct != nil {
			correct = *t.Correct
		}
		query, args := builder().Insert(TrialsTable.Name).
			Columns("session_id", "trial_index", "stimulus", "condition", "response_kind", "response", "rt_ms", "correct").
			Values(rec.ID, t.Index, t.Stimulus.ID, t.Stimulus.Condition, string(t.ResponseKind), t.Response, t.ReactionTimeMs, correct).
			Query()
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("save trial %d of %s: %w", t.Index, rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit submit: %w", err)
	}
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*session.Record, error) {
	query, args := builder().Select("record").
		From(entsql.Table(SessionsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	var data []byte
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("query session %s: %w", id, err)
	}

	var rec session.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &rec, nil
}

func (r *sessionRepo) List(ctx context.Context, opts QueryOpts) ([]Summary, error) {
	sel := builder().Select("id", "sequence", "phase", "worker_id", "delay_group", "outcome",
		"exit_code", "trial_count", "started_at", "submitted_at").
		From(entsql.Table(SessionsTable.Name))

	var preds []*entsql.Predicate
	if opts.Phase != "" {
		preds = append(preds, entsql.EQ("phase", string(opts.Phase)))
	}
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if len(preds) > 0 {
		sel = sel.Where(entsql.And(preds...))
	}
	sel = sel.OrderBy(entsql.Desc("sequence"))
	if opts.Limit > 0 {
		sel = sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		var phase string
		if err := rows.Scan(&s.ID, &s.Sequence, &phase, &s.WorkerID, &s.DelayGroup, &s.Outcome,
			&s.ExitCode, &s.Trials, &s.StartedAt, &s.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.Phase = session.Phase(phase)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

func (r *sessionRepo) Trials(ctx context.Context, id string) ([]trial.Trial, error) {
	query, args := builder().Select("trial_index", "stimulus", "condition", "response_kind", "response", "rt_ms", "correct").
		From(entsql.Table(TrialsTable.Name)).
		Where(entsql.EQ("session_id", id)).
		OrderBy(entsql.Asc("trial_index")).
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trials of %s: %w", id, err)
	}
	defer rows.Close()

	var out []trial.Trial
	for rows.Next() {
		var (
			t       trial.Trial
			kind    string
			correct sql.NullBool
		)
		if err := rows.Scan(&t.Index, &t.Stimulus.ID, &t.Stimulus.Condition, &kind, &t.Response, &t.ReactionTimeMs, &correct); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		t.ResponseKind = trial.ResponseKind(kind)
		if correct.Valid {
			c := correct.Bool
			t.Correct = &c
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trials: %w", err)
	}
	return out, nil
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	query, args := builder().Delete(SessionsTable.Name).
		Where(entsql.EQ("id", id)).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
