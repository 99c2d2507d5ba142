// Package audit records staff actions taken through the portal into the
// local Postgres store and summarizes them for the analytics view.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"hostel-portal/internal/model"
	"hostel-portal/internal/session"
)

// Entry is one recorded action.
type Entry struct {
	OccurredAt string         `json:"occurredAt"`
	Action     string         `json:"action"`
	ActorID    string         `json:"actorId"`
	ActorName  string         `json:"actorName"`
	ActorRole  string         `json:"actorRole"`
	Target     string         `json:"target,omitempty"`
	Outcome    string         `json:"outcome"`
	Detail     map[string]any `json:"detail,omitempty"`
}

const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Query filters the trail listing.
type Query struct {
	Action string
	Actor  string
	From   string
	To     string
	Page   int
	Limit  int
}

// ActionCount is one row of the analytics rollup.
type ActionCount struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}

// DayCount is activity per calendar day.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// Summary feeds the staff analytics page.
type Summary struct {
	Since     string        `json:"since"`
	Total     int           `json:"total"`
	Failed    int           `json:"failed"`
	ByAction  []ActionCount `json:"byAction"`
	ByDay     []DayCount    `json:"byDay"`
	TopActors []ActionCount `json:"topActors"`
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, e Entry) error {
	var detailJSON []byte
	if e.Detail != nil {
		var err error
		detailJSON, err = json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO portal_audit
		 (occurred_at, action, actor_id, actor_name, actor_role, target, outcome, detail)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.OccurredAt, e.Action, e.ActorID, e.ActorName, e.ActorRole, e.Target, e.Outcome, detailJSON)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (r *Repository) List(ctx context.Context, q Query) ([]Entry, model.Meta, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 200 {
		q.Limit = 200
	}

	where := make([]string, 0)
	args := make([]any, 0)
	argIdx := 1

	if action := strings.TrimSpace(q.Action); action != "" {
		where = append(where, fmt.Sprintf("lower(action) = lower($%d)", argIdx))
		args = append(args, action)
		argIdx++
	}
	if actor := strings.TrimSpace(q.Actor); actor != "" {
		where = append(where, fmt.Sprintf("actor_id = $%d", argIdx))
		args = append(args, actor)
		argIdx++
	}
	if from := strings.TrimSpace(q.From); from != "" {
		where = append(where, fmt.Sprintf("occurred_at >= $%d::timestamptz", argIdx))
		args = append(args, from)
		argIdx++
	}
	if to := strings.TrimSpace(q.To); to != "" {
		where = append(where, fmt.Sprintf("occurred_at <= $%d::timestamptz", argIdx))
		args = append(args, to)
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM portal_audit %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count audit entries: %w", err)
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + q.Limit - 1) / q.Limit
	}
	meta := model.Meta{Page: q.Page, Limit: q.Limit, Total: total, TotalPages: totalPages}

	offset := (q.Page - 1) * q.Limit
	dataQuery := fmt.Sprintf(
		`SELECT occurred_at, action, actor_id, actor_name, actor_role, target, outcome, detail
		 FROM portal_audit %s
		 ORDER BY occurred_at DESC
		 LIMIT $%d OFFSET $%d`, whereClause, argIdx, argIdx+1)
	args = append(args, q.Limit, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		var occurredAt time.Time
		var detailJSON []byte

		if err := rows.Scan(&occurredAt, &e.Action, &e.ActorID, &e.ActorName,
			&e.ActorRole, &e.Target, &e.Outcome, &detailJSON); err != nil {
			return nil, model.Meta{}, fmt.Errorf("scan audit entry: %w", err)
		}

		e.OccurredAt = occurredAt.UTC().Format(time.RFC3339Nano)
		if len(detailJSON) > 0 {
			_ = json.Unmarshal(detailJSON, &e.Detail)
		}

		entries = append(entries, e)
	}

	return entries, meta, rows.Err()
}

// Summarize rolls up activity since the given cutoff.
func (r *Repository) Summarize(ctx context.Context, since time.Time) (Summary, error) {
	s := Summary{Since: since.UTC().Format(time.RFC3339)}

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE outcome = $2)
		 FROM portal_audit WHERE occurred_at >= $1`,
		since, OutcomeFailed).Scan(&s.Total, &s.Failed)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize totals: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT action, COUNT(*) FROM portal_audit
		 WHERE occurred_at >= $1
		 GROUP BY action ORDER BY COUNT(*) DESC, action`, since)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize actions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c ActionCount
		if err := rows.Scan(&c.Action, &c.Count); err != nil {
			return Summary{}, fmt.Errorf("scan action count: %w", err)
		}
		s.ByAction = append(s.ByAction, c)
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}

	dayRows, err := r.pool.Query(ctx,
		`SELECT to_char(date_trunc('day', occurred_at), 'YYYY-MM-DD'), COUNT(*)
		 FROM portal_audit WHERE occurred_at >= $1
		 GROUP BY 1 ORDER BY 1`, since)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize days: %w", err)
	}
	defer dayRows.Close()
	for dayRows.Next() {
		var c DayCount
		if err := dayRows.Scan(&c.Day, &c.Count); err != nil {
			return Summary{}, fmt.Errorf("scan day count: %w", err)
		}
		s.ByDay = append(s.ByDay, c)
	}
	if err := dayRows.Err(); err != nil {
		return Summary{}, err
	}

	actorRows, err := r.pool.Query(ctx,
		`SELECT actor_name, COUNT(*) FROM portal_audit
		 WHERE occurred_at >= $1 AND actor_name <> ''
		 GROUP BY actor_name ORDER BY COUNT(*) DESC LIMIT 5`, since)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize actors: %w", err)
	}
	defer actorRows.Close()
	for actorRows.Next() {
		var c ActionCount
		if err := actorRows.Scan(&c.Action, &c.Count); err != nil {
			return Summary{}, fmt.Errorf("scan actor count: %w", err)
		}
		s.TopActors = append(s.TopActors, c)
	}
	return s, actorRows.Err()
}

// Recorder is the write-side facade handed to handlers. Recording is best
// effort: a broken audit store must never fail the action it describes,
// and a nil Recorder (no database configured) is a no-op.
type Recorder struct {
	repo *Repository
}

func NewRecorder(repo *Repository) *Recorder {
	return &Recorder{repo: repo}
}

func (rec *Recorder) Record(ctx context.Context, action string, target string, outcome string, detail map[string]any) {
	if rec == nil || rec.repo == nil {
		return
	}

	e := Entry{
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Action:     action,
		Target:     target,
		Outcome:    outcome,
		Detail:     detail,
	}
	if id, ok := session.IdentityFromContext(ctx); ok && id != nil {
		e.ActorID = id.Subject
		e.ActorName = id.Name
		e.ActorRole = id.Role
	}

	insertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := rec.repo.Insert(insertCtx, e); err != nil {
		slog.Debug("audit insert failed", "action", action, "error", err)
	}
}
