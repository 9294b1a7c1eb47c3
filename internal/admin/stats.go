package admin

import (
	"context"
	"database/sql"
	"fmt"
)

// PGStats computes platform totals straight from Postgres.
type PGStats struct {
	DB *sql.DB
}

func (p PGStats) Stats(ctx context.Context) (Stats, error) {
	st := Stats{Generations: make(map[string]map[string]int)}

	if err := p.DB.QueryRowContext(ctx, `SELECT count(*) FROM profiles`).Scan(&st.Users); err != nil {
		return Stats{}, fmt.Errorf("count profiles: %w", err)
	}
	if err := p.DB.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&st.Documents); err != nil {
		return Stats{}, fmt.Errorf("count documents: %w", err)
	}

	tables := map[string]string{
		"summary":   "summaries",
		"flashcard": "flashcard_decks",
		"quiz":      "quizzes",
	}
	for kind, table := range tables {
		byStatus, err := p.countByStatus(ctx, table)
		if err != nil {
			return Stats{}, fmt.Errorf("count %s: %w", table, err)
		}
		st.Generations[kind] = byStatus
	}
	return st, nil
}

func (p PGStats) countByStatus(ctx context.Context, table string) (map[string]int, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT status, count(*) FROM `+table+` GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

// StatsFunc adapts a plain function to StatsProvider. Used by the memory
// wiring where totals come from the in-process repos.
type StatsFunc func(ctx context.Context) (Stats, error)

func (f StatsFunc) Stats(ctx context.Context) (Stats, error) { return f(ctx) }
