package experiments

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/passbi/raptor_core/internal/db"
)

// RunLog records one experiment batch in postgres so runs on shared
// datasets stay auditable. The sink is optional: when no database is
// configured, or the insert fails, the batch itself is unaffected.
type RunLog struct {
	pool *pgxpool.Pool
	id   int64
}

// StartRunLog opens a run_log row in the running state. Returns nil
// when no database is configured.
func StartRunLog(ctx context.Context, dataset string, algo, queryType string) (*RunLog, error) {
	if !db.Configured() {
		return nil, nil
	}

	pool, err := db.GetDB()
	if err != nil {
		return nil, fmt.Errorf("run log: %w", err)
	}

	var id int64
	err = pool.QueryRow(ctx, `
		INSERT INTO run_log (dataset, algo, query_type, status)
		VALUES ($1, $2, $3, 'running')
		RETURNING id
	`, dataset, algo, queryType).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("run log: %w", err)
	}

	return &RunLog{pool: pool, id: id}, nil
}

// Finish closes the row with the batch outcome.
func (rl *RunLog) Finish(ctx context.Context, status string, queries int, elapsed time.Duration) error {
	if rl == nil {
		return nil
	}

	message := fmt.Sprintf("Ran %d queries in %s", queries, elapsed.Round(time.Millisecond))
	_, err := rl.pool.Exec(ctx, `
		UPDATE run_log
		SET completed_at = NOW(),
		    status = $2,
		    message = $3
		WHERE id = $1
	`, rl.id, status, message)
	return err
}
