package database

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/serpinsight/analyzer/internal/domain"
)

// Metrics records storage outcomes. A nil Metrics disables recording.
type Metrics interface {
	RecordStorageError(ctx context.Context, operation string)
	RecordResultsReplaced(ctx context.Context)
}

// RecordsRepository handles database operations for performance records.
type RecordsRepository struct {
	db      *sqlx.DB
	metrics Metrics
}

// NewRecordsRepository creates a new performance records repository.
func NewRecordsRepository(db *sqlx.DB, metrics Metrics) *RecordsRepository {
	return &RecordsRepository{db: db, metrics: metrics}
}

func (r *RecordsRepository) recordError(ctx context.Context, operation string) {
	if r.metrics != nil {
		r.metrics.RecordStorageError(ctx, operation)
	}
}

// ListByScope retrieves all records for a project, optionally bounded by
// the scope's date window.
func (r *RecordsRepository) ListByScope(ctx context.Context, scope domain.Scope) ([]domain.PerformanceRecord, error) {
	query := `
		SELECT query, page, date, clicks, impressions, ctr, position
		FROM performance_records
		WHERE project_id = $1
	`
	args := []interface{}{scope.ProjectID}

	if scope.StartDate != nil {
		args = append(args, *scope.StartDate)
		query += " AND date >= $" + strconv.Itoa(len(args))
	}
	if scope.EndDate != nil {
		args = append(args, *scope.EndDate)
		query += " AND date <= $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY query, page, date"

	records := make([]domain.PerformanceRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.recordError(ctx, "list_records")
		return nil, fmt.Errorf("failed to list records for project %s: %w", scope.ProjectID, err)
	}

	return records, nil
}

// ReplaceRecords replaces a project's record set in one transaction. The
// sync adapter delivers full snapshots, so partial updates never happen.
func (r *RecordsRepository) ReplaceRecords(ctx context.Context, projectID string, records []domain.PerformanceRecord) error {
	if err := r.replaceRecords(ctx, projectID, records); err != nil {
		r.recordError(ctx, "replace_records")
		return err
	}
	return nil
}

func (r *RecordsRepository) replaceRecords(ctx context.Context, projectID string, records []domain.PerformanceRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err = tx.ExecContext(ctx, `DELETE FROM performance_records WHERE project_id = $1`, projectID); err != nil {
		return fmt.Errorf("failed to clear records for project %s: %w", projectID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO performance_records (
			project_id, query, page, date, clicks, impressions, ctr, position, synced_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // closed with the transaction

	for i := range records {
		rec := records[i]
		if _, err = stmt.ExecContext(ctx,
			projectID,
			rec.Query,
			rec.Page,
			rec.Date,
			rec.Clicks,
			rec.Impressions,
			rec.CTR,
			rec.Position,
		); err != nil {
			return fmt.Errorf("failed to insert record %d for project %s: %w", i, projectID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit record replace: %w", err)
	}

	return nil
}

// ListChangedScopes returns projects whose records were synced after their
// last analysis, including projects that were never analyzed. ChangedAt
// carries the most recent sync time so callers can report scheduling lag.
func (r *RecordsRepository) ListChangedScopes(ctx context.Context) ([]domain.StaleScope, error) {
	query := `
		SELECT r.project_id, MAX(r.synced_at) AS changed_at
		FROM performance_records r
		LEFT JOIN analysis_runs a ON a.project_id = r.project_id
		GROUP BY r.project_id, a.analyzed_at
		HAVING MAX(r.synced_at) > COALESCE(a.analyzed_at, 'epoch'::timestamptz)
		ORDER BY r.project_id
	`

	scopes := make([]domain.StaleScope, 0)
	if err := r.db.SelectContext(ctx, &scopes, query); err != nil {
		r.recordError(ctx, "list_changed_scopes")
		return nil, fmt.Errorf("failed to list changed scopes: %w", err)
	}

	return scopes, nil
}
