package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/serpinsight/analyzer/internal/domain"
)

// ResultsRepository handles database operations for analysis outputs.
type ResultsRepository struct {
	db      *sqlx.DB
	metrics Metrics
}

// NewResultsRepository creates a new analysis results repository.
func NewResultsRepository(db *sqlx.DB, metrics Metrics) *ResultsRepository {
	return &ResultsRepository{db: db, metrics: metrics}
}

func (r *ResultsRepository) recordError(ctx context.Context, operation string) {
	if r.metrics != nil {
		r.metrics.RecordStorageError(ctx, operation)
	}
}

// ReplaceScope persists a full analysis result in one transaction: prior
// rows for the project are deleted, the new rows inserted, and the run
// metadata upserted. Readers never see a half-replaced scope.
func (r *ResultsRepository) ReplaceScope(ctx context.Context, result *domain.AnalysisResult) error {
	if err := r.replaceScope(ctx, result); err != nil {
		r.recordError(ctx, "replace_results")
		return err
	}
	if r.metrics != nil {
		r.metrics.RecordResultsReplaced(ctx)
	}
	return nil
}

func (r *ResultsRepository) replaceScope(ctx context.Context, result *domain.AnalysisResult) error {
	projectID := result.Scope.ProjectID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for _, table := range []string{"page_aggregates", "query_clusters", "topic_clusters"} {
		if _, err = tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE project_id = $1`, table), projectID); err != nil {
			return fmt.Errorf("failed to clear %s for project %s: %w", table, projectID, err)
		}
	}

	if err = insertPages(ctx, tx, projectID, result.Pages); err != nil {
		return err
	}
	if err = insertQueryClusters(ctx, tx, projectID, result.QueryClusters); err != nil {
		return err
	}
	if err = insertTopicClusters(ctx, tx, projectID, result.TopicClusters); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO analysis_runs (project_id, analyzed_at, engine_version, record_count, processing_time_ms)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (project_id) DO UPDATE SET
			analyzed_at = EXCLUDED.analyzed_at,
			engine_version = EXCLUDED.engine_version,
			record_count = EXCLUDED.record_count,
			processing_time_ms = EXCLUDED.processing_time_ms
	`, projectID, result.AnalyzedAt, result.EngineVersion, result.RecordCount, result.ProcessingMs); err != nil {
		return fmt.Errorf("failed to upsert analysis run for project %s: %w", projectID, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit result replace: %w", err)
	}

	return nil
}

func insertPages(ctx context.Context, tx *sqlx.Tx, projectID string, pages []domain.PageAggregate) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO page_aggregates (
			project_id, page_url, total_clicks, total_impressions,
			avg_ctr, avg_position, performance_score
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // closed with the transaction

	for _, p := range pages {
		if _, err = stmt.ExecContext(ctx,
			projectID, p.PageURL, p.TotalClicks, p.TotalImpressions,
			p.AvgCTR, p.AvgPosition, p.PerformanceScore,
		); err != nil {
			return fmt.Errorf("failed to insert page %s: %w", p.PageURL, err)
		}
	}
	return nil
}

func insertQueryClusters(ctx context.Context, tx *sqlx.Tx, projectID string, clusters []domain.QueryCluster) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO query_clusters (
			project_id, query, weighted_avg_position, variance, score, severity,
			primary_page, supporting_pages, keyword_difficulty, traffic_gain_estimate
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare query cluster insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // closed with the transaction

	for _, c := range clusters {
		if _, err = stmt.ExecContext(ctx,
			projectID, c.Query, c.WeightedAvgPosition, c.Variance, c.Score, c.Severity,
			c.PrimaryPage, pq.Array(c.SupportingPages), c.KeywordDifficulty, c.TrafficGainEstimate,
		); err != nil {
			return fmt.Errorf("failed to insert query cluster %s: %w", c.Query, err)
		}
	}
	return nil
}

func insertTopicClusters(ctx context.Context, tx *sqlx.Tx, projectID string, clusters []domain.TopicCluster) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO topic_clusters (
			project_id, name, keywords, total_clicks, total_impressions,
			avg_position, topic_score
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare topic cluster insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck // closed with the transaction

	for _, c := range clusters {
		if _, err = stmt.ExecContext(ctx,
			projectID, c.Name, pq.Array(c.Keywords), c.TotalClicks, c.TotalImpressions,
			c.AvgPosition, c.TopicScore,
		); err != nil {
			return fmt.Errorf("failed to insert topic cluster %s: %w", c.Name, err)
		}
	}
	return nil
}

// ListPages retrieves a project's stored page aggregates, best first.
func (r *ResultsRepository) ListPages(ctx context.Context, projectID string) ([]domain.PageAggregate, error) {
	query := `
		SELECT page_url, total_clicks, total_impressions, avg_ctr, avg_position, performance_score
		FROM page_aggregates
		WHERE project_id = $1
		ORDER BY total_clicks DESC, page_url
	`

	pages := make([]domain.PageAggregate, 0)
	if err := r.db.SelectContext(ctx, &pages, query, projectID); err != nil {
		r.recordError(ctx, "list_pages")
		return nil, fmt.Errorf("failed to list pages for project %s: %w", projectID, err)
	}

	return pages, nil
}

// ListQueryClusters retrieves a project's stored cannibalization clusters,
// worst first.
func (r *ResultsRepository) ListQueryClusters(ctx context.Context, projectID string) ([]domain.QueryCluster, error) {
	query := `
		SELECT query, weighted_avg_position, variance, score, severity,
		       primary_page, supporting_pages, keyword_difficulty, traffic_gain_estimate
		FROM query_clusters
		WHERE project_id = $1
		ORDER BY score DESC, query
	`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		r.recordError(ctx, "list_query_clusters")
		return nil, fmt.Errorf("failed to list query clusters for project %s: %w", projectID, err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	clusters := make([]domain.QueryCluster, 0)
	for rows.Next() {
		var c domain.QueryCluster
		if err = rows.Scan(
			&c.Query, &c.WeightedAvgPosition, &c.Variance, &c.Score, &c.Severity,
			&c.PrimaryPage, pq.Array(&c.SupportingPages), &c.KeywordDifficulty, &c.TrafficGainEstimate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan query cluster: %w", err)
		}
		clusters = append(clusters, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read query clusters: %w", err)
	}

	return clusters, nil
}

// ListTopicClusters retrieves a project's stored topic clusters, largest
// first.
func (r *ResultsRepository) ListTopicClusters(ctx context.Context, projectID string) ([]domain.TopicCluster, error) {
	query := `
		SELECT name, keywords, total_clicks, total_impressions, avg_position, topic_score
		FROM topic_clusters
		WHERE project_id = $1
		ORDER BY total_impressions DESC, name
	`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		r.recordError(ctx, "list_topic_clusters")
		return nil, fmt.Errorf("failed to list topic clusters for project %s: %w", projectID, err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	clusters := make([]domain.TopicCluster, 0)
	for rows.Next() {
		var c domain.TopicCluster
		if err = rows.Scan(
			&c.Name, pq.Array(&c.Keywords), &c.TotalClicks, &c.TotalImpressions,
			&c.AvgPosition, &c.TopicScore,
		); err != nil {
			return nil, fmt.Errorf("failed to scan topic cluster: %w", err)
		}
		clusters = append(clusters, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read topic clusters: %w", err)
	}

	return clusters, nil
}
