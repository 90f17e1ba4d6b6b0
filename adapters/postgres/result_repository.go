package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gaitspec/domain/core"
	"gaitspec/domain/verdict"
	"gaitspec/ports"
)

// resultRepository implements the ResultRepository interface
type resultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a new validation result repository
func NewResultRepository(db *sqlx.DB) ports.ResultRepository {
	return &resultRepository{db: db}
}

// SaveResult appends one validation outcome to the audit trail. The summary
// columns exist for querying; the full result lives in the JSONB payload.
func (r *resultRepository) SaveResult(ctx context.Context, result *verdict.DatasetValidationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal validation result: %w", err)
	}

	query := `INSERT INTO validation_results (
		id, dataset_id, spec_version, status, pass_rate, total_strides,
		valid_strides, coverage, result, finished_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
	)`

	_, err = r.db.ExecContext(ctx, query,
		uuid.NewString(), result.DatasetID.String(), result.SpecVersion.String(),
		string(result.Status), result.PassRate, result.TotalStrides,
		result.ValidStrides, result.Coverage, payload, result.FinishedAt.Time(),
	)

	if err != nil {
		return fmt.Errorf("failed to save validation result: %w", err)
	}

	return nil
}

// ListResults retrieves the most recent validation outcomes for a dataset
func (r *resultRepository) ListResults(ctx context.Context, datasetID core.DatasetID, limit int) ([]*verdict.DatasetValidationResult, error) {
	query := `SELECT result FROM validation_results
	WHERE dataset_id = $1 ORDER BY finished_at DESC LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, datasetID.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query validation results: %w", err)
	}
	defer rows.Close()

	var results []*verdict.DatasetValidationResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan validation result: %w", err)
		}
		var result verdict.DatasetValidationResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal validation result: %w", err)
		}
		results = append(results, &result)
	}

	return results, nil
}
