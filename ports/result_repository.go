package ports

import (
	"context"

	"gaitspec/domain/core"
	"gaitspec/domain/verdict"
)

// ResultRepository persists dataset validation outcomes as an audit trail.
// Verdicts are always recomputed from data and spec; the stored results
// exist for certification history, never as a cache.
type ResultRepository interface {
	SaveResult(ctx context.Context, result *verdict.DatasetValidationResult) error
	ListResults(ctx context.Context, datasetID core.DatasetID, limit int) ([]*verdict.DatasetValidationResult, error)
}
