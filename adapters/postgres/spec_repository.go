package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gaitspec/domain/core"
	"gaitspec/domain/rangespec"
	"gaitspec/ports"
)

// specRepository implements the SpecRepository interface
type specRepository struct {
	db *sqlx.DB
}

// NewSpecRepository creates a new specification version repository
func NewSpecRepository(db *sqlx.DB) ports.SpecRepository {
	return &specRepository{db: db}
}

// EnsureSchema creates the persistence tables if they do not exist
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS spec_versions (
			id           TEXT PRIMARY KEY,
			seq          INTEGER NOT NULL,
			rationale    TEXT NOT NULL,
			committed_at TIMESTAMPTZ NOT NULL,
			fingerprint  TEXT NOT NULL,
			ranges       JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS validation_results (
			id            TEXT PRIMARY KEY,
			dataset_id    TEXT NOT NULL,
			spec_version  TEXT NOT NULL,
			status        TEXT NOT NULL,
			pass_rate     DOUBLE PRECISION NOT NULL,
			total_strides INTEGER NOT NULL,
			valid_strides INTEGER NOT NULL,
			coverage      DOUBLE PRECISION NOT NULL,
			result        JSONB NOT NULL,
			finished_at   TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, schema := range schemas {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// SaveVersion inserts a committed version. Versions are immutable, so there
// is no update path; a duplicate id is an error.
func (r *specRepository) SaveVersion(ctx context.Context, v *rangespec.Version) error {
	rangesJSON, err := marshalRanges(v)
	if err != nil {
		return fmt.Errorf("failed to marshal ranges: %w", err)
	}

	query := `INSERT INTO spec_versions (
		id, seq, rationale, committed_at, fingerprint, ranges
	) VALUES (
		$1, $2, $3, $4, $5, $6
	)`

	_, err = r.db.ExecContext(ctx, query,
		v.ID.String(), v.Seq, v.Rationale, v.CommittedAt.Time(), string(v.Fingerprint), rangesJSON,
	)

	if err != nil {
		return fmt.Errorf("failed to save spec version: %w", err)
	}

	return nil
}

// GetVersion retrieves one committed version by its ID
func (r *specRepository) GetVersion(ctx context.Context, id core.VersionID) (*rangespec.Version, error) {
	query := `SELECT id, seq, rationale, committed_at, fingerprint, ranges
	FROM spec_versions WHERE id = $1`

	return r.scanVersion(r.db.QueryRowContext(ctx, query, id.String()))
}

// LatestVersion retrieves the highest-sequence committed version
func (r *specRepository) LatestVersion(ctx context.Context) (*rangespec.Version, error) {
	query := `SELECT id, seq, rationale, committed_at, fingerprint, ranges
	FROM spec_versions ORDER BY seq DESC LIMIT 1`

	return r.scanVersion(r.db.QueryRowContext(ctx, query))
}

// ListVersions retrieves committed versions newest-first with pagination
func (r *specRepository) ListVersions(ctx context.Context, limit, offset int) ([]*rangespec.Version, error) {
	query := `SELECT id, seq, rationale, committed_at, fingerprint, ranges
	FROM spec_versions ORDER BY seq DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query spec versions: %w", err)
	}
	defer rows.Close()

	var versions []*rangespec.Version
	for rows.Next() {
		v, err := r.scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}

	return versions, nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanVersion
type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *specRepository) scanVersion(row scanner) (*rangespec.Version, error) {
	var (
		id          string
		seq         int
		rationale   string
		committedAt time.Time
		fingerprint string
		rangesJSON  []byte
	)

	err := row.Scan(&id, &seq, &rationale, &committedAt, &fingerprint, &rangesJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("spec version: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan spec version: %w", err)
	}

	ranges, err := unmarshalRanges(rangesJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal ranges: %w", err)
	}

	return &rangespec.Version{
		ID:          core.VersionID(id),
		Seq:         seq,
		Rationale:   rationale,
		CommittedAt: core.NewTimestamp(committedAt),
		Ranges:      ranges,
		Fingerprint: core.SpecFingerprint(fingerprint),
	}, nil
}

// marshalRanges serializes the range map as a JSON array in key order.
// Struct-keyed maps do not round-trip through encoding/json, and the array
// form keeps the stored JSONB deterministic for a given version.
func marshalRanges(v *rangespec.Version) ([]byte, error) {
	ordered := make([]rangespec.ValidationRange, 0, len(v.Ranges))
	for _, k := range v.SortedKeys() {
		ordered = append(ordered, v.Ranges[k])
	}
	return json.Marshal(ordered)
}

func unmarshalRanges(data []byte) (map[rangespec.Key]rangespec.ValidationRange, error) {
	var ordered []rangespec.ValidationRange
	if err := json.Unmarshal(data, &ordered); err != nil {
		return nil, err
	}
	ranges := make(map[rangespec.Key]rangespec.ValidationRange, len(ordered))
	for _, r := range ordered {
		ranges[r.Key] = r
	}
	return ranges, nil
}
