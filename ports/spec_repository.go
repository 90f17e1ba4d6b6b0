package ports

import (
	"context"

	"gaitspec/domain/core"
	"gaitspec/domain/rangespec"
)

// SpecRepository persists committed specification versions for audit and
// rollback. The in-memory store is authoritative during a process lifetime;
// the repository is the durable history behind it.
type SpecRepository interface {
	SaveVersion(ctx context.Context, v *rangespec.Version) error
	GetVersion(ctx context.Context, id core.VersionID) (*rangespec.Version, error)
	LatestVersion(ctx context.Context) (*rangespec.Version, error)
	ListVersions(ctx context.Context, limit, offset int) ([]*rangespec.Version, error)
}
