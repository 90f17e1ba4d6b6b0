package specstore

import (
	"context"
	"sync"

	"gaitspec/domain/core"
	"gaitspec/domain/gait"
	"gaitspec/domain/rangespec"
	"gaitspec/internal"
	"gaitspec/internal/errors"
	"gaitspec/ports"
)

// Store is the live, versioned range specification. It is the only mutable
// core state in the process. Reads never block each other; mutation happens
// exclusively through the stage -> preview -> commit protocol, and commits
// are serialized by the optimistic-concurrency basis check rather than by
// holding a lock across the whole staging session.
type Store struct {
	mu        sync.RWMutex
	live      *rangespec.Version
	history   []*rangespec.Version // oldest first, includes live
	supported []gait.Task
	repo      ports.SpecRepository // optional durable history
	logger    *internal.Logger
}

// New creates a store from an initial set of ranges, typically parsed from
// the seed specification document. The seed must already satisfy the
// coverage invariant.
func New(seed map[rangespec.Key]rangespec.ValidationRange, rationale string, repo ports.SpecRepository, logger *internal.Logger) (*Store, error) {
	supported := gait.SupportedTasks()
	if err := rangespec.CheckIntegrity(seed, supported); err != nil {
		return nil, err
	}

	v := &rangespec.Version{
		ID:          core.VersionID(core.NewID()),
		Seq:         1,
		Rationale:   rationale,
		CommittedAt: core.Now(),
		Ranges:      seed,
	}
	v.Fingerprint = v.ComputeFingerprint()

	if logger == nil {
		logger = internal.DefaultLogger
	}

	return &Store{
		live:      v,
		history:   []*rangespec.Version{v},
		supported: supported,
		repo:      repo,
		logger:    logger.Named("specstore"),
	}, nil
}

// Snapshot returns an immutable copy of the live version. Callers operate
// on the snapshot handle; a commit after the snapshot was taken does not
// affect it.
func (s *Store) Snapshot() *rangespec.Version {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyVersion(s.live)
}

// LiveVersion returns the id of the currently committed version
func (s *Store) LiveVersion() core.VersionID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live.ID
}

// GetRange looks up the live range for a (task, variable, phase) key
func (s *Store) GetRange(task gait.Task, variable gait.Variable, phase int) (rangespec.ValidationRange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.live.Lookup(task, variable, phase)
	if !ok {
		return rangespec.ValidationRange{}, core.ErrRangeNotFound
	}
	return r, nil
}

// Stage records a change set against a specific basis version. Staging
// never touches the live specification; validity of the staged content is
// checked at commit time so a bad batch is rejected as a whole.
func (s *Store) Stage(basis core.VersionID, changes []rangespec.Change) (*rangespec.ChangeSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.findVersion(basis); !ok {
		return nil, errors.NotFound("basis version " + basis.String())
	}

	return &rangespec.ChangeSet{
		StagingID: core.StagingID(core.NewID()),
		Basis:     basis,
		Changes:   changes,
		CreatedAt: core.Now(),
	}, nil
}

// Commit atomically applies a staged change set. It fails with
// ErrStaleStaging when the live version advanced past the staging basis,
// and with ErrSpecIntegrity when the result would violate range or
// coverage invariants. Either every change applies or none do.
func (s *Store) Commit(ctx context.Context, cs *rangespec.ChangeSet, rationale string) (*rangespec.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cs.Basis != s.live.ID {
		return nil, core.NewStaleStagingError(cs.Basis.String(), s.live.ID.String())
	}

	next := cs.Apply(s.live)
	if err := rangespec.CheckIntegrity(next, s.supported); err != nil {
		return nil, err
	}

	v := &rangespec.Version{
		ID:          core.VersionID(core.NewID()),
		Seq:         s.live.Seq + 1,
		Rationale:   rationale,
		CommittedAt: core.Now(),
		Ranges:      next,
	}
	v.Fingerprint = v.ComputeFingerprint()

	// Persist before advancing the live pointer so a storage failure
	// leaves the in-memory committed state untouched.
	if s.repo != nil {
		if err := s.repo.SaveVersion(ctx, v); err != nil {
			return nil, errors.DatabaseError("persisting spec version "+v.ID.String(), err)
		}
	}

	s.live = v
	s.history = append(s.history, v)
	s.logger.Info("committed spec version %s (seq %d, %d changes): %s", v.ID, v.Seq, len(cs.Changes), rationale)
	return copyVersion(v), nil
}

// Rollback commits a new version whose ranges equal an older version's.
// History is append-only; rolling back never rewrites it.
func (s *Store) Rollback(ctx context.Context, to core.VersionID, rationale string) (*rangespec.Version, error) {
	s.mu.RLock()
	target, ok := s.findVersion(to)
	basis := s.live.ID
	s.mu.RUnlock()
	if !ok {
		return nil, errors.NotFound("spec version " + to.String())
	}

	changes := make([]rangespec.Change, 0, len(target.Ranges))
	for _, k := range target.SortedKeys() {
		changes = append(changes, rangespec.Change{Op: rangespec.OpSet, Range: target.Ranges[k]})
	}
	// Entries added since the target version must go away too.
	for _, k := range s.Snapshot().SortedKeys() {
		if _, present := target.Ranges[k]; !present {
			changes = append(changes, rangespec.Change{Op: rangespec.OpDelete, Range: rangespec.ValidationRange{Key: k}})
		}
	}

	cs, err := s.Stage(basis, changes)
	if err != nil {
		return nil, err
	}
	return s.Commit(ctx, cs, rationale)
}

// Versions returns copies of all committed versions, oldest first
func (s *Store) Versions() []*rangespec.Version {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*rangespec.Version, len(s.history))
	for i, v := range s.history {
		out[i] = copyVersion(v)
	}
	return out
}

// findVersion locates a version in history. Caller holds at least RLock.
func (s *Store) findVersion(id core.VersionID) (*rangespec.Version, bool) {
	for _, v := range s.history {
		if v.ID == id {
			return v, true
		}
	}
	return nil, false
}

func copyVersion(v *rangespec.Version) *rangespec.Version {
	ranges := make(map[rangespec.Key]rangespec.ValidationRange, len(v.Ranges))
	for k, r := range v.Ranges {
		ranges[k] = r
	}
	return &rangespec.Version{
		ID:          v.ID,
		Seq:         v.Seq,
		Rationale:   v.Rationale,
		CommittedAt: v.CommittedAt,
		Ranges:      ranges,
		Fingerprint: v.Fingerprint,
	}
}
