package specstore

import (
	"context"
	"errors"
	"testing"

	"gaitspec/domain/core"
	"gaitspec/domain/gait"
	"gaitspec/domain/rangespec"
	"gaitspec/internal/testkit"
	"gaitspec/ports"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(testkit.SeedRanges(-1, 1), "literature seed", nil, nil)
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return s
}

func setChange(min, max float64) rangespec.Change {
	k := rangespec.Key{
		Task:         gait.TaskLevelWalking,
		Variable:     "knee_flexion_angle_ipsi_rad",
		PhasePercent: 50,
	}
	return rangespec.Change{
		Op:    rangespec.OpSet,
		Range: rangespec.ValidationRange{Key: k, Min: min, Max: max},
	}
}

func TestCommitAdvancesVersion(t *testing.T) {
	s := newStore(t)
	before := s.Snapshot()

	cs, err := s.Stage(s.LiveVersion(), []rangespec.Change{setChange(-2, 2)})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	v, err := s.Commit(context.Background(), cs, "widen knee range")
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	if v.Seq != before.Seq+1 {
		t.Errorf("committed seq = %d, want %d", v.Seq, before.Seq+1)
	}
	r, err := s.GetRange(gait.TaskLevelWalking, "knee_flexion_angle_ipsi_rad", 50)
	if err != nil {
		t.Fatalf("get range: %v", err)
	}
	if r.Min != -2 || r.Max != 2 {
		t.Errorf("live range = [%v, %v], want [-2, 2]", r.Min, r.Max)
	}
	if v.Fingerprint == before.Fingerprint {
		t.Error("fingerprint unchanged after content change")
	}
}

func TestStaleStagingRejected(t *testing.T) {
	s := newStore(t)
	basis := s.LiveVersion()

	first, err := s.Stage(basis, []rangespec.Change{setChange(-2, 2)})
	if err != nil {
		t.Fatalf("stage first: %v", err)
	}
	second, err := s.Stage(basis, []rangespec.Change{setChange(-3, 3)})
	if err != nil {
		t.Fatalf("stage second: %v", err)
	}

	if _, err := s.Commit(context.Background(), first, "first commit"); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	_, err = s.Commit(context.Background(), second, "second commit")
	if err == nil {
		t.Fatal("commit against superseded basis succeeded")
	}
	if !errors.Is(err, core.ErrStaleStaging) {
		t.Errorf("expected stale staging error, got %v", err)
	}
}

func TestCommitIsAtomicOnIntegrityFailure(t *testing.T) {
	s := newStore(t)
	before := s.Snapshot()

	// One acceptable change batched with one inverted range: the whole
	// change set must be rejected and the live version left untouched.
	cs, err := s.Stage(s.LiveVersion(), []rangespec.Change{
		setChange(-2, 2),
		{Op: rangespec.OpSet, Range: rangespec.ValidationRange{
			Key: rangespec.Key{
				Task:         gait.TaskRun,
				Variable:     "hip_flexion_angle_ipsi_rad",
				PhasePercent: 25,
			},
			Min: 1.0,
			Max: -1.0,
		}},
	})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}

	_, err = s.Commit(context.Background(), cs, "mixed batch")
	if err == nil {
		t.Fatal("integrity-violating commit succeeded")
	}
	if !core.IsCommitRejection(err) {
		t.Errorf("expected commit rejection, got %v", err)
	}

	after := s.Snapshot()
	if after.ID != before.ID || after.Fingerprint != before.Fingerprint {
		t.Error("live version changed after rejected commit")
	}
}

func TestCommitRejectsCoverageGap(t *testing.T) {
	s := newStore(t)

	cs, err := s.Stage(s.LiveVersion(), []rangespec.Change{
		{Op: rangespec.OpDelete, Range: rangespec.ValidationRange{Key: rangespec.Key{
			Task:         gait.TaskLevelWalking,
			Variable:     "knee_flexion_angle_ipsi_rad",
			PhasePercent: 0,
		}}},
	})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}

	if _, err := s.Commit(context.Background(), cs, "drop required entry"); err == nil {
		t.Fatal("commit creating a coverage gap succeeded")
	}
}

func TestRollbackRestoresContent(t *testing.T) {
	s := newStore(t)
	v1 := s.Snapshot()

	cs, err := s.Stage(s.LiveVersion(), []rangespec.Change{setChange(-5, 5)})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if _, err := s.Commit(context.Background(), cs, "widen"); err != nil {
		t.Fatalf("commit: %v", err)
	}

	restored, err := s.Rollback(context.Background(), v1.ID, "revert widening")
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if restored.Seq != v1.Seq+2 {
		t.Errorf("rollback seq = %d, want %d (history is append-only)", restored.Seq, v1.Seq+2)
	}
	if restored.Fingerprint != v1.Fingerprint {
		t.Error("rolled-back content does not match the target version")
	}
	if len(s.Versions()) != 3 {
		t.Errorf("history length = %d, want 3", len(s.Versions()))
	}
}

// failingRepo rejects every save to exercise the persist-before-advance path
type failingRepo struct{}

func (failingRepo) SaveVersion(ctx context.Context, v *rangespec.Version) error {
	return errors.New("disk full")
}
func (failingRepo) GetVersion(ctx context.Context, id core.VersionID) (*rangespec.Version, error) {
	return nil, core.ErrNotFound
}
func (failingRepo) LatestVersion(ctx context.Context) (*rangespec.Version, error) {
	return nil, core.ErrNotFound
}
func (failingRepo) ListVersions(ctx context.Context, limit, offset int) ([]*rangespec.Version, error) {
	return nil, nil
}

var _ ports.SpecRepository = failingRepo{}

func TestCommitLeavesLiveUntouchedWhenPersistFails(t *testing.T) {
	s, err := New(testkit.SeedRanges(-1, 1), "literature seed", failingRepo{}, nil)
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}
	before := s.Snapshot()

	cs, err := s.Stage(s.LiveVersion(), []rangespec.Change{setChange(-2, 2)})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}

	if _, err := s.Commit(context.Background(), cs, "widen"); err == nil {
		t.Fatal("commit succeeded despite persistence failure")
	}
	if s.Snapshot().ID != before.ID {
		t.Error("live version advanced although persistence failed")
	}
}
