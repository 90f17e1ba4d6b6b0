package tuner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gaitspec/domain/core"
	"gaitspec/domain/gait"
	"gaitspec/domain/rangespec"
	"gaitspec/internal/resampler"
	"gaitspec/internal/segmenter"
	"gaitspec/internal/specstore"
	"gaitspec/internal/testkit"
	"gaitspec/internal/validator"
	"gaitspec/ports"
)

const kneeIpsi = gait.Variable("knee_flexion_angle_ipsi_rad")

func newTuner(t *testing.T, min, max float64) (*Tuner, *specstore.Store) {
	t.Helper()
	store, err := specstore.New(testkit.SeedRanges(min, max), "literature seed", nil, nil)
	require.NoError(t, err)

	val := validator.NewValidator(segmenter.NewSegmenter(0, nil), resampler.NewResampler(150), 4, nil)
	return NewTuner(store, val, 30, nil), store
}

func TestProposeManualStagesLiteratureRanges(t *testing.T) {
	tun, store := newTuner(t, -1, 1)

	cs, err := tun.ProposeManual([]ManualEdit{{
		Task:         gait.TaskLevelWalking,
		Variable:     kneeIpsi,
		PhasePercent: 50,
		Min:          -0.70,
		Max:          0.17,
		Citation:     "Winter 2009, Table 4.1",
		Confidence:   0.95,
	}})
	require.NoError(t, err)

	require.Len(t, cs.Changes, 1)
	assert.Equal(t, store.LiveVersion(), cs.Basis)
	assert.Equal(t, rangespec.ProvenanceLiterature, cs.Changes[0].Range.Provenance.Kind)
	assert.Equal(t, "Winter 2009, Table 4.1", cs.Changes[0].Range.Provenance.Citation)
}

func TestProposeManualRejectsInvertedBounds(t *testing.T) {
	tun, _ := newTuner(t, -1, 1)

	_, err := tun.ProposeManual([]ManualEdit{{
		Task:         gait.TaskLevelWalking,
		Variable:     kneeIpsi,
		PhasePercent: 50,
		Min:          0.5,
		Max:          -0.5,
	}})
	require.Error(t, err)
	assert.True(t, core.IsCommitRejection(err))
}

func TestProposeAutomatedStagesStatisticalRanges(t *testing.T) {
	tun, store := newTuner(t, -10, 10)

	profiles := testkit.NormalProfiles("SUB01", gait.TaskLevelWalking, kneeIpsi, 40, 150, 0.0, 1.0, 99)
	refs := testkit.ProfileDataset("ref-1", profiles)

	cs, err := tun.ProposeAutomated(context.Background(), []*ports.Dataset{refs}, MethodPercentile95)
	require.NoError(t, err)

	// One proposal per representative phase of the observed variable.
	require.Len(t, cs.Changes, len(gait.RepresentativePhases()))
	assert.Equal(t, store.LiveVersion(), cs.Basis)
	for _, change := range cs.Changes {
		assert.Equal(t, rangespec.ProvenanceStatistical, change.Range.Provenance.Kind)
		assert.Equal(t, string(MethodPercentile95), change.Range.Provenance.Method)
		assert.Equal(t, 40, change.Range.Provenance.SampleN)
		assert.Less(t, change.Range.Min, change.Range.Max)
	}
}

func TestProposeAutomatedEnforcesMinimumSample(t *testing.T) {
	tun, _ := newTuner(t, -10, 10)

	profiles := testkit.NormalProfiles("SUB01", gait.TaskLevelWalking, kneeIpsi, 10, 150, 0.0, 1.0, 99)
	refs := testkit.ProfileDataset("ref-small", profiles)

	_, err := tun.ProposeAutomated(context.Background(), []*ports.Dataset{refs}, MethodPercentile95)
	require.Error(t, err)
	assert.True(t, core.IsInsufficientDataError(err))
}

func TestPreviewImpactLeavesLiveSpecUntouched(t *testing.T) {
	tun, store := newTuner(t, -1, 1)
	before := store.Snapshot()

	// Widen the knee bounds at every representative phase so a 1.5 rad
	// holdout flips from failing to passing under the staged overlay.
	edits := make([]ManualEdit, 0, len(gait.RepresentativePhases()))
	for _, phase := range gait.RepresentativePhases() {
		edits = append(edits, ManualEdit{
			Task:         gait.TaskLevelWalking,
			Variable:     kneeIpsi,
			PhasePercent: phase,
			Min:          -2,
			Max:          2,
			Citation:     "pilot widening",
		})
	}
	cs, err := tun.ProposeManual(edits)
	require.NoError(t, err)

	holdout := testkit.ProfileDataset("holdout-1",
		testkit.ConstantProfiles("SUB01", gait.TaskLevelWalking, 5, 150,
			map[gait.Variable]float64{kneeIpsi: 1.5}))

	preview, err := tun.PreviewImpact(context.Background(), cs, []*ports.Dataset{holdout})
	require.NoError(t, err)

	require.Len(t, preview.Impact, 1)
	impact := preview.Impact[0]
	assert.Equal(t, 0.0, impact.PassRateBefore)
	assert.Equal(t, 100.0, impact.PassRateAfter)
	assert.Equal(t, 100.0, impact.Delta)

	after := store.Snapshot()
	assert.Equal(t, before.ID, after.ID, "preview must not advance the live version")
	assert.Equal(t, before.Fingerprint, after.Fingerprint)
}

func TestCommitRequiresRationale(t *testing.T) {
	tun, _ := newTuner(t, -1, 1)

	cs, err := tun.ProposeManual([]ManualEdit{{
		Task:         gait.TaskLevelWalking,
		Variable:     kneeIpsi,
		PhasePercent: 50,
		Min:          -2,
		Max:          2,
	}})
	require.NoError(t, err)

	_, err = tun.Commit(context.Background(), cs, "")
	require.Error(t, err)
}

func TestCommitAppliesStagedChanges(t *testing.T) {
	tun, store := newTuner(t, -1, 1)

	cs, err := tun.ProposeManual([]ManualEdit{{
		Task:         gait.TaskLevelWalking,
		Variable:     kneeIpsi,
		PhasePercent: 50,
		Min:          -2,
		Max:          2,
		Citation:     "follow-up study",
	}})
	require.NoError(t, err)

	v, err := tun.Commit(context.Background(), cs, "adopt follow-up bounds")
	require.NoError(t, err)
	assert.Equal(t, 2, v.Seq)

	r, err := store.GetRange(gait.TaskLevelWalking, kneeIpsi, 50)
	require.NoError(t, err)
	assert.Equal(t, -2.0, r.Min)
	assert.Equal(t, 2.0, r.Max)
}
