package validator

import (
	"context"
	"testing"

	"gaitspec/domain/gait"
	"gaitspec/domain/rangespec"
	"gaitspec/domain/verdict"
	"gaitspec/internal/resampler"
	"gaitspec/internal/segmenter"
	"gaitspec/internal/testkit"
	"gaitspec/ports"
)

func newValidator() *Validator {
	return NewValidator(segmenter.NewSegmenter(0, nil), resampler.NewResampler(150), 4, nil)
}

func specWith(min, max float64) *rangespec.Version {
	return &rangespec.Version{ID: "v-test", Seq: 1, Ranges: testkit.SeedRanges(min, max)}
}

// fullCoverage holds one in-range value for every required variable
func fullCoverage(value float64) map[gait.Variable]float64 {
	values := make(map[gait.Variable]float64)
	for _, v := range gait.RequiredVariables() {
		values[v] = value
	}
	return values
}

func TestValidatePassRateAndWarningStatus(t *testing.T) {
	// 85 of 100 strides inside bounds: the dataset passes with warnings and
	// reports the exact pass rate.
	good := testkit.ConstantProfiles("SUB01", gait.TaskLevelWalking, 85, 150, fullCoverage(0.0))
	bad := testkit.ConstantProfiles("SUB02", gait.TaskLevelWalking, 15, 150, fullCoverage(10.0))
	ds := testkit.ProfileDataset("ds-mixed", append(good, bad...))

	result, err := newValidator().Validate(context.Background(), ds, specWith(-1, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.TotalStrides != 100 {
		t.Errorf("total strides = %d, want 100", result.TotalStrides)
	}
	if result.ValidStrides != 85 {
		t.Errorf("valid strides = %d, want 85", result.ValidStrides)
	}
	if result.PassRate != 85.0 {
		t.Errorf("pass rate = %v, want 85.0", result.PassRate)
	}
	if result.Status != verdict.StatusPassedWithWarnings {
		t.Errorf("status = %s, want %s", result.Status, verdict.StatusPassedWithWarnings)
	}
}

func TestValidateAllPassing(t *testing.T) {
	profiles := testkit.ConstantProfiles("SUB01", gait.TaskLevelWalking, 20, 150, fullCoverage(0.5))
	ds := testkit.ProfileDataset("ds-clean", profiles)

	result, err := newValidator().Validate(context.Background(), ds, specWith(-1, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != verdict.StatusPassed {
		t.Errorf("status = %s, want %s", result.Status, verdict.StatusPassed)
	}
	if result.PassRate != 100.0 {
		t.Errorf("pass rate = %v, want 100.0", result.PassRate)
	}
	if result.Coverage != 1.0 {
		t.Errorf("coverage = %v, want 1.0", result.Coverage)
	}
}

func TestValidateZeroValidStridesFails(t *testing.T) {
	profiles := testkit.ConstantProfiles("SUB01", gait.TaskLevelWalking, 10, 150, fullCoverage(10.0))
	ds := testkit.ProfileDataset("ds-hopeless", profiles)

	result, err := newValidator().Validate(context.Background(), ds, specWith(-1, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Status != verdict.StatusFailed {
		t.Errorf("status = %s, want %s", result.Status, verdict.StatusFailed)
	}
	if result.ValidStrides != 0 {
		t.Errorf("valid strides = %d, want 0", result.ValidStrides)
	}
}

func TestValidateWrongPhaseLengthIsFatal(t *testing.T) {
	profile, err := gait.NewPhaseProfile("SUB01", gait.TaskLevelWalking, 0, 100,
		map[gait.Variable][]float64{"knee_flexion_angle_ipsi_rad": make([]float64, 100)})
	if err != nil {
		t.Fatalf("build profile: %v", err)
	}
	ds := testkit.ProfileDataset("ds-short", []*gait.PhaseProfile{profile})

	if _, err := newValidator().Validate(context.Background(), ds, specWith(-1, 1)); err == nil {
		t.Fatal("expected structural error for 100-point profile on a 150-point grid")
	}
}

func TestValidateSignalGroupFailureBecomesSkip(t *testing.T) {
	cfg := testkit.DefaultGaitConfig()
	cfg.Cycles = 5
	good := testkit.NewGaitGenerator(cfg).GenerateSignalPair()

	// A second group whose force channel never leaves swing: it yields no
	// strides and must degrade to a skip record, not a dataset failure.
	dead := &gait.SignalPair{
		Subject:    "SUB02",
		Task:       gait.TaskLevelWalking,
		SampleRate: 100,
		ForceIpsi:  make([]float64, 400),
	}
	ds := testkit.SignalDataset("ds-partial", good, dead)

	result, err := newValidator().Validate(context.Background(), ds, specWith(-2, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.TotalStrides != 5 {
		t.Errorf("total strides = %d, want 5 from the healthy group", result.TotalStrides)
	}
	if len(result.Skips) != 1 {
		t.Fatalf("skip records = %d, want 1", len(result.Skips))
	}
	if result.Skips[0].Subject != "SUB02" {
		t.Errorf("skip subject = %s, want SUB02", result.Skips[0].Subject)
	}
	if result.Status != verdict.StatusPassedWithWarnings {
		t.Errorf("status = %s, want %s", result.Status, verdict.StatusPassedWithWarnings)
	}
}

func TestValidateDeterministicAcrossRuns(t *testing.T) {
	cfg := testkit.DefaultGaitConfig()
	cfg.Cycles = 8
	ds := testkit.SignalDataset("ds-repeat", testkit.NewGaitGenerator(cfg).GenerateSignalPair())
	spec := specWith(-2, 2)
	v := newValidator()

	a, err := v.Validate(context.Background(), ds, spec)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := v.Validate(context.Background(), ds, spec)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if a.PassRate != b.PassRate || a.TotalStrides != b.TotalStrides || a.Status != b.Status {
		t.Fatalf("aggregate differs between identical runs: %+v vs %+v", a, b)
	}
	for i := range a.Verdicts {
		if a.Verdicts[i].CycleIndex != b.Verdicts[i].CycleIndex ||
			a.Verdicts[i].Valid != b.Verdicts[i].Valid {
			t.Fatalf("verdict %d differs between identical runs", i)
		}
	}
}

func TestValidateBatchKeepsInputOrder(t *testing.T) {
	dsA := testkit.ProfileDataset("ds-a",
		testkit.ConstantProfiles("SUB01", gait.TaskLevelWalking, 5, 150, fullCoverage(0.0)))
	dsB := testkit.ProfileDataset("ds-b",
		testkit.ConstantProfiles("SUB02", gait.TaskRun, 5, 150, fullCoverage(0.5)))

	results, err := newValidator().ValidateBatch(context.Background(),
		[]*ports.Dataset{dsA, dsB}, specWith(-1, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].DatasetID != "ds-a" || results[1].DatasetID != "ds-b" {
		t.Errorf("results out of input order: %s, %s", results[0].DatasetID, results[1].DatasetID)
	}
}
