package gait

import (
	"testing"

	"gaitspec/domain/core"
)

func TestNewPhaseProfileEnforcesLength(t *testing.T) {
	values := map[Variable][]float64{
		"knee_flexion_angle_ipsi_rad": make([]float64, 149),
	}

	_, err := NewPhaseProfile("SUB01", TaskLevelWalking, 0, 150, values)
	if err == nil {
		t.Fatal("expected error for 149-point series against a 150-point grid")
	}
	if !core.IsDataFormatError(err) {
		t.Errorf("expected data format error, got %v", err)
	}
}

func TestValueAtPhaseBoundaries(t *testing.T) {
	series := make([]float64, 150)
	for i := range series {
		series[i] = float64(i)
	}
	profile, err := NewPhaseProfile("SUB01", TaskLevelWalking, 0, 150,
		map[Variable][]float64{"knee_flexion_angle_ipsi_rad": series})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v0, ok := profile.ValueAtPhase("knee_flexion_angle_ipsi_rad", 0)
	if !ok || v0 != series[0] {
		t.Errorf("phase 0 = %v, want first sample %v", v0, series[0])
	}
	v100, ok := profile.ValueAtPhase("knee_flexion_angle_ipsi_rad", 100)
	if !ok || v100 != series[149] {
		t.Errorf("phase 100 = %v, want last sample %v", v100, series[149])
	}
}

func TestValueAtPhaseDeterministic(t *testing.T) {
	series := make([]float64, 150)
	for i := range series {
		series[i] = float64(i) * 0.01
	}
	profile, _ := NewPhaseProfile("SUB01", TaskLevelWalking, 0, 150,
		map[Variable][]float64{"hip_flexion_angle_ipsi_rad": series})

	for _, phase := range RepresentativePhases() {
		a, okA := profile.ValueAtPhase("hip_flexion_angle_ipsi_rad", phase)
		b, okB := profile.ValueAtPhase("hip_flexion_angle_ipsi_rad", phase)
		if !okA || !okB || a != b {
			t.Errorf("phase %d: repeated lookup differs: %v vs %v", phase, a, b)
		}
	}
}

func TestParseTaskRejectsUnknown(t *testing.T) {
	if _, err := ParseTask("jogging"); err == nil {
		t.Error("expected error for task outside the supported set")
	}
	for _, task := range SupportedTasks() {
		if _, err := ParseTask(string(task)); err != nil {
			t.Errorf("supported task %s rejected: %v", task, err)
		}
	}
}

func TestVariableNaming(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"knee_flexion_angle_ipsi_rad", true},
		{"ankle_flexion_angle_contra_rad", true},
		{"knee_flexion_angle_left_rad", false},
		{"Knee_flexion_angle_ipsi_rad", false},
		{"knee_flexion_ipsi_rad", false},
		{"knee_flexion_angle_ipsi_deg", false},
	}
	for _, c := range cases {
		if got := ValidVariableName(c.name); got != c.valid {
			t.Errorf("ValidVariableName(%q) = %v, want %v", c.name, got, c.valid)
		}
	}
}
