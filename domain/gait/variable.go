package gait

import (
	"fmt"
	"regexp"
)

// Variable is a biomechanical variable name following the
// <joint>_<motion>_angle_<side>_rad convention, case-sensitive.
type Variable string

// String returns the variable name
func (v Variable) String() string { return string(v) }

var variablePattern = regexp.MustCompile(`^[a-z]+_[a-z]+_angle_(ipsi|contra)_rad$`)

// ValidVariableName reports whether a column name follows the
// <joint>_<motion>_angle_<side>_rad convention.
func ValidVariableName(name string) bool {
	return variablePattern.MatchString(name)
}

// ParseVariable validates a variable name against the naming convention
func ParseVariable(name string) (Variable, error) {
	if !ValidVariableName(name) {
		return "", fmt.Errorf("variable %q does not follow <joint>_<motion>_angle_<side>_rad naming", name)
	}
	return Variable(name), nil
}

// RequiredVariables is the variable set every certified dataset must carry.
// Coverage is reported as the fraction of this set present in the input.
func RequiredVariables() []Variable {
	return []Variable{
		"knee_flexion_angle_ipsi_rad",
		"knee_flexion_angle_contra_rad",
		"hip_flexion_angle_ipsi_rad",
		"hip_flexion_angle_contra_rad",
		"ankle_flexion_angle_ipsi_rad",
		"ankle_flexion_angle_contra_rad",
	}
}

// RepresentativePhases are the phase percentages checked during stride
// classification. Checking only these, not all interpolated points, is a
// deliberate precision/performance trade-off.
func RepresentativePhases() []int {
	return []int{0, 25, 50, 75}
}
