package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	ErrNotFound      = errors.New("resource not found")
	ErrRangeNotFound = fmt.Errorf("%w: validation range", ErrNotFound)

	// ErrDataFormat covers missing required columns, wrong phase-array
	// lengths and non-numeric values. Fatal for the affected dataset.
	ErrDataFormat = errors.New("data format invalid")

	// ErrInsufficientData means zero strides survived segmentation and
	// outlier filtering for one subject-task group. Sibling groups continue.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrInsufficientSample means a reference distribution is below the
	// minimum sample size required for statistical range estimation.
	ErrInsufficientSample = errors.New("insufficient sample size")

	// ErrUnknownTask is raised when a task name is outside the supported
	// task enumeration. Fatal for the single stride or group only.
	ErrUnknownTask = errors.New("unknown task")

	// ErrSpecIntegrity rejects a commit that would leave the specification
	// inconsistent (min >= max, or coverage gaps). Live spec is unchanged.
	ErrSpecIntegrity = errors.New("specification integrity violation")

	// ErrStaleStaging rejects a commit staged against a version that is no
	// longer live. Caller must re-stage against the current version.
	ErrStaleStaging = errors.New("stale staging")
)

// Error constructors with offending-identifier context and remediation hints

func NewDataFormatError(detail, hint string) error {
	return fmt.Errorf("%w: %s (hint: %s)", ErrDataFormat, detail, hint)
}

func NewMissingColumnError(column string) error {
	return NewDataFormatError(
		fmt.Sprintf("required column %q absent", column),
		"check data collection export settings")
}

func NewPhaseLengthError(subject, task string, cycle int, got, want int) error {
	return NewDataFormatError(
		fmt.Sprintf("subject %s task %s cycle %d: phase array length %d, expected %d", subject, task, cycle, got, want),
		"re-run phase resampling on the source signal")
}

func NewInsufficientDataError(subject, task string) error {
	return fmt.Errorf("%w: no strides survived filtering for subject %s task %s (hint: check data collection)", ErrInsufficientData, subject, task)
}

func NewInsufficientSampleError(task, variable string, phase, got, min int) error {
	return fmt.Errorf("%w: %d values for %s/%s at phase %d%%, need at least %d (hint: add reference cycles)", ErrInsufficientSample, got, task, variable, phase, min)
}

func NewUnknownTaskError(task string) error {
	return fmt.Errorf("%w: %q (hint: supported tasks are fixed; map the task name before validation)", ErrUnknownTask, task)
}

func NewSpecIntegrityError(detail string) error {
	return fmt.Errorf("%w: %s (hint: range may be too strict or incomplete)", ErrSpecIntegrity, detail)
}

func NewStaleStagingError(basis, live string) error {
	return fmt.Errorf("%w: staged against version %s but live version is %s (hint: re-stage against the current version)", ErrStaleStaging, basis, live)
}

// Error checking helpers

func IsDataFormatError(err error) bool {
	return errors.Is(err, ErrDataFormat)
}

func IsInsufficientDataError(err error) bool {
	return errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrInsufficientSample)
}

func IsCommitRejection(err error) bool {
	return errors.Is(err, ErrSpecIntegrity) || errors.Is(err, ErrStaleStaging)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
