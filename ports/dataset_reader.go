package ports

import (
	"context"

	"gaitspec/domain/core"
	"gaitspec/domain/gait"
)

// Dataset is a loaded, in-memory dataset handed to the validation engine.
// The loader owns the data; the engine treats it as read-only.
type Dataset struct {
	ID core.DatasetID
	// Profiles holds already phase-indexed strides (persisted tables).
	Profiles []*gait.PhaseProfile
	// Signals holds raw force/kinematic channels still to be segmented.
	Signals []*gait.SignalPair
	// PresentVariables is the variable set observed in the input columns,
	// used for coverage accounting.
	PresentVariables []gait.Variable
}

// DatasetReader loads persisted phase-profile tables and raw signals from
// external storage into memory before validation begins. There is no I/O
// inside the classification hot path.
type DatasetReader interface {
	ReadDataset(ctx context.Context, path string) (*Dataset, error)
}

// SpecDocumentLoader supplies the seed specification content with
// literature citations, used to create the initial committed version.
type SpecDocumentLoader interface {
	LoadSeed(path string) (*SeedDocument, error)
}

// SeedDocument is the parsed seed specification table
type SeedDocument struct {
	Rationale string
	Ranges    []SeedRange
}

// SeedRange is one seed entry before conversion to a ValidationRange
type SeedRange struct {
	Task         string
	Variable     string
	PhasePercent int
	Min          float64
	Max          float64
	Citation     string
	Confidence   float64
}
