package specdoc

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gaitspec/domain/core"
	"gaitspec/domain/gait"
	"gaitspec/domain/rangespec"
	"gaitspec/ports"
)

// Loader reads the seed specification document: the literature-derived
// range table that becomes the first committed version.
type Loader struct{}

// NewLoader creates a seed document loader
func NewLoader() *Loader {
	return &Loader{}
}

// seedFile mirrors the YAML document layout
type seedFile struct {
	Rationale string      `yaml:"rationale"`
	Ranges    []seedEntry `yaml:"ranges"`
}

type seedEntry struct {
	Task         string  `yaml:"task"`
	Variable     string  `yaml:"variable"`
	PhasePercent int     `yaml:"phase_percent"`
	Min          float64 `yaml:"min"`
	Max          float64 `yaml:"max"`
	Citation     string  `yaml:"citation"`
	Confidence   float64 `yaml:"confidence"`
}

// LoadSeed parses the seed document from disk
func (l *Loader) LoadSeed(path string) (*ports.SeedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, core.NewDataFormatError(
			fmt.Sprintf("seed file %s is not valid YAML: %v", path, err),
			"check the document syntax")
	}
	if len(file.Ranges) == 0 {
		return nil, core.NewDataFormatError(
			fmt.Sprintf("seed file %s contains no ranges", path),
			"the seed must cover every supported task")
	}

	doc := &ports.SeedDocument{Rationale: file.Rationale}
	for _, e := range file.Ranges {
		doc.Ranges = append(doc.Ranges, ports.SeedRange{
			Task:         e.Task,
			Variable:     e.Variable,
			PhasePercent: e.PhasePercent,
			Min:          e.Min,
			Max:          e.Max,
			Citation:     e.Citation,
			Confidence:   e.Confidence,
		})
	}
	return doc, nil
}

// ToRanges converts a parsed seed document into the committed range map,
// validating each entry's task and variable naming on the way.
func ToRanges(doc *ports.SeedDocument) (map[rangespec.Key]rangespec.ValidationRange, error) {
	ranges := make(map[rangespec.Key]rangespec.ValidationRange, len(doc.Ranges))
	for _, e := range doc.Ranges {
		task, err := gait.ParseTask(e.Task)
		if err != nil {
			return nil, err
		}
		variable, err := gait.ParseVariable(e.Variable)
		if err != nil {
			return nil, core.NewSpecIntegrityError(err.Error())
		}

		r := rangespec.ValidationRange{
			Key: rangespec.Key{
				Task:         task,
				Variable:     variable,
				PhasePercent: e.PhasePercent,
			},
			Min: e.Min,
			Max: e.Max,
			Provenance: rangespec.Provenance{
				Kind:     rangespec.ProvenanceLiterature,
				Citation: e.Citation,
			},
			Confidence: e.Confidence,
		}
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := ranges[r.Key]; dup {
			return nil, core.NewSpecIntegrityError(fmt.Sprintf("duplicate seed entry %s", r.Key))
		}
		ranges[r.Key] = r
	}
	return ranges, nil
}
