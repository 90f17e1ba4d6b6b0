package tables

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"gaitspec/domain/core"
	"gaitspec/domain/gait"
	"gaitspec/internal"
	"gaitspec/ports"
)

// Structural columns every phase-profile table must carry. Variable
// columns follow the <joint>_<motion>_angle_<side>_rad convention.
const (
	ColumnSubject = "subject"
	ColumnTask    = "task"
	ColumnStep    = "step"
	ColumnPhase   = "phase"
)

// Structural columns of a raw signal table. A header carrying the ipsilateral
// force column is read as time series for segmentation instead of a
// phase-profile table.
const (
	ColumnForceIpsi   = "force_ipsi_n"
	ColumnForceContra = "force_contra_n"
	ColumnSampleRate  = "sample_rate_hz"
)

// Reader loads persisted phase-profile tables from Excel or CSV files.
// All data is materialized in memory before validation starts; nothing
// reads from disk inside the classification hot path.
type Reader struct {
	points int
	logger *internal.Logger
}

// NewReader creates a reader expecting the given phase grid size
func NewReader(points int, logger *internal.Logger) *Reader {
	if points == 0 {
		points = gait.DefaultPhasePoints
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Reader{points: points, logger: logger.Named("tables")}
}

// ReadDataset reads a phase-profile table into a Dataset
func (r *Reader) ReadDataset(ctx context.Context, path string) (*ports.Dataset, error) {
	rows, err := r.readRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, core.NewDataFormatError(
			fmt.Sprintf("%s: need a header row and at least one data row", path),
			"check the export")
	}

	header := rows[0]
	if isSignalHeader(header) {
		return r.buildSignalDataset(path, header, rows[1:])
	}

	cols, varCols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	type groupKey struct {
		subject string
		task    string
		step    int
	}
	type row struct {
		phase  float64
		values map[gait.Variable]float64
	}
	groups := make(map[groupKey][]row)

	for i, record := range rows[1:] {
		line := i + 2
		if len(record) < len(header) {
			// Trailing short rows happen in hand-edited sheets; pad so
			// column lookups stay in bounds.
			padded := make([]string, len(header))
			copy(padded, record)
			record = padded
		}

		task, err := gait.ParseTask(record[cols[ColumnTask]])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		step, err := strconv.Atoi(strings.TrimSpace(record[cols[ColumnStep]]))
		if err != nil {
			return nil, core.NewDataFormatError(
				fmt.Sprintf("%s line %d: step %q is not an integer", path, line, record[cols[ColumnStep]]),
				"check the cycle identifier column")
		}
		phase, err := parseFloat(record[cols[ColumnPhase]])
		if err != nil {
			return nil, core.NewDataFormatError(
				fmt.Sprintf("%s line %d: phase %q is not numeric", path, line, record[cols[ColumnPhase]]),
				"check the phase column")
		}

		values := make(map[gait.Variable]float64, len(varCols))
		for variable, idx := range varCols {
			v, err := parseFloat(record[idx])
			if err != nil {
				return nil, core.NewDataFormatError(
					fmt.Sprintf("%s line %d: %s value %q is not numeric", path, line, variable, record[idx]),
					"check data collection")
			}
			values[variable] = v
		}

		k := groupKey{subject: record[cols[ColumnSubject]], task: string(task), step: step}
		groups[k] = append(groups[k], row{phase: phase, values: values})
	}

	present := make([]gait.Variable, 0, len(varCols))
	for variable := range varCols {
		present = append(present, variable)
	}
	sort.Slice(present, func(i, j int) bool { return present[i] < present[j] })

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].subject != keys[j].subject {
			return keys[i].subject < keys[j].subject
		}
		if keys[i].task != keys[j].task {
			return keys[i].task < keys[j].task
		}
		return keys[i].step < keys[j].step
	})

	ds := &ports.Dataset{
		ID:               core.DatasetID(filepath.Base(path)),
		PresentVariables: present,
	}
	for _, k := range keys {
		rows := groups[k]
		sort.Slice(rows, func(i, j int) bool { return rows[i].phase < rows[j].phase })

		values := make(map[gait.Variable][]float64, len(varCols))
		for _, rw := range rows {
			for variable, v := range rw.values {
				values[variable] = append(values[variable], v)
			}
		}
		profile, err := gait.NewPhaseProfile(
			core.SubjectID(k.subject), gait.Task(k.task), k.step, r.points, values)
		if err != nil {
			return nil, err
		}
		ds.Profiles = append(ds.Profiles, profile)
	}

	r.logger.Info("loaded %d phase profile(s), %d variable(s) from %s", len(ds.Profiles), len(present), path)
	return ds, nil
}

func isSignalHeader(header []string) bool {
	for _, name := range header {
		if strings.TrimSpace(name) == ColumnForceIpsi {
			return true
		}
	}
	return false
}

// buildSignalDataset reads a raw time-series table into per subject/task
// SignalPairs for the segmentation path. Rows must be in temporal order
// within each subject/task group.
func (r *Reader) buildSignalDataset(path string, header []string, records [][]string) (*ports.Dataset, error) {
	cols, varCols, err := resolveSignalColumns(header)
	if err != nil {
		return nil, err
	}

	type groupKey struct {
		subject string
		task    string
	}
	pairs := make(map[groupKey]*gait.SignalPair)
	var order []groupKey

	for i, record := range records {
		line := i + 2
		if len(record) < len(header) {
			padded := make([]string, len(header))
			copy(padded, record)
			record = padded
		}

		task, err := gait.ParseTask(record[cols[ColumnTask]])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		rate, err := parseFloat(record[cols[ColumnSampleRate]])
		if err != nil || rate <= 0 {
			return nil, core.NewDataFormatError(
				fmt.Sprintf("%s line %d: sample rate %q is not a positive number", path, line, record[cols[ColumnSampleRate]]),
				"check the sample_rate_hz column")
		}
		forceIpsi, err := parseFloat(record[cols[ColumnForceIpsi]])
		if err != nil {
			return nil, core.NewDataFormatError(
				fmt.Sprintf("%s line %d: %s value %q is not numeric", path, line, ColumnForceIpsi, record[cols[ColumnForceIpsi]]),
				"check the force channel")
		}
		var forceContra float64
		if idx, ok := cols[ColumnForceContra]; ok {
			forceContra, err = parseFloat(record[idx])
			if err != nil {
				return nil, core.NewDataFormatError(
					fmt.Sprintf("%s line %d: %s value %q is not numeric", path, line, ColumnForceContra, record[idx]),
					"check the force channel")
			}
		}

		k := groupKey{subject: record[cols[ColumnSubject]], task: string(task)}
		pair, ok := pairs[k]
		if !ok {
			pair = &gait.SignalPair{
				Subject:    core.SubjectID(k.subject),
				Task:       task,
				SampleRate: rate,
				Variables:  make(map[gait.Variable][]float64, len(varCols)),
			}
			pairs[k] = pair
			order = append(order, k)
		}

		pair.ForceIpsi = append(pair.ForceIpsi, forceIpsi)
		if _, ok := cols[ColumnForceContra]; ok {
			pair.ForceContra = append(pair.ForceContra, forceContra)
		}
		for variable, idx := range varCols {
			v, err := parseFloat(record[idx])
			if err != nil {
				return nil, core.NewDataFormatError(
					fmt.Sprintf("%s line %d: %s value %q is not numeric", path, line, variable, record[idx]),
					"check data collection")
			}
			pair.Variables[variable] = append(pair.Variables[variable], v)
		}
	}

	if len(pairs) == 0 {
		return nil, core.NewDataFormatError(
			fmt.Sprintf("%s: no signal rows found", path), "check the export")
	}

	present := make([]gait.Variable, 0, len(varCols))
	for variable := range varCols {
		present = append(present, variable)
	}
	sort.Slice(present, func(i, j int) bool { return present[i] < present[j] })

	ds := &ports.Dataset{
		ID:               core.DatasetID(filepath.Base(path)),
		PresentVariables: present,
	}
	for _, k := range order {
		ds.Signals = append(ds.Signals, pairs[k])
	}

	r.logger.Info("loaded %d signal group(s), %d variable(s) from %s", len(ds.Signals), len(present), path)
	return ds, nil
}

// resolveSignalColumns maps a signal table header to column indices. The
// contralateral force column is optional.
func resolveSignalColumns(header []string) (map[string]int, map[gait.Variable]int, error) {
	cols := make(map[string]int)
	varCols := make(map[gait.Variable]int)
	for i, name := range header {
		name = strings.TrimSpace(name)
		switch name {
		case ColumnSubject, ColumnTask, ColumnSampleRate, ColumnForceIpsi, ColumnForceContra:
			cols[name] = i
		default:
			if gait.ValidVariableName(name) {
				varCols[gait.Variable(name)] = i
			}
		}
	}
	for _, required := range []string{ColumnSubject, ColumnTask, ColumnSampleRate, ColumnForceIpsi} {
		if _, ok := cols[required]; !ok {
			return nil, nil, core.NewMissingColumnError(required)
		}
	}
	if len(varCols) == 0 {
		return nil, nil, core.NewDataFormatError(
			"no biomechanical variable columns found",
			"variable columns must follow <joint>_<motion>_angle_<side>_rad naming")
	}
	return cols, varCols, nil
}

// readRows dispatches on file extension, the teacher pattern for mixed
// xlsx/csv ingestion
func (r *Reader) readRows(path string) ([][]string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, core.NewDataFormatError(fmt.Sprintf("file not found: %s", path), "check DATA_FILE")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return r.readCSV(path)
	case ".xlsx":
		return r.readExcel(path)
	default:
		return nil, core.NewDataFormatError(
			fmt.Sprintf("unsupported file type %q", filepath.Ext(path)),
			"use .xlsx or .csv")
	}
}

func (r *Reader) readExcel(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, fmt.Errorf("failed to read Sheet1: %w", err)
	}
	return rows, nil
}

func (r *Reader) readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return rows, nil
}

// resolveColumns maps the header to structural and variable column indices
func resolveColumns(header []string) (map[string]int, map[gait.Variable]int, error) {
	cols := make(map[string]int)
	varCols := make(map[gait.Variable]int)
	for i, name := range header {
		name = strings.TrimSpace(name)
		switch name {
		case ColumnSubject, ColumnTask, ColumnStep, ColumnPhase:
			cols[name] = i
		default:
			if gait.ValidVariableName(name) {
				varCols[gait.Variable(name)] = i
			}
			// Unknown columns are tolerated and ignored.
		}
	}
	for _, required := range []string{ColumnSubject, ColumnTask, ColumnStep, ColumnPhase} {
		if _, ok := cols[required]; !ok {
			return nil, nil, core.NewMissingColumnError(required)
		}
	}
	if len(varCols) == 0 {
		return nil, nil, core.NewDataFormatError(
			"no biomechanical variable columns found",
			"variable columns must follow <joint>_<motion>_angle_<side>_rad naming")
	}
	return cols, varCols, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
