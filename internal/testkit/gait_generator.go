package testkit

import (
	"fmt"
	"math"
	"math/rand"

	"gaitspec/domain/core"
	"gaitspec/domain/gait"
	"gaitspec/domain/rangespec"
	"gaitspec/ports"
)

// GaitGeneratorConfig configures the synthetic gait signal generator
type GaitGeneratorConfig struct {
	Subject      core.SubjectID
	Task         gait.Task
	SampleRate   float64 // Hz
	Cycles       int     // complete strides to produce
	CycleSamples int     // nominal samples per stride
	StanceShare  float64 // fraction of the cycle spent in stance
	ForceAmpN    float64 // vertical force plateau during stance
	NoiseStd     float64 // gaussian noise on kinematic channels
	Seed         int64
	// OutlierCycles maps cycle index to a duration multiplier, used to
	// inject cadence-break artifacts the segmenter should reject.
	OutlierCycles map[int]float64
}

// DefaultGaitConfig returns a clean level-walking trial
func DefaultGaitConfig() GaitGeneratorConfig {
	return GaitGeneratorConfig{
		Subject:      "SUB01",
		Task:         gait.TaskLevelWalking,
		SampleRate:   100.0,
		Cycles:       10,
		CycleSamples: 110, // ~1.1s stride at 100Hz
		StanceShare:  0.6,
		ForceAmpN:    700.0,
		NoiseStd:     0.01,
		Seed:         42,
	}
}

// GaitGenerator produces deterministic synthetic gait trials: a vertical
// contact-force channel with clean stance/swing transitions, plus sinusoidal
// kinematic channels for every required variable.
type GaitGenerator struct {
	cfg GaitGeneratorConfig
	rng *rand.Rand
}

// NewGaitGenerator creates a generator; the same config always produces the
// same signals.
func NewGaitGenerator(cfg GaitGeneratorConfig) *GaitGenerator {
	return &GaitGenerator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// GenerateSignalPair builds one subject/task trial. The force channel opens
// with a short swing lead-in so the first stance onset registers as a heel
// strike, and carries Cycles+1 stance onsets so exactly Cycles complete
// strides fall between consecutive strikes.
func (g *GaitGenerator) GenerateSignalPair() *gait.SignalPair {
	cfg := g.cfg

	var force []float64
	var starts []int

	// Lead-in swing.
	for i := 0; i < cfg.CycleSamples/4; i++ {
		force = append(force, 0)
	}

	for c := 0; c <= cfg.Cycles; c++ {
		samples := cfg.CycleSamples
		if mult, ok := cfg.OutlierCycles[c]; ok {
			samples = int(float64(cfg.CycleSamples) * mult)
		}
		starts = append(starts, len(force))

		stance := int(float64(samples) * cfg.StanceShare)
		for i := 0; i < samples; i++ {
			if i < stance {
				force = append(force, cfg.ForceAmpN)
			} else {
				force = append(force, 0)
			}
		}
	}

	total := len(force)
	variables := make(map[gait.Variable][]float64, len(gait.RequiredVariables()))
	for vi, variable := range gait.RequiredVariables() {
		series := make([]float64, total)
		// Each variable gets its own amplitude and phase offset so the
		// channels are distinguishable in assertions.
		amp := 0.3 + 0.1*float64(vi)
		offset := float64(vi) * math.Pi / 6
		for c, start := range starts {
			samples := cfg.CycleSamples
			if mult, ok := cfg.OutlierCycles[c]; ok {
				samples = int(float64(cfg.CycleSamples) * mult)
			}
			for i := 0; i < samples && start+i < total; i++ {
				t := float64(i) / float64(samples)
				series[start+i] = amp*math.Sin(2*math.Pi*t+offset) + g.rng.NormFloat64()*cfg.NoiseStd
			}
		}
		variables[variable] = series
	}

	// Contralateral force is the ipsilateral channel shifted half a cycle;
	// the segmenter only reads the ipsilateral side.
	contra := make([]float64, total)
	shift := cfg.CycleSamples / 2
	for i := range force {
		contra[i] = force[(i+shift)%total]
	}

	return &gait.SignalPair{
		Subject:     cfg.Subject,
		Task:        cfg.Task,
		SampleRate:  cfg.SampleRate,
		ForceIpsi:   force,
		ForceContra: contra,
		Variables:   variables,
	}
}

// ConstantProfiles builds n phase profiles whose variables hold constant
// values, handy for exercising classification bounds exactly.
func ConstantProfiles(subject core.SubjectID, task gait.Task, n, points int, values map[gait.Variable]float64) []*gait.PhaseProfile {
	profiles := make([]*gait.PhaseProfile, 0, n)
	for c := 0; c < n; c++ {
		series := make(map[gait.Variable][]float64, len(values))
		for v, value := range values {
			s := make([]float64, points)
			for i := range s {
				s[i] = value
			}
			series[v] = s
		}
		p, err := gait.NewPhaseProfile(subject, task, c, points, series)
		if err != nil {
			panic(fmt.Sprintf("testkit: invalid constant profile: %v", err))
		}
		profiles = append(profiles, p)
	}
	return profiles
}

// NormalProfiles builds n flat profiles whose per-cycle level is drawn from
// N(mean, std), so the cross-cycle sample at any phase follows that normal.
func NormalProfiles(subject core.SubjectID, task gait.Task, variable gait.Variable, n, points int, mean, std float64, seed int64) []*gait.PhaseProfile {
	rng := rand.New(rand.NewSource(seed))
	profiles := make([]*gait.PhaseProfile, 0, n)
	for c := 0; c < n; c++ {
		level := mean + rng.NormFloat64()*std
		s := make([]float64, points)
		for i := range s {
			s[i] = level
		}
		p, err := gait.NewPhaseProfile(subject, task, c, points,
			map[gait.Variable][]float64{variable: s})
		if err != nil {
			panic(fmt.Sprintf("testkit: invalid normal profile: %v", err))
		}
		profiles = append(profiles, p)
	}
	return profiles
}

// ProfileDataset wraps profiles as a loaded dataset
func ProfileDataset(id core.DatasetID, profiles []*gait.PhaseProfile) *ports.Dataset {
	seen := make(map[gait.Variable]bool)
	var present []gait.Variable
	for _, p := range profiles {
		for _, v := range p.Variables() {
			if !seen[v] {
				seen[v] = true
				present = append(present, v)
			}
		}
	}
	return &ports.Dataset{ID: id, Profiles: profiles, PresentVariables: present}
}

// SignalDataset wraps raw signal pairs as a loaded dataset
func SignalDataset(id core.DatasetID, pairs ...*gait.SignalPair) *ports.Dataset {
	seen := make(map[gait.Variable]bool)
	var present []gait.Variable
	for _, pair := range pairs {
		for v := range pair.Variables {
			if !seen[v] {
				seen[v] = true
				present = append(present, v)
			}
		}
	}
	return &ports.Dataset{ID: id, Signals: pairs, PresentVariables: present}
}

// SeedRanges builds a full-coverage range map over every supported task,
// required variable and representative phase with uniform [min, max] bounds.
func SeedRanges(min, max float64) map[rangespec.Key]rangespec.ValidationRange {
	ranges := make(map[rangespec.Key]rangespec.ValidationRange)
	for _, task := range gait.SupportedTasks() {
		for _, variable := range gait.RequiredVariables() {
			for _, phase := range gait.RepresentativePhases() {
				k := rangespec.Key{Task: task, Variable: variable, PhasePercent: phase}
				ranges[k] = rangespec.ValidationRange{
					Key: k,
					Min: min,
					Max: max,
					Provenance: rangespec.Provenance{
						Kind:     rangespec.ProvenanceLiterature,
						Citation: "synthetic-fixture",
					},
					Confidence: 0.95,
				}
			}
		}
	}
	return ranges
}
