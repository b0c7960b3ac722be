package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/aquasim/internal/chem"
	"github.com/san-kum/aquasim/internal/dosing"
	"github.com/san-kum/aquasim/internal/kinetics"
	"github.com/san-kum/aquasim/internal/run"
)

const (
	DefaultTemperature = 25.0
	DefaultPH          = 7.0
	DefaultTolerance   = 0.01
	DefaultCeiling     = 1000.0
)

type Config struct {
	Mode     string         `yaml:"mode"` // "dose" or "kinetic"
	Solution SolutionConfig `yaml:"solution"`
	Dose     DoseConfig     `yaml:"dose"`
	Kinetic  KineticConfig  `yaml:"kinetic"`
	Timeout  time.Duration  `yaml:"oracle_timeout"`
}

type SolutionConfig struct {
	Temperature float64            `yaml:"temperature_c"`
	PH          float64            `yaml:"ph"`
	Elements    map[string]float64 `yaml:"elements"` // tag -> mmol/L
}

type DoseConfig struct {
	Reagent       string   `yaml:"reagent"`
	Parameter     string   `yaml:"parameter"`
	Target        float64  `yaml:"target"`
	Direction     string   `yaml:"direction"` // "", "up" or "down"
	Tolerance     float64  `yaml:"tolerance"`
	Ceiling       float64  `yaml:"ceiling_mmol"`
	MaxIterations int      `yaml:"max_iterations"`
	Minerals      []string `yaml:"minerals"`
}

type KineticConfig struct {
	Minerals          []MineralConfig `yaml:"minerals"`
	Grid              []float64       `yaml:"grid_seconds"`
	Additions         []ReagentConfig `yaml:"additions"`
	EquilibriumPhases []string        `yaml:"equilibrium_phases"`
}

type MineralConfig struct {
	Name  string    `yaml:"name"`
	Seed  float64   `yaml:"seed_mmol"`
	M0    float64   `yaml:"initial_mmol"`
	Parms []float64 `yaml:"parameters"`
	Tol   float64   `yaml:"tolerance_mmol"`
}

type ReagentConfig struct {
	Formula string  `yaml:"formula"`
	Amount  float64 `yaml:"amount_mmol"`
}

func DefaultConfig() *Config {
	return &Config{
		Mode: "dose",
		Solution: SolutionConfig{
			Temperature: DefaultTemperature,
			PH:          DefaultPH,
			Elements:    map[string]float64{},
		},
		Dose: DoseConfig{
			Reagent:   "NaOH",
			Parameter: "pH",
			Target:    8.5,
			Tolerance: DefaultTolerance,
			Ceiling:   DefaultCeiling,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) solution() chem.Solution {
	s := chem.NewSolution(c.Solution.Temperature, c.Solution.PH)
	for tag, v := range c.Solution.Elements {
		s.Elements[tag] = v
	}
	return s
}

// DoseRequest assembles the dosing request the config describes.
func (c *Config) DoseRequest() (run.DoseRequest, error) {
	dir := chem.DirectionAuto
	switch c.Dose.Direction {
	case "", "auto":
	case "up":
		dir = chem.DirectionUp
	case "down":
		dir = chem.DirectionDown
	default:
		return run.DoseRequest{}, fmt.Errorf("direction %q: want up, down or auto", c.Dose.Direction)
	}

	cfg := dosing.DefaultConfig()
	if c.Dose.Tolerance > 0 {
		cfg.Tolerance = c.Dose.Tolerance
	}
	if c.Dose.Ceiling > 0 {
		cfg.Ceiling = c.Dose.Ceiling
	}
	if c.Dose.MaxIterations > 0 {
		cfg.MaxIterations = c.Dose.MaxIterations
	}

	return run.DoseRequest{
		Solution: c.solution(),
		Reagent:  chem.Reactant{Formula: c.Dose.Reagent, Unit: "mmol"},
		Target:   chem.TargetCondition{Parameter: c.Dose.Parameter, Value: c.Dose.Target, Direction: dir},
		Minerals: c.Dose.Minerals,
		Config:   cfg,
		Timeout:  c.Timeout,
	}, nil
}

// KineticRequest assembles the kinetic request the config describes.
func (c *Config) KineticRequest() (run.KineticRequest, error) {
	if len(c.Kinetic.Minerals) == 0 {
		return run.KineticRequest{}, fmt.Errorf("kinetic mode: no minerals configured")
	}

	specs := make([]kinetics.MineralSpec, 0, len(c.Kinetic.Minerals))
	for _, m := range c.Kinetic.Minerals {
		specs = append(specs, kinetics.MineralSpec{
			Name:  m.Name,
			M:     m.Seed,
			M0:    m.M0,
			Parms: m.Parms,
			Tol:   m.Tol,
		})
	}

	additions := make([]chem.Reactant, 0, len(c.Kinetic.Additions))
	for _, a := range c.Kinetic.Additions {
		additions = append(additions, chem.Reactant{Formula: a.Formula, Amount: a.Amount, Unit: "mmol"})
	}

	return run.KineticRequest{
		Solution:          c.solution(),
		Additions:         additions,
		Minerals:          specs,
		Grid:              c.Kinetic.Grid,
		EquilibriumPhases: c.Kinetic.EquilibriumPhases,
		Timeout:           c.Timeout,
	}, nil
}
