package config

var Presets = map[string]map[string]*Config{
	"dose": {
		"ph-up": {
			Mode: "dose",
			Solution: SolutionConfig{
				Temperature: 25, PH: 7,
				Elements: map[string]float64{"C": 2.0, "Ca": 0.5, "Cl": 1.0},
			},
			Dose: DoseConfig{
				Reagent: "NaOH", Parameter: "pH", Target: 8.5, Direction: "up",
				Tolerance: 0.01, Ceiling: 1000,
			},
		},
		"ph-down": {
			Mode: "dose",
			Solution: SolutionConfig{
				Temperature: 25, PH: 8,
				Elements: map[string]float64{"C": 2.0, "Na": 2.0},
			},
			Dose: DoseConfig{
				Reagent: "HCl", Parameter: "pH", Target: 6.5, Direction: "down",
				Tolerance: 0.01, Ceiling: 1000,
			},
		},
		"softening": {
			Mode: "dose",
			Solution: SolutionConfig{
				Temperature: 25, PH: 7.5,
				Elements: map[string]float64{"Ca": 3.0, "C": 3.0, "Na": 1.0, "Cl": 4.0},
			},
			Dose: DoseConfig{
				Reagent: "Na2CO3", Parameter: "Ca", Target: 1.0, Direction: "down",
				Tolerance: 0.05, Ceiling: 1000,
				Minerals: []string{"Calcite"},
			},
		},
	},
	"kinetic": {
		"calcite-growth": {
			Mode: "kinetic",
			Solution: SolutionConfig{
				Temperature: 25, PH: 8,
				Elements: map[string]float64{"Na": 2.0, "Ca": 1.0, "C": 2.0, "Cl": 2.0},
			},
			Kinetic: KineticConfig{
				Minerals: []MineralConfig{
					{Name: "Calcite", Seed: 1e-4, Parms: []float64{1e-5, 0.6}},
				},
				Grid: []float64{0, 60, 300, 600, 1800, 3600},
			},
		},
		"aragonite-dissolution": {
			Mode: "kinetic",
			Solution: SolutionConfig{
				Temperature: 25, PH: 6,
				Elements: map[string]float64{"C": 0.5, "Cl": 1.0, "Na": 0.5},
			},
			Kinetic: KineticConfig{
				Minerals: []MineralConfig{
					{Name: "Aragonite", Seed: 0.5, M0: 0.5, Parms: []float64{5e-5, 0.67}},
				},
				Grid: []float64{0, 300, 900, 1800, 3600},
			},
		},
	},
}

func GetPreset(mode, preset string) *Config {
	modePresets, ok := Presets[mode]
	if !ok {
		return nil
	}
	cfg, ok := modePresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(mode string) []string {
	modePresets, ok := Presets[mode]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modePresets))
	for name := range modePresets {
		names = append(names, name)
	}
	return names
}
