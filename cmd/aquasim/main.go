package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/aquasim/internal/carbonate"
	"github.com/san-kum/aquasim/internal/config"
	"github.com/san-kum/aquasim/internal/equil"
	"github.com/san-kum/aquasim/internal/kinetics"
	"github.com/san-kum/aquasim/internal/report"
	"github.com/san-kum/aquasim/internal/run"
	"github.com/san-kum/aquasim/internal/storage"
	"github.com/san-kum/aquasim/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string
	asJSON     bool

	temperature float64
	ph          float64
	elements    []string // Tag=mmol pairs

	reagent   string
	parameter string
	target    float64
	direction string
	tolerance float64
	ceiling   float64
	maxIter   int
	minerals  []string

	grid     []float64
	interval float64
	duration float64

	oracleTimeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aquasim",
		Short: "water chemistry dosing and precipitation kinetics",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".aquasim", "data directory")

	doseCmd := &cobra.Command{
		Use:   "dose",
		Short: "solve the reagent dose for a water quality target",
		RunE:  runDose,
	}
	doseCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	doseCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	doseCmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	doseCmd.Flags().Float64Var(&temperature, "temp", config.DefaultTemperature, "temperature (C)")
	doseCmd.Flags().Float64Var(&ph, "ph", config.DefaultPH, "initial pH estimate")
	doseCmd.Flags().StringSliceVar(&elements, "element", nil, "element amount, Tag=mmol (repeatable)")
	doseCmd.Flags().StringVar(&reagent, "reagent", "NaOH", "reagent formula")
	doseCmd.Flags().StringVar(&parameter, "parameter", "pH", "target parameter (pH or element tag)")
	doseCmd.Flags().Float64Var(&target, "target", 8.5, "target value")
	doseCmd.Flags().StringVar(&direction, "direction", "auto", "target direction (up, down, auto)")
	doseCmd.Flags().Float64Var(&tolerance, "tolerance", config.DefaultTolerance, "convergence tolerance")
	doseCmd.Flags().Float64Var(&ceiling, "ceiling", config.DefaultCeiling, "maximum dose (mmol)")
	doseCmd.Flags().IntVar(&maxIter, "max-iter", 50, "iteration budget")
	doseCmd.Flags().StringSliceVar(&minerals, "mineral", nil, "equilibrium mineral (repeatable)")
	doseCmd.Flags().DurationVar(&oracleTimeout, "timeout", 0, "per-call oracle timeout")

	kineticCmd := &cobra.Command{
		Use:   "kinetic",
		Short: "integrate mineral precipitation kinetics",
		RunE:  runKinetic,
	}
	kineticCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	kineticCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	kineticCmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	kineticCmd.Flags().Float64Var(&temperature, "temp", config.DefaultTemperature, "temperature (C)")
	kineticCmd.Flags().Float64Var(&ph, "ph", config.DefaultPH, "initial pH estimate")
	kineticCmd.Flags().StringSliceVar(&elements, "element", nil, "element amount, Tag=mmol (repeatable)")
	kineticCmd.Flags().Float64SliceVar(&grid, "grid", nil, "output times in seconds")
	kineticCmd.Flags().DurationVar(&oracleTimeout, "timeout", 0, "per-call oracle timeout")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "kinetic run with live terminal visualization",
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	liveCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	liveCmd.Flags().Float64Var(&interval, "interval", 60, "seconds advanced per tick")
	liveCmd.Flags().Float64Var(&duration, "time", 3600, "total simulated seconds")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [mode]",
		Short: "list available presets for a mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for mode: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(doseCmd, kineticCmd, liveCmd, listCmd, plotCmd, exportCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves preset, then config file, then flags, highest
// precedence last.
func loadConfig(cmd *cobra.Command, mode string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Mode = mode

	if preset != "" {
		p := config.GetPreset(mode, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(mode))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("temp") {
		cfg.Solution.Temperature = temperature
	}
	if cmd.Flags().Changed("ph") {
		cfg.Solution.PH = ph
	}
	if len(elements) > 0 {
		if cfg.Solution.Elements == nil {
			cfg.Solution.Elements = map[string]float64{}
		}
		for _, e := range elements {
			tag, val, ok := strings.Cut(e, "=")
			if !ok {
				return nil, fmt.Errorf("element %q: want Tag=mmol", e)
			}
			v, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return nil, fmt.Errorf("element %q: %w", e, err)
			}
			cfg.Solution.Elements[tag] = v
		}
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = oracleTimeout
	}

	switch mode {
	case "dose":
		if cmd.Flags().Changed("reagent") {
			cfg.Dose.Reagent = reagent
		}
		if cmd.Flags().Changed("parameter") {
			cfg.Dose.Parameter = parameter
		}
		if cmd.Flags().Changed("target") {
			cfg.Dose.Target = target
		}
		if cmd.Flags().Changed("direction") {
			cfg.Dose.Direction = direction
		}
		if cmd.Flags().Changed("tolerance") {
			cfg.Dose.Tolerance = tolerance
		}
		if cmd.Flags().Changed("ceiling") {
			cfg.Dose.Ceiling = ceiling
		}
		if cmd.Flags().Changed("max-iter") {
			cfg.Dose.MaxIterations = maxIter
		}
		if len(minerals) > 0 {
			cfg.Dose.Minerals = minerals
		}
	case "kinetic":
		if len(grid) > 0 {
			cfg.Kinetic.Grid = grid
		}
	}

	return cfg, nil
}

func newRunner() *run.Runner {
	return run.NewRunner(carbonate.NewEngine(), kinetics.NewRegistry())
}

func runDose(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, "dose")
	if err != nil {
		return err
	}
	req, err := cfg.DoseRequest()
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	start := time.Now()
	out, err := newRunner().Dose(context.Background(), req)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.SaveDose(cfg.Dose.Reagent, cfg.Dose.Parameter, cfg.Dose.Target, out.Report)
	if err != nil {
		return err
	}

	if asJSON {
		return storage.ExportDosingJSON(os.Stdout, out.Report)
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("oracle calls: %d (%d cached)\n\n", out.CacheMisses, out.CacheHits)
	return report.RenderDosing(os.Stdout, out.Report)
}

func runKinetic(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, "kinetic")
	if err != nil {
		return err
	}
	req, err := cfg.KineticRequest()
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	start := time.Now()
	out, err := newRunner().Kinetic(context.Background(), req)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.SaveKinetic(out.Report)
	if err != nil {
		return err
	}

	if asJSON {
		return storage.ExportKineticJSON(os.Stdout, out.Report)
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("oracle calls: %d (%d cached)\n\n", out.CacheMisses, out.CacheHits)
	return report.RenderKinetic(os.Stdout, out.Report)
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, "kinetic")
	if err != nil {
		return err
	}
	req, err := cfg.KineticRequest()
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}

	memo := equil.NewMemo(equil.NewAdapter(carbonate.NewEngine(), cfg.Timeout))
	model, err := tui.NewModel(memo, kinetics.NewRegistry(), kinetics.DefaultConfig(),
		req.Solution, req.Additions, req.Minerals, req.EquilibriumPhases, interval, duration)
	if err != nil {
		return err
	}

	p := tea.NewProgram(model)
	_, err = p.Run()
	return err
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tTIME\tDETAIL\tSTATUS")

	for _, r := range runs {
		detail, status := "", ""
		switch r.Mode {
		case "dose":
			detail = fmt.Sprintf("%s -> %s=%.4g", r.Reagent, r.Parameter, r.Target)
			status = r.Status
		case "kinetic":
			detail = strings.Join(r.Minerals, ",")
			status = "ok"
			if r.Degraded {
				status = "degraded"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Mode,
			r.Timestamp.Format("2006-01-02 15:04:05"),
			detail,
			status,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	header, rows, err := st.LoadTrace(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("mode: %s\n", meta.Mode)
	fmt.Printf("samples: %d\n\n", len(rows))

	// Column 0 is the x axis (time or iteration); plot the rest.
	for col := 1; col < len(header); col++ {
		data := make([]float64, 0, len(rows))
		for _, row := range rows {
			if col < len(row) {
				data = append(data, row[col])
			}
		}
		if len(data) < 2 {
			continue
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(header[col]),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	return storage.ExportMetadataJSON(os.Stdout, meta)
}
