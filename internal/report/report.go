package report

import (
	"math"

	"github.com/san-kum/aquasim/internal/dosing"
	"github.com/san-kum/aquasim/internal/kinetics"
)

// Pure aggregation of solver output into response values. Nothing in
// this package can fail a run or change its result; it only renders
// state that is already final.

// DosingReport is the dosing response shape.
type DosingReport struct {
	AchievedDose      float64      `json:"achieved_dose_mmol"`
	AchievedValue     float64      `json:"achieved_value"`
	ConvergenceStatus string       `json:"convergence_status"`
	Converged         bool         `json:"converged"`
	Iterations        []DosingStep `json:"iterations"`
}

type DosingStep struct {
	Index        int     `json:"index"`
	Dose         float64 `json:"dose_mmol"`
	Value        float64 `json:"value"`
	Residual     float64 `json:"residual"`
	OracleFailed bool    `json:"oracle_failed,omitempty"`
	Note         string  `json:"note,omitempty"`
}

func FromDosing(res *dosing.Result) DosingReport {
	rep := DosingReport{
		AchievedDose:      res.Dose,
		AchievedValue:     res.Achieved,
		ConvergenceStatus: res.Status,
		Converged:         res.Converged,
		Iterations:        make([]DosingStep, 0, len(res.Iterations)),
	}
	for _, it := range res.Iterations {
		rep.Iterations = append(rep.Iterations, DosingStep{
			Index:        it.Index,
			Dose:         it.Dose,
			Value:        it.Value,
			Residual:     it.Residual,
			OracleFailed: it.OracleFailed,
			Note:         it.Note,
		})
	}
	return rep
}

// KineticReport is the kinetic response shape: per-mineral profiles,
// the solution time series, and any recoverable diagnostics.
type KineticReport struct {
	Profiles    []MineralProfile `json:"profiles"`
	Series      []SolutionPoint  `json:"time_series_solutions"`
	Diagnostics []Diagnostic     `json:"errors,omitempty"`
}

type MineralProfile struct {
	Mineral            string    `json:"mineral"`
	TimeSeconds        []float64 `json:"time_seconds"`
	AmountPrecipitated []float64 `json:"amount_precipitated_mmol"`
	Rate               []float64 `json:"rate_mmol_per_s"`
	FinalStatus        string    `json:"final_status"`
}

type SolutionPoint struct {
	TimeSeconds float64            `json:"time_seconds"`
	PH          float64            `json:"pH"`
	Elements    map[string]float64 `json:"elements"`
}

type Diagnostic struct {
	TimeSeconds float64  `json:"time_seconds"`
	Degraded    bool     `json:"degraded,omitempty"`
	Notes       []string `json:"notes"`
}

func FromTrace(trace kinetics.Trace) KineticReport {
	rep := KineticReport{}
	if len(trace) == 0 {
		return rep
	}

	for _, mp := range trace[0].Minerals {
		times, moles, rates := trace.Mineral(mp.Name)
		seed := moles[0]
		amounts := make([]float64, len(moles))
		for i, m := range moles {
			amounts[i] = m - seed
		}
		final := trace[len(trace)-1]
		status := ""
		for _, fmp := range final.Minerals {
			if fmp.Name == mp.Name {
				status = fmp.Status.String()
			}
		}
		rep.Profiles = append(rep.Profiles, MineralProfile{
			Mineral:            mp.Name,
			TimeSeconds:        times,
			AmountPrecipitated: amounts,
			Rate:               rates,
			FinalStatus:        status,
		})
	}

	for _, e := range trace {
		rep.Series = append(rep.Series, SolutionPoint{
			TimeSeconds: e.Time,
			PH:          round(e.Solution.PH, 6),
			Elements:    e.Solution.Elements,
		})
		if e.Degraded || len(e.Notes) > 0 {
			rep.Diagnostics = append(rep.Diagnostics, Diagnostic{
				TimeSeconds: e.Time,
				Degraded:    e.Degraded,
				Notes:       e.Notes,
			})
		}
	}
	return rep
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
