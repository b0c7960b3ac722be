package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// RenderDosing writes a human-readable summary of a dosing run.
func RenderDosing(w io.Writer, rep DosingReport) error {
	fmt.Fprintf(w, "status: %s\n", rep.ConvergenceStatus)
	fmt.Fprintf(w, "dose: %.4f mmol\n", rep.AchievedDose)
	fmt.Fprintf(w, "achieved: %.4f\n\n", rep.AchievedValue)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ITER\tDOSE\tVALUE\tRESIDUAL\tNOTE")
	for _, it := range rep.Iterations {
		if it.OracleFailed {
			fmt.Fprintf(tw, "%d\t%.4f\t-\t-\toracle failure: %s\n", it.Index, it.Dose, it.Note)
			continue
		}
		fmt.Fprintf(tw, "%d\t%.4f\t%.4f\t%+.4f\t%s\n", it.Index, it.Dose, it.Value, it.Residual, it.Note)
	}
	return tw.Flush()
}

// RenderKinetic writes a human-readable summary of a kinetic run.
func RenderKinetic(w io.Writer, rep KineticReport) error {
	for _, p := range rep.Profiles {
		fmt.Fprintf(w, "mineral: %s (%s)\n", p.Mineral, p.FinalStatus)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME(s)\tPRECIPITATED(mmol)\tRATE(mmol/s)")
		for i := range p.TimeSeconds {
			fmt.Fprintf(tw, "%.0f\t%.6g\t%.6g\n", p.TimeSeconds[i], p.AmountPrecipitated[i], p.Rate[i])
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "solution series:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME(s)\tpH")
	for _, s := range rep.Series {
		fmt.Fprintf(tw, "%.0f\t%.3f\n", s.TimeSeconds, s.PH)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(rep.Diagnostics) > 0 {
		fmt.Fprintln(w, "\ndiagnostics:")
		for _, d := range rep.Diagnostics {
			flag := ""
			if d.Degraded {
				flag = " [degraded]"
			}
			fmt.Fprintf(w, "  t=%.0fs%s: %s\n", d.TimeSeconds, flag, strings.Join(d.Notes, "; "))
		}
	}
	return nil
}
