package kinetics

// Status is the life-cycle state of a kinetic mineral across a run.
type Status int

const (
	// StatusActive minerals contribute a rate each sub-step.
	StatusActive Status = iota
	// StatusExhausted minerals dissolved to zero moles; they stay in the
	// trace but are excluded from further rate evaluation.
	StatusExhausted
	// StatusRateUndefined marks a mineral with no registered rate law.
	// It is detected at setup and fails the whole run before stepping.
	StatusRateUndefined
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusExhausted:
		return "exhausted"
	case StatusRateUndefined:
		return "rate_undefined"
	default:
		return "unknown"
	}
}

// MineralSpec describes one kinetically tracked mineral. M is the
// current moles (mmol, must be positive at setup: rate laws are
// undefined at zero surface area); M0 is the initial-moles basis for
// surface-area scaling and may be zero for a nucleating phase.
type MineralSpec struct {
	Name  string
	M0    float64
	M     float64
	Parms []float64
	Tol   float64 // local error tolerance per sub-step, mmol
}

// mineral is the integrator's mutable per-run view of a spec. Specs
// are copied in at setup, so callers can reuse theirs across runs.
type mineral struct {
	MineralSpec
	status Status
	law    RateLaw
	rate   float64 // last evaluated rate, for tracing
}

func (m *mineral) active() bool { return m.status == StatusActive }
