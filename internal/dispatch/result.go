package dispatch

import "backend-booking/internal/models"

type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// StepOutcome records how one best-effort sub-step of a dispatch ended.
type StepOutcome struct {
	Status StepStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
	Err    error      `json:"-"`
}

func ok() StepOutcome      { return StepOutcome{Status: StepOK} }
func skipped() StepOutcome { return StepOutcome{Status: StepSkipped} }

func failed(err error) StepOutcome {
	return StepOutcome{Status: StepFailed, Error: err.Error(), Err: err}
}

func outcome(err error) StepOutcome {
	if err != nil {
		return failed(err)
	}
	return ok()
}

// Result is returned by Start, DispatchNext and Recall. The booking reflects
// the store's view after the primary transition; the step outcomes describe
// the window lookup, the window rebind and the serving publish.
type Result struct {
	Booking      models.Booking `json:"booking"`
	WindowLookup StepOutcome    `json:"window_lookup"`
	WindowBind   StepOutcome    `json:"window_bind"`
	Publish      StepOutcome    `json:"publish"`
}

// Degraded reports whether any best-effort step did not succeed.
func (r Result) Degraded() bool {
	return r.WindowLookup.Status == StepFailed ||
		r.WindowBind.Status == StepFailed ||
		r.Publish.Status == StepFailed
}
