package notifier

import (
	"time"

	"github.com/kart-io/buildnotify/pkg/errors"
)

// Kind tells direct recipients from culprits.
type Kind string

const (
	KindDirect  Kind = "direct"
	KindCulprit Kind = "culprit"
)

// Status constants
const (
	StatusSkipped = "skipped"
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Delivery is the outcome for one recipient.
type Delivery struct {
	Recipient string        `json:"recipient"`
	Kind      Kind          `json:"kind"`
	Message   string        `json:"message"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`

	err error
}

// Err returns the delivery error, if any
func (d Delivery) Err() error {
	return d.err
}

// Report summarizes one Perform call. It is for observability only; the
// build outcome never depends on it.
type Report struct {
	InvocationID string     `json:"invocation_id"`
	Project      string     `json:"project"`
	Build        string     `json:"build"`
	Notified     bool       `json:"notified"`
	Reason       string     `json:"reason"`
	Status       string     `json:"status"`
	Culprits     []string   `json:"culprits,omitempty"`
	Deliveries   []Delivery `json:"deliveries"`
	Successful   int        `json:"successful"`
	Failed       int        `json:"failed"`
	// Error is set when composition itself failed before or between deliveries.
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	errs errors.MultiError
}

func newReport(invocationID string) *Report {
	return &Report{
		InvocationID: invocationID,
		Status:       StatusSkipped,
		Deliveries:   make([]Delivery, 0),
		StartedAt:    time.Now(),
	}
}

func (r *Report) addDelivery(d Delivery) {
	r.Deliveries = append(r.Deliveries, d)
	if d.Success {
		r.Successful++
	} else {
		r.Failed++
		r.errs.Add(d.err)
	}
}

func (r *Report) abort(err error) {
	r.Error = err.Error()
	r.errs.Add(err)
}

func (r *Report) finish() {
	r.Duration = time.Since(r.StartedAt)
	switch {
	case r.Error != "" && r.Successful == 0:
		r.Status = StatusFailed
	case !r.Notified:
		r.Status = StatusSkipped
	case r.Error == "" && r.Failed == 0:
		r.Status = StatusSuccess
	case r.Successful == 0:
		r.Status = StatusFailed
	default:
		r.Status = StatusPartial
	}
}

// HasFailures reports whether any delivery or the composition failed.
func (r *Report) HasFailures() bool {
	return r.Failed > 0 || r.Error != ""
}

// FailedDeliveries returns the deliveries that did not succeed
func (r *Report) FailedDeliveries() []Delivery {
	var out []Delivery
	for _, d := range r.Deliveries {
		if !d.Success {
			out = append(out, d)
		}
	}
	return out
}

// Err aggregates every failure, or returns nil.
func (r *Report) Err() error {
	return r.errs.ErrorOrNil()
}
