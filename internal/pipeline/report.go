package pipeline

import "time"

// State is where a document ended up.
type State string

const (
	StatePersisted State = "persisted"
	StateFailed    State = "failed"
	StateSkipped   State = "skipped"  // unsupported format, nothing written
	StateCanceled  State = "canceled" // run stopped before or during the document
)

// Failure points that are not stage names.
const (
	FailedAtNormalize = "normalize"
	FailedAtPersist   = "persist"
)

// Outcome is the result for one document.
type Outcome struct {
	Path        string  `json:"path" yaml:"path"`
	State       State   `json:"state" yaml:"state"`
	FailedAt    string  `json:"failed_at,omitempty" yaml:"failed_at,omitempty"`
	Error       string  `json:"error,omitempty" yaml:"error,omitempty"`
	Subject     string  `json:"subject,omitempty" yaml:"subject,omitempty"`
	Mistakes    int     `json:"mistakes,omitempty" yaml:"mistakes,omitempty"`
	FailedPages []int   `json:"failed_pages,omitempty" yaml:"failed_pages,omitempty"`
	Seconds     float64 `json:"seconds" yaml:"seconds"`

	Err error `json:"-" yaml:"-"`
}

// Report summarizes one batch. Outcomes are in discovery order.
type Report struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	InputDir   string    `json:"input_dir" yaml:"input_dir"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	Seconds    float64   `json:"seconds" yaml:"seconds"`
	Discovered int       `json:"discovered" yaml:"discovered"`
	Persisted  int       `json:"persisted" yaml:"persisted"`
	Failed     int       `json:"failed" yaml:"failed"`
	Skipped    int       `json:"skipped" yaml:"skipped"`
	Canceled   int       `json:"canceled,omitempty" yaml:"canceled,omitempty"`
	Outcomes   []Outcome `json:"outcomes" yaml:"outcomes"`
}

func (r *Report) tally() {
	r.Discovered = len(r.Outcomes)
	r.Persisted, r.Failed, r.Skipped, r.Canceled = 0, 0, 0, 0
	for _, o := range r.Outcomes {
		switch o.State {
		case StatePersisted:
			r.Persisted++
		case StateFailed:
			r.Failed++
		case StateSkipped:
			r.Skipped++
		case StateCanceled:
			r.Canceled++
		}
	}
}
