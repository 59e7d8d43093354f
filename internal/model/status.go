package model

// Outcome represents how a download job ended
type Outcome string

const (
	// OutcomeDelivered means at least one file reached the requester
	OutcomeDelivered Outcome = "delivered"

	// OutcomeEmpty means the job ran but produced nothing deliverable
	OutcomeEmpty Outcome = "empty"

	// OutcomeFailed means the job could not run (launch or filesystem error)
	OutcomeFailed Outcome = "failed"
)

// String returns the string representation of Outcome
func (o Outcome) String() string {
	return string(o)
}

// IsFailure returns true if the job failed before anything could be judged
func (o Outcome) IsFailure() bool {
	return o == OutcomeFailed
}

// IsTerminal returns true for every known outcome
func (o Outcome) IsTerminal() bool {
	return o == OutcomeDelivered || o == OutcomeEmpty || o == OutcomeFailed
}

// Result is the explicit result of one job, returned up the call chain
type Result struct {
	Outcome Outcome
	Sent    int   // files delivered
	Skipped int   // files skipped for size
	Err     error // set only when Outcome is OutcomeFailed
}

// Delivered builds a result from the number of files sent. Zero sent files is
// an empty outcome, not an error.
func Delivered(sent, skipped int) Result {
	if sent == 0 {
		return Result{Outcome: OutcomeEmpty, Skipped: skipped}
	}
	return Result{Outcome: OutcomeDelivered, Sent: sent, Skipped: skipped}
}

// Failed builds a failed result
func Failed(err error) Result {
	return Result{Outcome: OutcomeFailed, Err: err}
}
