package domain

// Outcome is the closed set of terminal results of one generation attempt.
// Everything except OutcomeDelivered releases the lock without writing a
// delivery record.
type Outcome string

const (
	OutcomeDelivered             Outcome = "delivered"
	OutcomeSuppressed            Outcome = "duplicate_suppressed"
	OutcomeLockBusy              Outcome = "lock_busy"
	OutcomeSkippedNonBusinessDay Outcome = "skipped_non_business_day"
	OutcomeDeliveryFailed        Outcome = "delivery_failed"
)
