package recon

import "festival-ticketing/internal/status"

// Outcome classifies what a reconciliation invocation did. Expected
// no-op outcomes (no transition, lock respected, lost race, already gone)
// are values here, not errors, so sweeps and webhooks never abort on them.
type Outcome string

const (
	// OutcomeTransitioned means the conditional write applied and the
	// order moved to a new status.
	OutcomeTransitioned Outcome = "transitioned"

	// OutcomeNoTransition means the gateway status maps to the stored
	// status (or to a transition the state machine forbids); nothing
	// was written.
	OutcomeNoTransition Outcome = "no_transition"

	// OutcomeLocked means the order is syncLocked by an admin; automatic
	// reconciliation must not touch it.
	OutcomeLocked Outcome = "locked"

	// OutcomeLostRace means a concurrent reconciliation applied the
	// transition first. Not an error; the winner fired the side effects.
	OutcomeLostRace Outcome = "lost_race"

	// OutcomeNotFound means the order doesn't exist in the store, often
	// an expired order already cleaned up. Terminal for this order.
	OutcomeNotFound Outcome = "not_found"
)

// Result is what every entry point (webhook, sweep, manual, forced) gets
// back from the engine.
type Result struct {
	OrderNumber      string        `json:"order_number"`
	Outcome          Outcome       `json:"outcome"`
	OldStatus        status.Status `json:"old_status,omitempty"`
	NewStatus        status.Status `json:"new_status,omitempty"`
	Transitioned     bool          `json:"transitioned"`
	SideEffectsFired bool          `json:"side_effects_fired"`
}
