package status

import "strings"

// Status is the internal order status. The values deliberately mirror the
// gateway's transaction_status vocabulary so that admin tooling and the
// gateway dashboard read the same.
type Status string

const (
	Pending           Status = "pending"
	Authorize         Status = "authorize"
	Capture           Status = "capture"
	Settlement        Status = "settlement"
	Deny              Status = "deny"
	Cancel            Status = "cancel"
	Expire            Status = "expire"
	Failure           Status = "failure"
	Refund            Status = "refund"
	PartialRefund     Status = "partial_refund"
	Chargeback        Status = "chargeback"
	PartialChargeback Status = "partial_chargeback"
)

// mapping is the single source of truth for gateway → internal status.
// Every call site must go through Map; no endpoint declares its own table.
var mapping = map[string]Status{
	"pending":            Pending,
	"authorize":          Authorize,
	"capture":            Capture,
	"settlement":         Settlement,
	"deny":               Deny,
	"cancel":             Cancel,
	"expire":             Expire,
	"failure":            Failure,
	"refund":             Refund,
	"partial_refund":     PartialRefund,
	"chargeback":         Chargeback,
	"partial_chargeback": PartialChargeback,
}

// Map normalizes a raw gateway transaction status. It is total: unknown
// values fall back to Pending so an unrecognized gateway string can never
// fail an order.
func Map(gatewayStatus string) Status {
	if s, ok := mapping[strings.ToLower(strings.TrimSpace(gatewayStatus))]; ok {
		return s
	}
	return Pending
}

// IsPaid reports whether s is a paid status for business purposes.
// Both capture and settlement gate ticket issuance.
func IsPaid(s Status) bool {
	return s == Capture || s == Settlement
}

// IsTerminalFailure reports whether s is a terminal failure state with no
// further automatic transition out of it.
func IsTerminalFailure(s Status) bool {
	switch s {
	case Deny, Cancel, Expire, Failure:
		return true
	}
	return false
}

// IsPostPaidAdjustment reports whether s is a post-paid adjustment
// (refund/chargeback family).
func IsPostPaidAdjustment(s Status) bool {
	switch s {
	case Refund, PartialRefund, Chargeback, PartialChargeback:
		return true
	}
	return false
}

// IsFinal reports whether automatic reconciliation has nothing left to do
// for an order in status s.
func IsFinal(s Status) bool {
	return IsTerminalFailure(s) || IsPostPaidAdjustment(s)
}

// CanTransition reports whether the state machine allows moving from one
// status to another via automatic reconciliation. Admin overrides bypass
// this table and must set syncLocked instead.
func CanTransition(from, to Status) bool {
	if from == to {
		return false
	}
	switch from {
	case Pending:
		switch to {
		case Authorize, Capture, Settlement, Deny, Cancel, Expire, Failure:
			return true
		}
	case Authorize:
		switch to {
		case Capture, Settlement, Deny, Cancel, Expire, Failure:
			return true
		}
	case Capture:
		// capture → settlement is the gateway confirming funds movement
		// within the same paid class.
		switch to {
		case Settlement, Refund, PartialRefund, Chargeback, PartialChargeback:
			return true
		}
	case Settlement:
		switch to {
		case Refund, PartialRefund, Chargeback, PartialChargeback:
			return true
		}
	}
	return false
}

// Known reports whether s is one of the defined internal statuses. Used to
// validate admin override targets.
func Known(s Status) bool {
	_, ok := mapping[string(s)]
	return ok
}
