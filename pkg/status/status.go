// Package status defines the outcome of a send attempt and its mapping
// onto the fixed int8 code that crosses the client boundary. The numeric
// code values are part of the stable contract: callers persist and compare
// them, so they must never be renumbered.
package status

// Outcome is the closed internal result set of one send attempt.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomePayloadTooLarge
	OutcomeInvalidDestination
	OutcomeNoRoute
	OutcomeTimeout
	OutcomeTransient
	OutcomePermanent
	OutcomeInternal

	// outcomeCount must stay last; Map and its test iterate up to it.
	outcomeCount
)

// Status is the signed 8-bit code returned across the boundary.
// 0 means accepted for delivery; every failure kind has its own
// negative value.
type Status int8

const (
	StatusAccepted           Status = 0
	StatusPayloadTooLarge    Status = -1
	StatusInvalidDestination Status = -2
	StatusNoRoute            Status = -3
	StatusTimeout            Status = -4
	StatusTransient          Status = -5
	StatusPermanent          Status = -6
	StatusInternal           Status = -7
)

// Map translates an internal outcome to its boundary code. Every outcome
// has exactly one code; anything outside the closed set maps to
// StatusInternal rather than panicking, since no panic may cross the
// boundary. TestMapCoversAllOutcomes walks the full range so an outcome
// added without a case here fails the suite.
func Map(o Outcome) Status {
	switch o {
	case OutcomeAccepted:
		return StatusAccepted
	case OutcomePayloadTooLarge:
		return StatusPayloadTooLarge
	case OutcomeInvalidDestination:
		return StatusInvalidDestination
	case OutcomeNoRoute:
		return StatusNoRoute
	case OutcomeTimeout:
		return StatusTimeout
	case OutcomeTransient:
		return StatusTransient
	case OutcomePermanent:
		return StatusPermanent
	case OutcomeInternal:
		return StatusInternal
	default:
		return StatusInternal
	}
}

// Retryable reports whether a caller may reasonably retry the same send.
func (s Status) Retryable() bool {
	return s == StatusTimeout || s == StatusTransient || s == StatusNoRoute
}

func (s Status) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusPayloadTooLarge:
		return "payload too large"
	case StatusInvalidDestination:
		return "invalid destination"
	case StatusNoRoute:
		return "no route"
	case StatusTimeout:
		return "transport timeout"
	case StatusTransient:
		return "transient transport failure"
	case StatusPermanent:
		return "permanent transport failure"
	case StatusInternal:
		return "internal error"
	default:
		return "unknown status"
	}
}

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomePayloadTooLarge:
		return "payload-too-large"
	case OutcomeInvalidDestination:
		return "invalid-destination"
	case OutcomeNoRoute:
		return "no-route"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeTransient:
		return "transient"
	case OutcomePermanent:
		return "permanent"
	case OutcomeInternal:
		return "internal"
	default:
		return "unknown"
	}
}
