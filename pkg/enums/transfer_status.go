package enums

import "fmt"

// TransferStatus tracks the lifecycle of a stock transfer.
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusInTransit TransferStatus = "in_transit"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusCancelled TransferStatus = "cancelled"
	TransferStatusRejected  TransferStatus = "rejected"
)

var validTransferStatuses = []TransferStatus{
	TransferStatusPending,
	TransferStatusInTransit,
	TransferStatusCompleted,
	TransferStatusCancelled,
	TransferStatusRejected,
}

// openTransferStatuses are the states in which a transfer still holds its
// item reservations.
var openTransferStatuses = []TransferStatus{
	TransferStatusPending,
	TransferStatusInTransit,
}

// String implements fmt.Stringer.
func (s TransferStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TransferStatus.
func (s TransferStatus) IsValid() bool {
	for _, candidate := range validTransferStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (s TransferStatus) IsTerminal() bool {
	switch s {
	case TransferStatusCompleted, TransferStatusCancelled, TransferStatusRejected:
		return true
	default:
		return false
	}
}

// IsOpen reports whether the transfer still reserves its items.
func (s TransferStatus) IsOpen() bool {
	for _, candidate := range openTransferStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// OpenTransferStatuses returns the statuses that hold item reservations.
func OpenTransferStatuses() []TransferStatus {
	out := make([]TransferStatus, len(openTransferStatuses))
	copy(out, openTransferStatuses)
	return out
}

// CanTransitionTo reports whether the documented state machine allows moving
// from s to target.
func (s TransferStatus) CanTransitionTo(target TransferStatus) bool {
	switch s {
	case TransferStatusPending:
		return target == TransferStatusInTransit ||
			target == TransferStatusRejected ||
			target == TransferStatusCancelled
	case TransferStatusInTransit:
		return target == TransferStatusCompleted ||
			target == TransferStatusCancelled
	default:
		return false
	}
}

// ParseTransferStatus converts raw input into a TransferStatus.
func ParseTransferStatus(value string) (TransferStatus, error) {
	for _, candidate := range validTransferStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transfer status %q", value)
}
