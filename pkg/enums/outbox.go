package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateMovementEntry OutboxAggregateType = "movement_entry"
	AggregateTransfer      OutboxAggregateType = "transfer"
	AggregateBalance       OutboxAggregateType = "daily_balance"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateMovementEntry,
	AggregateTransfer,
	AggregateBalance,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxDLQErrorReason maps to the outbox_dlq_error_reason_enum enum in Postgres.
type OutboxDLQErrorReason string

const (
	DLQReasonNonRetryable        OutboxDLQErrorReason = "non_retryable"
	DLQReasonMaxAttemptsExceeded OutboxDLQErrorReason = "max_attempts_exceeded"
)

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventMovementRecorded    OutboxEventType = "movement_recorded"
	EventTransferCreated     OutboxEventType = "transfer_created"
	EventTransferApproved    OutboxEventType = "transfer_approved"
	EventTransferRejected    OutboxEventType = "transfer_rejected"
	EventTransferCompleted   OutboxEventType = "transfer_completed"
	EventTransferCancelled   OutboxEventType = "transfer_cancelled"
	EventBalanceRecalculated OutboxEventType = "balance_recalculated"
)

var validOutboxEventTypes = []OutboxEventType{
	EventMovementRecorded,
	EventTransferCreated,
	EventTransferApproved,
	EventTransferRejected,
	EventTransferCompleted,
	EventTransferCancelled,
	EventBalanceRecalculated,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
