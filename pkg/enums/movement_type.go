package enums

import "fmt"

// MovementType maps to the movement_type_enum enum in Postgres.
type MovementType string

const (
	MovementTypeSale        MovementType = "sale"
	MovementTypeReturn      MovementType = "return"
	MovementTypeTransferIn  MovementType = "transfer_in"
	MovementTypeTransferOut MovementType = "transfer_out"
	MovementTypeAddition    MovementType = "addition"
	MovementTypeAdjustment  MovementType = "adjustment"
)

var validMovementTypes = []MovementType{
	MovementTypeSale,
	MovementTypeReturn,
	MovementTypeTransferIn,
	MovementTypeTransferOut,
	MovementTypeAddition,
	MovementTypeAdjustment,
}

// String implements fmt.Stringer.
func (t MovementType) String() string {
	return string(t)
}

// IsValid reports whether the value matches the canonical movement type enum.
func (t MovementType) IsValid() bool {
	for _, candidate := range validMovementTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Direction returns the sign of the type's effect on stock balance: +1 for
// types that increase it, -1 for types that decrease it. The sign is fixed by
// type; callers never carry signed quantities.
func (t MovementType) Direction() int {
	switch t {
	case MovementTypeSale, MovementTypeTransferOut:
		return -1
	case MovementTypeReturn, MovementTypeTransferIn, MovementTypeAddition, MovementTypeAdjustment:
		return 1
	default:
		return 0
	}
}

// ParseMovementType converts raw input into MovementType.
func ParseMovementType(value string) (MovementType, error) {
	for _, candidate := range validMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement type %q", value)
}
