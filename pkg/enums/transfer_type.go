package enums

import "fmt"

// TransferType classifies what kind of relocation a transfer performs.
type TransferType string

const (
	TransferTypeBranch  TransferType = "branch"
	TransferTypeCounter TransferType = "counter"
	TransferTypeBox     TransferType = "box"
	TransferTypeMixed   TransferType = "mixed"
)

var validTransferTypes = []TransferType{
	TransferTypeBranch,
	TransferTypeCounter,
	TransferTypeBox,
	TransferTypeMixed,
}

// IsValid reports whether the value is a known TransferType.
func (t TransferType) IsValid() bool {
	for _, candidate := range validTransferTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransferType converts raw input into a TransferType.
func ParseTransferType(value string) (TransferType, error) {
	for _, candidate := range validTransferTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transfer type %q", value)
}
