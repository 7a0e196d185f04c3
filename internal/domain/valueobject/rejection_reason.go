package valueobject

import "fmt"

// RejectionReason is an immutable value object classifying why a record could not be scored.
type RejectionReason struct {
	value string
}

var (
	RejectionBadRequest     = RejectionReason{value: "BAD_REQUEST"}
	RejectionMissingColumn  = RejectionReason{value: "MISSING_COLUMN"}
	RejectionUnseenCategory = RejectionReason{value: "UNSEEN_CATEGORY"}
	RejectionInvalidValue   = RejectionReason{value: "INVALID_VALUE"}
	RejectionScoringFailed  = RejectionReason{value: "SCORING_FAILED"}
)

// RejectionReasonFromString reconstructs a RejectionReason from its string representation.
func RejectionReasonFromString(s string) (RejectionReason, error) {
	switch s {
	case "BAD_REQUEST":
		return RejectionBadRequest, nil
	case "MISSING_COLUMN":
		return RejectionMissingColumn, nil
	case "UNSEEN_CATEGORY":
		return RejectionUnseenCategory, nil
	case "INVALID_VALUE":
		return RejectionInvalidValue, nil
	case "SCORING_FAILED":
		return RejectionScoringFailed, nil
	default:
		return RejectionReason{}, fmt.Errorf("invalid rejection reason: %s", s)
	}
}

// String returns the string representation.
func (r RejectionReason) String() string {
	return r.value
}

// IsZero returns true if the RejectionReason has not been set.
func (r RejectionReason) IsZero() bool {
	return r.value == ""
}

// Equal checks equality with another RejectionReason.
func (r RejectionReason) Equal(other RejectionReason) bool {
	return r.value == other.value
}
