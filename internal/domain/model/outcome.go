package model

import (
	"errors"

	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/valueobject"
)

// Outcome is the terminal state of one prediction request: either a probability
// or a rejection with its reason.
type Outcome struct {
	reason      valueobject.RejectionReason
	detail      string
	probability float64
}

// Succeeded returns a successful outcome.
func Succeeded(probability float64) Outcome {
	return Outcome{probability: probability}
}

// Rejected returns a rejected outcome.
func Rejected(reason valueobject.RejectionReason, detail string) Outcome {
	return Outcome{reason: reason, detail: detail}
}

// RejectedFromError classifies a vectorization error into a rejection.
func RejectedFromError(err error) Outcome {
	var (
		missing *MissingColumnError
		unseen  *UnseenCategoryError
		invalid *InvalidValueError
	)
	switch {
	case errors.As(err, &missing):
		return Rejected(valueobject.RejectionMissingColumn, missing.Error())
	case errors.As(err, &unseen):
		return Rejected(valueobject.RejectionUnseenCategory, unseen.Error())
	case errors.As(err, &invalid):
		return Rejected(valueobject.RejectionInvalidValue, invalid.Error())
	case errors.Is(err, ErrMalformedRecord):
		return Rejected(valueobject.RejectionBadRequest, err.Error())
	default:
		return Rejected(valueobject.RejectionScoringFailed, err.Error())
	}
}

// IsSuccess reports whether the record was scored.
func (o Outcome) IsSuccess() bool {
	return o.reason.IsZero()
}

// Probability returns the churn probability; zero for rejected outcomes.
func (o Outcome) Probability() float64 {
	return o.probability
}

// Reason returns the rejection reason; zero for successful outcomes.
func (o Outcome) Reason() valueobject.RejectionReason {
	return o.reason
}

// Detail returns the human-readable rejection message.
func (o Outcome) Detail() string {
	return o.detail
}
