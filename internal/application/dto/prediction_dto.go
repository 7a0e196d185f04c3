package dto

import "github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"

// PredictionResponse is the body of a successful prediction.
type PredictionResponse struct {
	ChurnProbability float64 `json:"churn_probability"`
}

// ErrorResponse is the body of a rejected prediction.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FromOutcome maps an outcome to its response body.
func FromOutcome(o model.Outcome) any {
	if o.IsSuccess() {
		return PredictionResponse{ChurnProbability: o.Probability()}
	}
	return ErrorResponse{Error: o.Detail()}
}
