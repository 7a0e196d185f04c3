package rest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/sibi-seeni/credit-churn-deploy/internal/application/dto"
	"github.com/sibi-seeni/credit-churn-deploy/internal/domain/model"
)

// Predictor scores one request body.
type Predictor interface {
	Execute(ctx context.Context, body io.Reader) model.Outcome
}

// PredictHandler serves POST /predict.
type PredictHandler struct {
	predictor Predictor
	logger    *slog.Logger
	requests  metric.Int64Counter
	duration  metric.Float64Histogram
	maxBody   int64
}

// NewPredictHandler creates the prediction handler and its instruments on meter.
func NewPredictHandler(predictor Predictor, meter metric.Meter, maxBody int64, logger *slog.Logger) (*PredictHandler, error) {
	requests, err := meter.Int64Counter("churn_predictions_total",
		metric.WithDescription("Prediction requests by outcome and rejection reason."),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("churn_prediction_duration_seconds",
		metric.WithDescription("Time to answer a prediction request."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &PredictHandler{
		predictor: predictor,
		logger:    logger,
		requests:  requests,
		duration:  duration,
		maxBody:   maxBody,
	}, nil
}

// RegisterRoutes registers the prediction endpoint on the provided ServeMux.
func (h *PredictHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /predict", h.Predict)
}

// Predict answers 200 with the churn probability or 400 with an error message.
// Every rejection, including scoring failures, is a client-visible 400.
func (h *PredictHandler) Predict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body := http.MaxBytesReader(w, r.Body, h.maxBody)
	defer body.Close()

	outcome := h.predictor.Execute(r.Context(), body)

	status := http.StatusOK
	attrs := []attribute.KeyValue{attribute.String("outcome", "success"), attribute.String("reason", "")}
	if !outcome.IsSuccess() {
		status = http.StatusBadRequest
		attrs = []attribute.KeyValue{attribute.String("outcome", "rejected"), attribute.String("reason", outcome.Reason().String())}
		h.logger.InfoContext(r.Context(), "prediction rejected",
			slog.String("reason", outcome.Reason().String()),
			slog.String("detail", outcome.Detail()),
		)
	}

	h.requests.Add(r.Context(), 1, metric.WithAttributes(attrs...))
	h.duration.Record(r.Context(), time.Since(start).Seconds(), metric.WithAttributes(attrs[0]))

	writeJSON(w, status, dto.FromOutcome(outcome), h.logger)
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write response", slog.String("error", err.Error()))
	}
}
