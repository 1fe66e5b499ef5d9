// Package http serves the dashboard pipeline as a JSON API.
//
// This file implements the builder used by every handler to write JSON
// bodies and the mapping from pipeline errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"keuangan/internal/core"
	"keuangan/internal/ingest"
	"keuangan/internal/log"
	"keuangan/internal/middleware/trace"
	"keuangan/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response. A nil body writes no content.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorBody is the payload of every failed request.
type ErrorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, kind, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: message, Kind: kind})
}

// errorStatus maps a pipeline error onto a status code and a short kind.
func errorStatus(err error) (int, string) {
	var statusErr *ingest.StatusError
	switch {
	case errors.Is(err, core.ErrInvalidPeriod):
		return http.StatusBadRequest, "invalid_period"
	case errors.Is(err, ingest.ErrInvalidTransaction):
		return http.StatusBadRequest, "invalid_transaction"
	case errors.Is(err, services.ErrCategoryNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrIngestDisabled):
		return http.StatusServiceUnavailable, "ingest_disabled"
	case errors.As(err, &statusErr):
		return http.StatusBadGateway, "ingest_rejected"
	case errors.Is(err, core.ErrFetch):
		return http.StatusBadGateway, "fetch"
	case errors.Is(err, core.ErrParse):
		return http.StatusUnprocessableEntity, "parse"
	case errors.Is(err, core.ErrClassification):
		return http.StatusUnprocessableEntity, "classification"
	}
	return http.StatusInternalServerError, "internal"
}

// writeError logs err and writes its mapped response. Server side
// failures do not echo the cause to the client.
func writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, kind := errorStatus(err)
	logger := log.FromContext(r.Context())
	fields := log.NewFields().WithOperation(operation)

	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, operation, fields)
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	} else {
		logger.WarnContext(r.Context(), "Request rejected", fields.WithError(err).ToSlice()...)
	}

	body := ErrorBody{Error: msg, Kind: kind, RequestID: trace.GetRequestID(r.Context())}
	resp := NewJSONResponse().Status(status).Body(body)

	var statusErr *ingest.StatusError
	if errors.As(err, &statusErr) {
		resp.Body(struct {
			ErrorBody
			UpstreamStatus int    `json:"upstream_status"`
			UpstreamBody   string `json:"upstream_body"`
		}{body, statusErr.Status, statusErr.Body})
	}
	resp.Write(w)
}
