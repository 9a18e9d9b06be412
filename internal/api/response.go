// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/merlion/internal/aggregator"
	"github.com/tomtom215/merlion/internal/logging"
	"github.com/tomtom215/merlion/internal/scheduler"
	"github.com/tomtom215/merlion/internal/upstream"
)

// APIResponse is the standardized response wrapper for all API endpoints.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *APIMeta    `json:"meta,omitempty"`
}

// APIError represents an error response.
type APIError struct {
	// Code is a machine-readable error code
	Code string `json:"code"`

	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`

	RequestID string `json:"request_id,omitempty"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	RequestID  string    `json:"request_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`

	// Source describes the cache state of the data behind a layer response.
	Source *aggregator.Meta `json:"source,omitempty"`
}

// Error codes for API responses
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeDatasetUnavailable = "DATASET_UNAVAILABLE"

	ErrCodeUpstreamUnauthorized = "UPSTREAM_UNAUTHORIZED"
	ErrCodeUpstreamRateLimited  = "UPSTREAM_RATE_LIMITED"
	ErrCodeUpstreamTimeout      = "UPSTREAM_TIMEOUT"
	ErrCodeUpstreamMalformed    = "UPSTREAM_MALFORMED_RESPONSE"
	ErrCodeUpstreamUnreachable  = "UPSTREAM_UNREACHABLE"
	ErrCodeDownloadFailed       = "DOWNLOAD_FAILED"
)

// ResponseWriter provides methods for writing standardized API responses.
type ResponseWriter struct {
	w         http.ResponseWriter
	r         *http.Request
	startTime time.Time
}

// NewResponseWriter creates a new response writer.
func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{
		w:         w,
		r:         r,
		startTime: time.Now(),
	}
}

// Success writes a successful response with data.
func (rw *ResponseWriter) Success(data interface{}) {
	rw.SuccessWithMeta(data, nil)
}

// SuccessWithMeta writes a successful response with data and metadata.
func (rw *ResponseWriter) SuccessWithMeta(data interface{}, meta *APIMeta) {
	rw.writeJSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    rw.meta(meta),
	})
}

// Error writes an error response with the given status code.
func (rw *ResponseWriter) Error(statusCode int, code, message string) {
	rw.ErrorWithDetails(statusCode, code, message, nil)
}

// ErrorWithDetails writes an error response with additional details.
func (rw *ResponseWriter) ErrorWithDetails(statusCode int, code, message string, details interface{}) {
	meta := rw.meta(nil)
	rw.writeJSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: meta.RequestID,
		},
		Meta: meta,
	})
}

// BadRequest writes a 400 Bad Request error.
func (rw *ResponseWriter) BadRequest(message string) {
	rw.Error(http.StatusBadRequest, ErrCodeBadRequest, message)
}

// NotFound writes a 404 Not Found error.
func (rw *ResponseWriter) NotFound(message string) {
	rw.Error(http.StatusNotFound, ErrCodeNotFound, message)
}

// ServiceUnavailable writes a 503 Service Unavailable error.
func (rw *ResponseWriter) ServiceUnavailable(message string) {
	rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, message)
}

// ValidationError writes a 400 error with validation details.
func (rw *ResponseWriter) ValidationError(message string, validationErrors interface{}) {
	rw.ErrorWithDetails(http.StatusBadRequest, ErrCodeValidationFailed, message, validationErrors)
}

// FetchError maps a failed fetch onto a status code and error code by its
// upstream kind.
func (rw *ResponseWriter) FetchError(err error) {
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError {
		logging.Ctx(rw.r.Context()).Warn().Err(err).Str("code", code).Msg("Request failed")
	}
	rw.Error(status, code, err.Error())
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, scheduler.ErrUnknownSource), errors.Is(err, aggregator.ErrNotClusterSource),
		errors.Is(err, aggregator.ErrNotReadingSource):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, aggregator.ErrCarparksUnavailable):
		return http.StatusServiceUnavailable, ErrCodeDatasetUnavailable
	}

	switch upstream.KindOf(err) {
	case upstream.KindUnauthorized:
		return http.StatusBadGateway, ErrCodeUpstreamUnauthorized
	case upstream.KindRateLimited:
		return http.StatusTooManyRequests, ErrCodeUpstreamRateLimited
	case upstream.KindTimeout:
		return http.StatusGatewayTimeout, ErrCodeUpstreamTimeout
	case upstream.KindMalformedResponse:
		return http.StatusBadGateway, ErrCodeUpstreamMalformed
	case upstream.KindUnreachable:
		return http.StatusServiceUnavailable, ErrCodeUpstreamUnreachable
	case upstream.KindDownloadFailed:
		return http.StatusServiceUnavailable, ErrCodeDownloadFailed
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}

func (rw *ResponseWriter) meta(meta *APIMeta) *APIMeta {
	if meta == nil {
		meta = &APIMeta{}
	}
	meta.Timestamp = time.Now()
	meta.DurationMs = time.Since(rw.startTime).Milliseconds()
	meta.RequestID = logging.RequestIDFromContext(rw.r.Context())
	return meta
}

// writeJSON writes JSON response with proper headers.
func (rw *ResponseWriter) writeJSON(statusCode int, data interface{}) {
	rw.w.Header().Set("Content-Type", "application/json")
	rw.w.WriteHeader(statusCode)

	if err := json.NewEncoder(rw.w).Encode(data); err != nil {
		logging.Ctx(rw.r.Context()).Error().Err(err).Msg("Failed to encode JSON response")
	}
}
