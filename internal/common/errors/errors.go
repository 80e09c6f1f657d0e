// Package errors provides standardized error handling for the query
// orchestrator and its capability providers.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Provider failure kinds surfaced in degraded response sections.
const (
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeInvalidParameters   ErrorCode = "INVALID_PARAMETERS"
	ErrCodeRateLimited         ErrorCode = "RATE_LIMITED"
	ErrCodeProviderTimeout     ErrorCode = "PROVIDER_TIMEOUT"
	ErrCodeRequestCancelled    ErrorCode = "REQUEST_CANCELLED"
	ErrCodeProviderUnknown     ErrorCode = "PROVIDER_UNKNOWN"

	ErrCodeMarketDataFailed    ErrorCode = "MARKET_DATA_FAILED"
	ErrCodeMarketDataTimeout   ErrorCode = "MARKET_DATA_TIMEOUT"
	ErrCodeIndexQueryFailed    ErrorCode = "INDEX_QUERY_FAILED"
	ErrCodeIndexQueryTimeout   ErrorCode = "INDEX_QUERY_TIMEOUT"
	ErrCodeIndexNotFound       ErrorCode = "INDEX_NOT_FOUND"
	ErrCodeHoldingsQueryFailed ErrorCode = "HOLDINGS_QUERY_FAILED"
	ErrCodeInvalidMetric       ErrorCode = "INVALID_METRIC"
	ErrCodeWebSearchTimeout    ErrorCode = "WEB_SEARCH_TIMEOUT"
	ErrCodeWebSearchFailed     ErrorCode = "WEB_SEARCH_FAILED"
	ErrCodeEmailSendFailed     ErrorCode = "EMAIL_SEND_FAILED"
	ErrCodeInvalidRecipient    ErrorCode = "INVALID_RECIPIENT"

	ErrCodeCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewUpstreamUnavailableError creates a retryable upstream error.
func NewUpstreamUnavailableError(provider string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamUnavailable,
		Message:   "Upstream service unavailable",
		Details:   fmt.Sprintf("provider: %s, error: %s", provider, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidParametersError creates a non-retryable parameter error.
func NewInvalidParametersError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidParameters,
		Message:   "Invalid or missing capability parameters",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimitedError creates a retryable rate-limit error.
func NewRateLimitedError(provider string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   "Upstream rate limit exceeded",
		Details:   fmt.Sprintf("provider: %s", provider),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderTimeoutError creates a retryable timeout error.
func NewProviderTimeoutError(capability string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderTimeout,
		Message:   "Capability call exceeded its deadline",
		Details:   fmt.Sprintf("capability: %s", capability),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRequestCancelledError creates a non-retryable cancellation error.
func NewRequestCancelledError(requestID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRequestCancelled,
		Message:   "Request cancelled by caller",
		Details:   fmt.Sprintf("requestId: %s", requestID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProviderUnknownError creates a non-retryable unknown-capability error.
func NewProviderUnknownError(capability string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProviderUnknown,
		Message:   "No provider registered for capability",
		Details:   fmt.Sprintf("capability: %s", capability),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewHoldingsQueryFailedError creates a retryable holdings store error.
func NewHoldingsQueryFailedError(metric string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeHoldingsQueryFailed,
		Message:   "Portfolio holdings query error",
		Details:   fmt.Sprintf("metric: %s, error: %s", metric, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidMetricError creates a non-retryable unsupported-metric error.
func NewInvalidMetricError(metric string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidMetric,
		Message:   "Unsupported portfolio metric",
		Details:   fmt.Sprintf("metric: %s", metric),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewIndexNotFoundError creates a non-retryable missing-index error.
func NewIndexNotFoundError(indexName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIndexNotFound,
		Message:   "Document index not found",
		Details:   fmt.Sprintf("indexName: %s", indexName),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewWebSearchFailedError creates a retryable web search upstream error.
func NewWebSearchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeWebSearchFailed,
		Message:   "Web search request failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmailSendFailedError creates a retryable email dispatch error.
func NewEmailSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmailSendFailed,
		Message:   "Email dispatch failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRecipientError creates a non-retryable recipient error.
func NewInvalidRecipientError(recipient string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRecipient,
		Message:   "Invalid email recipient",
		Details:   fmt.Sprintf("recipient: %s", recipient),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError creates a retryable cache backend error.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Response cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected error.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected internal error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Policy Tables
// ==========================

// retryCounts maps error codes to the number of in-provider retry attempts
// worth spending before giving the slot up as failed.
var retryCounts = map[ErrorCode]int{
	ErrCodeUpstreamUnavailable: 3,
	ErrCodeRateLimited:         2,
	ErrCodeMarketDataFailed:    2,
	ErrCodeIndexQueryFailed:    2,
	ErrCodeHoldingsQueryFailed: 2,
	ErrCodeWebSearchFailed:     1,
	ErrCodeEmailSendFailed:     1,
	ErrCodeCacheUnavailable:    1,
}

// GetRetryCount returns how many retries a code deserves; zero for
// non-retryable and unknown codes.
func GetRetryCount(code ErrorCode) int {
	return retryCounts[code]
}

// GetErrorCategory buckets codes for logging and metric labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeProviderTimeout, ErrCodeMarketDataTimeout, ErrCodeIndexQueryTimeout, ErrCodeWebSearchTimeout:
		return "timeout"
	case ErrCodeInvalidParameters, ErrCodeInvalidMetric, ErrCodeInvalidRecipient, ErrCodeProviderUnknown:
		return "validation"
	case ErrCodeRequestCancelled:
		return "cancelled"
	case ErrCodeUpstreamUnavailable, ErrCodeRateLimited, ErrCodeMarketDataFailed,
		ErrCodeIndexQueryFailed, ErrCodeIndexNotFound, ErrCodeHoldingsQueryFailed,
		ErrCodeWebSearchFailed, ErrCodeEmailSendFailed:
		return "provider"
	case ErrCodeCacheUnavailable:
		return "infrastructure"
	}
	return "internal"
}

// IsRetryable reports whether the error is a retryable StandardError.
func IsRetryable(err error) bool {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Retryable
	}
	return false
}

// Normalize ensures any error is represented as a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return NewInternalError(err)
}
