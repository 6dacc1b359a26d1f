// Package errors provides error codes for buildnotify
package errors

// ErrorCode represents a buildnotify error code
type ErrorCode string

// Configuration Error Codes
const (
	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig ErrorCode = "INVALID_CONFIG"

	// ErrMissingCredentials indicates the gateway credentials are not configured
	ErrMissingCredentials ErrorCode = "MISSING_CREDENTIALS"
)

// Input Error Codes
const (
	// ErrInvalidTarget indicates an unusable recipient
	ErrInvalidTarget ErrorCode = "INVALID_TARGET"

	// ErrInvalidEvent indicates a build event that could not be decoded
	ErrInvalidEvent ErrorCode = "INVALID_EVENT"
)

// Dispatch Error Codes
const (
	// ErrTransportFailed indicates a non-200 response from an external API
	ErrTransportFailed ErrorCode = "TRANSPORT_FAILED"

	// ErrGatewayRejected indicates the SMS gateway answered 200 with a non-zero errorCode
	ErrGatewayRejected ErrorCode = "GATEWAY_REJECTED"

	// ErrInvalidResponse indicates a response envelope that could not be decoded
	ErrInvalidResponse ErrorCode = "INVALID_RESPONSE"

	// ErrShortenFailed indicates the URL shortener did not return a usable URL
	ErrShortenFailed ErrorCode = "SHORTEN_FAILED"
)

// Network Error Codes
const (
	// ErrConnectionFailed indicates the request never produced a response
	ErrConnectionFailed ErrorCode = "CONNECTION_FAILED"

	// ErrRateLimitExceeded indicates the outbound rate limiter refused to wait
	ErrRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
)

// System Error Codes
const (
	// ErrInternal indicates an internal error
	ErrInternal ErrorCode = "INTERNAL"
)

// ErrorCodeInfo provides information about an error code
type ErrorCodeInfo struct {
	Code        ErrorCode `json:"code"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
}

var errorCodeInfoMap = map[ErrorCode]ErrorCodeInfo{
	ErrInvalidConfig: {
		Code: ErrInvalidConfig, Category: "configuration", Description: "Invalid configuration provided",
	},
	ErrMissingCredentials: {
		Code: ErrMissingCredentials, Category: "configuration", Description: "Gateway credentials are not configured",
	},
	ErrInvalidTarget: {
		Code: ErrInvalidTarget, Category: "input", Description: "Invalid recipient",
	},
	ErrInvalidEvent: {
		Code: ErrInvalidEvent, Category: "input", Description: "Build event could not be decoded",
	},
	ErrTransportFailed: {
		Code: ErrTransportFailed, Category: "dispatch", Description: "External API returned a non-OK status",
	},
	ErrGatewayRejected: {
		Code: ErrGatewayRejected, Category: "dispatch", Description: "SMS gateway rejected the message",
	},
	ErrInvalidResponse: {
		Code: ErrInvalidResponse, Category: "dispatch", Description: "External API response could not be decoded",
	},
	ErrShortenFailed: {
		Code: ErrShortenFailed, Category: "dispatch", Description: "URL shortening failed",
	},
	ErrConnectionFailed: {
		Code: ErrConnectionFailed, Category: "network", Description: "Failed to reach the external API",
	},
	ErrRateLimitExceeded: {
		Code: ErrRateLimitExceeded, Category: "network", Description: "Outbound rate limit exceeded",
	},
	ErrInternal: {
		Code: ErrInternal, Category: "system", Description: "Internal error",
	},
}

// GetErrorCodeInfo returns information about an error code
func GetErrorCodeInfo(code ErrorCode) ErrorCodeInfo {
	info, exists := errorCodeInfoMap[code]
	if !exists {
		return ErrorCodeInfo{
			Code:        code,
			Category:    "unknown",
			Description: "Unknown error code",
		}
	}
	return info
}

// GetCategory returns the category of an error code
func GetCategory(code ErrorCode) string {
	return GetErrorCodeInfo(code).Category
}
