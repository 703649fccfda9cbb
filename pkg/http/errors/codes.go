package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeInvalidAnswer   = "invalid_answer"
	ErrCodeUnknownQuestion = "unknown_question"

	// Session errors
	ErrCodeQuizRequestTimeout = "quiz_request_timeout"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError    = "internal_error"
	ErrCodeStatsFetchFailed = "stats_fetch_failed"

	// Feature availability
	ErrCodeFeatureNotAvailable = "feature_not_available"
)
