package errors

// ErrorCode represents a specific error code in the system.
type ErrorCode string

const (
	// GeneralInternalServerError represents a generic internal server error.
	GeneralInternalServerError ErrorCode = "internal_error"
	// DBQueryFailed represents a failed query against the time-series store.
	DBQueryFailed ErrorCode = "db_query_failed"

	// InvalidArgument represents a caller error: bad symbol, limit or timeframe.
	// Never retried.
	InvalidArgument ErrorCode = "invalid_argument"
	// DataUnavailable represents a store failure. The whole call is safe to retry.
	DataUnavailable ErrorCode = "data_unavailable"
	// LateTick represents a tick that arrived for an already-closed bucket.
	// Dropped and counted, never surfaced as a hard error.
	LateTick ErrorCode = "late_tick"
	// ProtocolError represents a malformed streaming message. Reported on the
	// connection without closing it.
	ProtocolError ErrorCode = "protocol_error"
	// TransportError represents a dropped connection.
	TransportError ErrorCode = "transport_error"

	// RedisConfigError represents an invalid or nil Redis configuration.
	RedisConfigError ErrorCode = "redis_config_error"
	// RedisConnectionError represents an error when connecting to Redis.
	RedisConnectionError ErrorCode = "redis_connection_error"
)

// ErrorDetails represents detailed information about an error.
type ErrorDetails struct {
	// Message (required) is the user-defined error message.
	// E.g. "limit exceeds the maximum of 10000".
	Message string

	// Code (required) is the error code string.
	Code string

	// Field (optional) is the related field the error occurred on, if any.
	Field string
}

// NewErrorDetails creates a new ErrorDetails struct with the given parameters.
func NewErrorDetails(message, code, field string) *ErrorDetails {
	return &ErrorDetails{
		Message: message,
		Code:    code,
		Field:   field,
	}
}

// Error is used to implement the Golang `error` interface.
func (e *ErrorDetails) Error() string {
	return e.Message
}

// ErrorCodeEquals checks whether a given `error` has a specific code.
// It unwraps ErrorTracer chains before comparing.
func ErrorCodeEquals(err error, code ErrorCode) bool {
	for err != nil {
		if details, ok := err.(*ErrorDetails); ok {
			return details.Code == string(code)
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
