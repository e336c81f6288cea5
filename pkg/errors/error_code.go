package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown   ErrorCode = 1
	ErrCodeTaskPanic ErrorCode = 2

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeVersionMismatch      ErrorCode = 102

	// Stream errors (200-299)
	ErrCodeConnectionFailed   ErrorCode = 200
	ErrCodeSubscribeFailed    ErrorCode = 201
	ErrCodeMessageParseFailed ErrorCode = 202
	ErrCodeNotConnected       ErrorCode = 203

	// Persistence errors (300-399)
	ErrCodePersistenceFailed  ErrorCode = 300
	ErrCodeArtifactReadFailed ErrorCode = 301
	ErrCodeUnsupportedWriter  ErrorCode = 302

	// Aggregation errors (400-499)
	ErrCodeNoContributions ErrorCode = 400
)
