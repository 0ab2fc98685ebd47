package engine

import "errors"

var (
	// ErrModelUnavailable means no model collaborator was configured.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrModelCallFailed means the model call failed or returned nothing usable.
	ErrModelCallFailed = errors.New("model call failed")
)

// ResponseFormatError reports a model response that is not valid JSON.
type ResponseFormatError struct {
	Err error
}

func (e *ResponseFormatError) Error() string { return "malformed model response: " + e.Err.Error() }
func (e *ResponseFormatError) Unwrap() error { return e.Err }

// SchemaValidationError reports a decodable response whose shape or values are invalid.
type SchemaValidationError struct {
	Err error
}

func (e *SchemaValidationError) Error() string { return "invalid model response: " + e.Err.Error() }
func (e *SchemaValidationError) Unwrap() error { return e.Err }

// ParsingError reports any other decoding failure.
type ParsingError struct {
	Err error
}

func (e *ParsingError) Error() string { return "parse model response: " + e.Err.Error() }
func (e *ParsingError) Unwrap() error { return e.Err }
