package param

import "errors"

var (
	// ErrInvalidParameterValue is returned for values outside a parameter's
	// declared range or of the wrong kind. The previous value is kept.
	ErrInvalidParameterValue = errors.New("invalid parameter value")
	// ErrUnknownParameter is returned for ids that were never declared.
	ErrUnknownParameter = errors.New("unknown parameter")
	// ErrConfigurationExceeded is returned when a value was clamped to the
	// supported maximum. The clamped value is applied.
	ErrConfigurationExceeded = errors.New("configuration exceeds supported maximum")
	// ErrQueueFull is returned when a sample-accurate event cannot be queued.
	ErrQueueFull = errors.New("parameter event queue full")
	// ErrDuplicateParameter is returned when two parameters share an id.
	ErrDuplicateParameter = errors.New("duplicate parameter id")
)
