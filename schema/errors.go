package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidTheme indicates an empty theme name.
	ErrInvalidTheme = errors.New("invalid theme")
	// ErrInvalidFontSize indicates a non-positive font size.
	ErrInvalidFontSize = errors.New("invalid font size")
	// ErrInvalidSnippet indicates a snippet without a label.
	ErrInvalidSnippet = errors.New("invalid snippet")
	// ErrRunBusy indicates a run is already in flight.
	ErrRunBusy = errors.New("run already in progress")
	// ErrNoEditor indicates no editor handle is attached.
	ErrNoEditor = errors.New("no editor attached")
	// ErrUnknownBackend indicates an unsupported storage backend.
	ErrUnknownBackend = errors.New("unknown storage backend")
)
