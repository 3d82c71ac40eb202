// Package errs defines the error categories reported by tagreads.
//
// Every fatal condition is wrapped around one of these sentinels so that
// callers can classify it with errors.Is while keeping the context
// (path, line number, read name) in the message.
package errs

import "errors"

var (
	// ErrInvalidTagFormat is returned for a malformed ID[:VALUE] token
	ErrInvalidTagFormat = errors.New("invalid tag format")

	// ErrParse is returned for malformed numeric text, BED lines or flags
	ErrParse = errors.New("parse error")

	// ErrIO is returned when reading, writing or indexing alignments fails
	ErrIO = errors.New("i/o error")

	// ErrMissingInput is returned when a required input path does not exist
	ErrMissingInput = errors.New("missing input")

	// ErrConfiguration is returned for an unusable combination of options
	ErrConfiguration = errors.New("configuration error")
)
