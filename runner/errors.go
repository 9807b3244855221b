package runner

import "errors"

// Sentinel errors for the runner package.
var (
	// ErrMaxFailures is returned when the max failure limit is reached.
	ErrMaxFailures = errors.New("runner: max failures reached")

	// ErrNoAnalyzer is returned when Run is called without an analyzer.
	ErrNoAnalyzer = errors.New("runner: no analyzer configured")

	// ErrUnknownFormat is returned by NewFormatter for unknown names.
	ErrUnknownFormat = errors.New("runner: unknown output format")

	// Test errors for use in unit tests.
	errTestStop = errors.New("test: stop")
)
