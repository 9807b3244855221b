package pdchain

import "errors"

// Sentinel errors.
var (
	// ErrConfigNotFound is returned when no .pdchain.yaml is found.
	ErrConfigNotFound = errors.New("pdchain: no .pdchain.yaml found")

	// ErrDanglingLink is returned by Validate when a block references an index outside the chain.
	ErrDanglingLink = errors.New("pdchain: dangling block link")

	// ErrCycle is returned by Validate when following links revisits a block.
	ErrCycle = errors.New("pdchain: cyclic block links")

	// ErrNoEntry is returned by Validate when index 0 is not a Variable block.
	ErrNoEntry = errors.New("pdchain: chain entry is not a variable block")

	// ErrBadColumnMeta is returned when encoded column metadata cannot be decoded.
	ErrBadColumnMeta = errors.New("pdchain: malformed column metadata")

	// ErrNoRequests is returned when a request file holds no documents.
	ErrNoRequests = errors.New("pdchain: request file is empty")
)
