package augprep

// Failure classes surfaced by the pipeline.

import "errors"

var (
	// ErrConfiguration indicates an invalid processor or parameter setup:
	// an unknown format name, mutually exclusive arguments supplied
	// together, or an invalid conversion direction.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrDataShape indicates a label column whose length does not match
	// its annotation stream.
	ErrDataShape = errors.New("data shape mismatch")

	// ErrUnsupportedType indicates an image value that is neither of the
	// recognised array representations.
	ErrUnsupportedType = errors.New("unsupported data type")

	// ErrValidation indicates a record that violates the structural
	// constraints of the canonical format.
	ErrValidation = errors.New("invalid record")
)
