package stablequeue

import "errors"

const Namespace = "stablequeue"

var (
	ErrInvalidConfig    = errors.New(Namespace + ": invalid configuration")
	ErrAlreadyCommitted = errors.New(Namespace + ": result already committed for this job")
)
