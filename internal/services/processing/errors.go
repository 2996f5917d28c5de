package processing

import "errors"

var (
	ErrAxisMismatch     = errors.New("frequency axis mismatch")
	ErrNonMonotonicAxis = errors.New("non-monotonic frequency axis")
	ErrNoData           = errors.New("no spectra provided")
)
