package simulation

import "errors"

// Sentinel errors for simulation runs.
var (
	ErrInvalidConfig = errors.New("invalid simulation config")
	ErrVerification  = errors.New("verification failed")
	ErrMirrorDropped = errors.New("simulated mirror write loss")
)
