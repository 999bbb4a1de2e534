package kin

import "errors"

// Domain errors for kinematic operations. All of them indicate a configuration
// or integration bug and are not retryable.
var (
	// ErrDimensionMismatch indicates a vector or matrix with the wrong shape.
	ErrDimensionMismatch = errors.New("kin: dimension mismatch")

	// ErrInvalidChainConfiguration indicates an unreachable link or a cyclic description.
	ErrInvalidChainConfiguration = errors.New("kin: invalid chain configuration")

	// ErrJointOrderMismatch indicates a joint-name list that differs from the chain order.
	ErrJointOrderMismatch = errors.New("kin: joint order mismatch")

	// ErrInvalidRotation indicates a matrix that is not a proper rotation.
	ErrInvalidRotation = errors.New("kin: invalid rotation")
)
