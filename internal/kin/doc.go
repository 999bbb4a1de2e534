// Package kin provides the kinematic state-estimation core for serial arms.
//
// The package covers:
//
//   - [Chain]: an immutable open serial chain between a base link and an end link
//   - [ComputePose]: forward kinematics of a link relative to another
//   - [ComputeJacobian]: the 6xN geometric Jacobian of the end link
//   - [TransportedPositions], [TransportedJacobians], [TransportedVelocities]:
//     rigid-body transport of the end-link quantities to offset points
//
// # Frames
//
// Every result is expressed in base-link coordinates. Jacobians have three
// translational rows followed by three rotational rows and one column per
// moving joint, in chain order.
//
// # Thread Safety
//
// All functions are pure. A [Chain] is read-only after construction and may be
// shared by any number of goroutines.
//
// # Singularities
//
// Degenerate configurations are not detected. Callers that need conditioning
// information should inspect the singular values of the returned Jacobian.
package kin
