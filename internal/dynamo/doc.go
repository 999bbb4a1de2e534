// Package dynamo provides the simulation primitives used by the simulated arm.
//
//   - [State]: vector representing system state (positions then velocities)
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper interface
//   - [Controller]: feedback controller interface
//
// # Example
//
//	integ := integrators.NewRK4()
//	x = integ.Step(joints, x, u, t, dt)
package dynamo
