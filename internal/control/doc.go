// Package control provides the joint servo law used by the simulated arm.
//
// [PID] implements [dynamo.Controller] over a position/velocity state and
// drives every joint toward its own target:
//
//	pid := control.NewPID(40, 0, 12, []float64{0, 0, 0})
//	pid.SetTargets(goal)
//	u := pid.Compute(x, t)
package control
