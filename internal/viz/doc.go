// Package viz provides a terminal view of a running reaching episode.
//
// The view is a Bubble Tea program: a top-down Braille drawing of the arm
// with its targets next to live episode statistics and a distance plot.
//
// # Key Bindings
//
//	Space - Pause/Resume the episode
//	R     - Reset the episode
//	T     - Cycle color themes
//	Q     - Quit
package viz
