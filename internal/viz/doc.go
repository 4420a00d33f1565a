// Package viz renders a running simulation in the terminal with Bubble Tea.
//
// The live view steps an experiment's stepper on a timer, draws the system
// on a braille [Canvas] and charts energy and Newton iteration counts with
// asciigraph.
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset to the configured initial state
//	.     - Single step while paused
//	Tab   - Select parameter
//	Up/K  - Increase selected parameter by 5%
//	Down/J - Decrease selected parameter by 5%
//	Q     - Quit
package viz
