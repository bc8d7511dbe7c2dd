// Package viz draws linkages in the terminal.
//
//   - [Canvas]: Braille pixel canvas, 2x4 dots per cell
//   - [DrawLinkage], [LinkageViewport]: the loop in world coordinates
//   - [Plot], [PlotMany]: asciigraph line charts
//   - [Player]: a Bubble Tea program that replays a trajectory
//
// # Key Bindings
//
//	Space - Pause/Resume playback
//	←/→   - Seek half a second
//	+/-   - Change playback speed
//	R     - Restart
//	T     - Cycle color themes
//	Q     - Quit
package viz
