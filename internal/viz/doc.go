// Package viz renders simulations in the terminal.
//
// The live view is a Bubble Tea program hosting a [stepper.Stepper]:
//
//   - [Live]: plots one series in real time and tunes parameters while running
//   - [Picker]: chooses a catalogue model, then hands over to [Live]
//   - [Canvas]: braille dot grid used for phase portraits
//   - [PlotSeries] and [PlotHysteresis]: static charts for the CLI
//
// # Key Bindings
//
//	Space - Play/pause
//	R     - Reset to initial values
//	Tab   - Cycle parameters
//	↑/↓   - Tune the selected parameter
//	F     - Cycle the plotted series
//	P     - Toggle phase portrait
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
