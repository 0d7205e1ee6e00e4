// Package walk drives every input combination onto a device in a test
// socket and records what the device does with it.
//
// This is the capture side of the "drive every pattern, watch every pin"
// approach: the resulting transcript is fed to package analysis to recover
// the device's equations.
//
// # Overview
//
// A walk:
//  1. Picks the positions to hold constant (the ignore set), from pin
//     lists, the dip/plcc presets or a presence probe (see ParseIgnore)
//  2. Counts through every combination of the remaining positions,
//     driving each one and reading the socket back
//  3. Optionally records every (applied, observed) pair in the capture
//     framing, in hex, binary or raw encoding
//  4. Optionally classifies pins as it goes and then flips each walked
//     bit from a set of baselines to build the affect table
//
// # Usage
//
// Basic usage:
//
//	// 1. Open a socket
//	sock := socket.NewSim(socket.AndGate(0, 1, 2))
//
//	// 2. Configure the walk
//	cfg, err := walk.ParseIgnore([]string{"1-3", "values", "analyze"}, sock.Probe)
//
//	// 3. Create progress channel (optional)
//	progressCh := make(chan walk.Progress)
//	go func() {
//		for p := range progressCh {
//			fmt.Printf("%s %d%%\n", p.Phase, p.Percent)
//		}
//	}()
//
//	// 4. Run the walk
//	res, err := walk.Run(ctx, sock, cfg, os.Stdout, progressCh)
//	close(progressCh)
//
// # Stimulus
//
// The counter only carries through walked bits, so a walk over n
// positions takes 2^n patterns regardless of where the positions are.
// With walking zeros the complement of the counter is driven; ignored
// positions are held low, or high with invert (walking zeros implies
// invert).
//
// # Cancellation
//
// The context is checked every AbortStride patterns, after the pattern
// has been recorded. A cancelled walk flushes what it has, ends the
// transcript with the abort marker and returns ErrAborted with the
// partial Result. Readers see the abort marker and a short read.
//
// # Performance
//
// The walk costs 2^n drives. The quick analysis adds 2n pairs of drives;
// the deep analysis adds 2^n * n pairs and is only practical for small n.
package walk
