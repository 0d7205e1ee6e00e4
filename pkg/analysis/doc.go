// Package analysis recovers sum-of-products equations from a walk
// transcript.
//
// A Session carries one capture through every stage. All per-pin state
// lives in fixed arrays indexed by socket bit, so sessions are
// independent and can run side by side.
//
// # Stages
//
//  1. Classify folds every trial into pin classes: always input, output,
//     stuck low or high, and open drain (drives only one level)
//  2. BuildAffectGraph compares each trial with its one-bit-flip partner
//     and records which pins change when a walked bit flips
//  3. CollectTerms fills one term table per output pin, keyed by the
//     applied levels of the pins that affect it
//  4. Minimize repeats three passes until nothing changes or the
//     iteration cap is hit: MergeAdjacent, EliminateSubsumed and
//     MergeShared, which rewrites an output in terms of another output
//     it contains
//  5. WriteEquations and WriteReport print the result; Export,
//     ExportJSON and ExportSexp give machine readable forms
//
// Each stage can be called on its own over hand built input.
//
// # Usage
//
//	c, err := capture.ReadFile("gal.txt")
//	if err != nil {
//		return err
//	}
//	s, err := analysis.Analyze(c.Trials, analysis.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	names := pinconf.NewTable()
//	s.WriteReport(os.Stdout, names, names)
//
// # Diagnostics
//
// Problems in the evidence never stop the analysis. A pattern that reads
// back two ways keeps its first result (HiddenState); a pin with more
// patterns than its affect mask allows is dropped (TableOverflow); a
// capture out of counting order is flagged (UnexpectedStimulus); and a
// minimizer that hits the cap leaves usable tables (NotConverged). All of
// them are collected in Session.Diagnostics.
package analysis
