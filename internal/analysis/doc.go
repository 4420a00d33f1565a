// Package analysis post-processes recorded runs.
//
//   - [Spectrum] and [DominantFrequency]: power spectrum of one state
//     component, for measuring the period error a stepper introduces
//   - [PhasePortrait]: one state component against another, as text or SVG
package analysis
