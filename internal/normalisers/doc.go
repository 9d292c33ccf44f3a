// Package normalisers provides implementations of the Normaliser interface
// for the supported upload formats and a registry that dispatches on file
// extension. Each normaliser knows how to extract plain text from one
// family of formats.
//
// Normalisers are registered with the Registry at startup.
package normalisers
