// Package cmd implements the trialxml CLI commands using Cobra.
//
// Available commands:
//   - convert: Render trials as JUnit XML, console, TAP or JSON
//   - validate: Check trial files against the trial schema
//   - inspect: Read an existing JUnit report and print it
//   - history: List reports recorded by convert --record
//   - init: Create an example config and trial file
//   - version: Show trialxml version information
//   - completion: Generate shell completion scripts
package cmd
