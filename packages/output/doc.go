// Package output renders trials for people and CI systems.
//
// Supported output formats:
//   - JUnit: JUnit XML <testsuite> documents for CI integration
//   - Console: Human-readable colored terminal output
//   - JSON: Machine-readable JSON output
//   - TAP: Test Anything Protocol format
//
// Each formatter accepts trials through FormatTrial. Formats that accumulate
// trials before writing also implement Flush. FormatJUnit is the stateless
// single-document entry point.
package output
