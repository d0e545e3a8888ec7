// Package trial defines the read-only data consumed by report formatters.
//
// A Trial is a named run of tests with aggregate counts. Each Outcome is the
// pass/fail result of one test plus an optional error message. Adapters in
// packages/adapters translate concrete result formats into these interfaces.
package trial
