// Package runtime defines the managed agent runtime capability: function
// registration, turn invocation and the push-event stream, plus an HTTP
// client for runtimes that speak newline-delimited JSON events.
//
// Invariants:
// - A recognized event carries exactly one of chunk, trace or returnControl.
// - Streams are pull-based; Next returns io.EOF at end of stream.
// - Unrecognized events are surfaced with raw bytes, never dropped.
package runtime
