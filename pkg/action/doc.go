// Package action defines the telemetry records collected by trackship.
//
// An [Action] carries the fields every record shares (name, timestamp, user
// ids, ordered properties) plus a kind-specific [Payload]. The payload's
// [Kind] is the stable symbolic tag written to the wire so a decoder can
// rebuild the concrete record; it never depends on Go type names.
//
// Actions are values. Once handed to a tracker they are only read.
package action
