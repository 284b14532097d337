// Package message defines the typed, schema-validated messages exchanged on
// the simulation message bus.
//
// Every message carries the common envelope attributes (Type, SimulationId,
// SourceProcessId, MessageId, Timestamp). Result messages additionally carry
// the epoch bookkeeping attributes (EpochNumber, TriggeringMessageIds,
// LastUpdatedInEpoch, Warnings). Concrete message types embed Envelope and
// ResultFields instead of inheriting them, and the package-level registry
// dispatches decoding by the Type attribute.
//
// The package exposes two construction surfaces with different failure
// semantics:
//
//   - Direct construction (the Generator and the New* constructors) returns
//     a typed error from the errors package when an attribute is invalid.
//     A programmer-controlled call should fail loudly.
//   - Decode never returns an error for untrusted input. Payloads that do
//     not validate against any schema degrade to a raw JSON map, and
//     payloads that are not JSON at all degrade to a raw string.
package message
