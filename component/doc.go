// Package component implements the epoch-synchronization logic shared by
// all simulation components.
//
// A Coordinator connects a component to the simulation message bus,
// follows the simulation state broadcast by the simulation manager, and
// drives the component through the epoch cycle: receive an epoch message,
// run the component's epoch calculation, and report readiness with a
// status message. Domain components plug their own calculation in through
// the EpochProcessor interface and otherwise inherit the full protocol
// behaviour, including duplicate epoch suppression, status resending and
// error reporting.
package component
