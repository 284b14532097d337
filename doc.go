// Package simulationtools is the core messaging library for simulation
// platform components. It provides the typed message schema and wire
// codec (message), the epoch-synchronization coordinator (component), the
// NATS bus client (busclient), a JetStream-backed message archive
// (msgstore), the UCUM unit code registry (vocabulary), and the shared
// configuration, metrics and error handling used by all components.
package simulationtools
