package message

import (
	"fmt"

	"github.com/simcesplatform/simulation-tools/errors"
)

// Simulation state values.
const (
	SimulationStateRunning = "running"
	SimulationStateStopped = "stopped"
)

// AttrSimulationState is the wire attribute name for the simulation state.
const AttrSimulationState = "SimulationState"

var simStateAttributes = []attribute{
	{name: AttrSimulationState},
	{name: "Name", optional: true},
	{name: "Description", optional: true},
}

// SimStateMessage announces a change of the overall simulation state.
// The simulation manager sends one with state "running" to start the
// simulation and one with state "stopped" to end it.
type SimStateMessage struct {
	Envelope
	SimulationState string `json:"SimulationState"`
	Name            string `json:"Name,omitempty"`
	Description     string `json:"Description,omitempty"`
}

func (m *SimStateMessage) finalize() error {
	if err := m.Envelope.finalize(TypeSimState); err != nil {
		return err
	}
	return m.validate()
}

func (m *SimStateMessage) validate() error {
	if m.SimulationState != SimulationStateRunning && m.SimulationState != SimulationStateStopped {
		return errors.Invalid(errors.ErrInvalidState,
			fmt.Sprintf("'%s' is not a valid simulation state", m.SimulationState))
	}
	return nil
}
