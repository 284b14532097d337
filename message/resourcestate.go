package message

import (
	"encoding/json"
	"fmt"

	"github.com/simcesplatform/simulation-tools/errors"
)

// Wire attribute names for resource state messages.
const (
	AttrBus           = "Bus"
	AttrRealPower     = "RealPower"
	AttrReactivePower = "ReactivePower"
	AttrNode          = "Node"
	AttrStateOfCharge = "StateOfCharge"
)

// Expected units of measure for the resource state quantity blocks.
const (
	UnitRealPower     = "kW"
	UnitReactivePower = "kV.A{r}"
	UnitStateOfCharge = "%"
)

var resourceStateAttributes = []attribute{
	{name: AttrBus},
	{name: AttrRealPower},
	{name: AttrReactivePower},
	{name: AttrNode, optional: true},
	{name: AttrStateOfCharge, optional: true},
}

// acceptedNodeValues are the phases a 1-phase resource can be connected to.
var acceptedNodeValues = map[int]bool{1: true, 2: true, 3: true}

// ResourceStateMessage reports the electrical state of one resource for an
// epoch. RealPower and ReactivePower are quantity blocks with fixed
// expected units; a bare number on the wire is wrapped with the expected
// unit during decoding. Node is nil for a 3-phase resource.
type ResourceStateMessage struct {
	Envelope
	ResultFields
	Bus           string         `json:"Bus"`
	RealPower     QuantityBlock  `json:"RealPower"`
	ReactivePower QuantityBlock  `json:"ReactivePower"`
	Node          *int           `json:"Node,omitempty"`
	StateOfCharge *QuantityBlock `json:"StateOfCharge,omitempty"`
}

// UnmarshalJSON decodes a resource state message, coercing the quantity
// attributes from either bare numbers or block objects.
func (m *ResourceStateMessage) UnmarshalJSON(data []byte) error {
	type alias ResourceStateMessage
	aux := &struct {
		*alias
		RealPower     json.RawMessage `json:"RealPower"`
		ReactivePower json.RawMessage `json:"ReactivePower"`
		StateOfCharge json.RawMessage `json:"StateOfCharge"`
	}{alias: (*alias)(m)}

	if err := json.Unmarshal(data, aux); err != nil {
		return errors.WrapInvalid(err, "ResourceStateMessage", "UnmarshalJSON", "decode attributes")
	}

	if len(aux.RealPower) > 0 {
		block, err := coerceQuantityJSON(aux.RealPower, UnitRealPower)
		if err != nil {
			return err
		}
		m.RealPower = *block
	}
	if len(aux.ReactivePower) > 0 {
		block, err := coerceQuantityJSON(aux.ReactivePower, UnitReactivePower)
		if err != nil {
			return err
		}
		m.ReactivePower = *block
	}
	if len(aux.StateOfCharge) > 0 && string(aux.StateOfCharge) != "null" {
		block, err := coerceQuantityJSON(aux.StateOfCharge, UnitStateOfCharge)
		if err != nil {
			return err
		}
		m.StateOfCharge = block
	}
	return nil
}

func (m *ResourceStateMessage) finalize() error {
	if err := m.Envelope.finalize(TypeResourceState); err != nil {
		return err
	}
	m.ResultFields.normalize()
	if err := m.ResultFields.validate(); err != nil {
		return err
	}
	return m.validate()
}

func (m *ResourceStateMessage) validate() error {
	if m.Bus == "" {
		return errors.Invalid(errors.ErrInvalidValue, "bus name cannot be empty")
	}
	if m.RealPower.UnitOfMeasure != UnitRealPower {
		return errors.Invalid(errors.ErrInvalidUnit,
			fmt.Sprintf("real power must be given in '%s'", UnitRealPower))
	}
	if m.ReactivePower.UnitOfMeasure != UnitReactivePower {
		return errors.Invalid(errors.ErrInvalidUnit,
			fmt.Sprintf("reactive power must be given in '%s'", UnitReactivePower))
	}
	if m.Node != nil && !acceptedNodeValues[*m.Node] {
		return errors.Invalid(errors.ErrInvalidValue,
			fmt.Sprintf("'%d' is an invalid node: not 1, 2 or 3", *m.Node))
	}
	if m.StateOfCharge != nil {
		if m.StateOfCharge.UnitOfMeasure != UnitStateOfCharge {
			return errors.Invalid(errors.ErrInvalidUnit,
				fmt.Sprintf("state of charge must be given in '%s'", UnitStateOfCharge))
		}
		if m.StateOfCharge.Value < 0 || m.StateOfCharge.Value > 100 {
			return errors.Invalid(errors.ErrInvalidValue,
				fmt.Sprintf("'%f' is an invalid state of charge percentage", m.StateOfCharge.Value))
		}
	}
	return nil
}
