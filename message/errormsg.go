package message

import (
	"github.com/simcesplatform/simulation-tools/errors"
)

// AttrDescription is the wire attribute name for error descriptions.
const AttrDescription = "Description"

var errorAttributes = []attribute{
	{name: AttrDescription},
}

// ErrorMessage reports a component failure, for example a failed
// initialization, to the simulation manager.
type ErrorMessage struct {
	Envelope
	ResultFields
	Description string `json:"Description"`
}

func (m *ErrorMessage) finalize() error {
	if err := m.Envelope.finalize(TypeError); err != nil {
		return err
	}
	m.ResultFields.normalize()
	if err := m.ResultFields.validate(); err != nil {
		return err
	}
	return m.validate()
}

func (m *ErrorMessage) validate() error {
	if m.Description == "" {
		return errors.Invalid(errors.ErrInvalidValue, "error description cannot be empty")
	}
	return nil
}
