package message

import (
	"fmt"

	"github.com/simcesplatform/simulation-tools/errors"
)

// Status values.
const (
	StatusReady = "ready"
	StatusError = "error"
)

// AttrStatusValue is the wire attribute name for the status value.
const AttrStatusValue = "Value"

var statusAttributes = []attribute{
	{name: AttrStatusValue},
	{name: "Description", optional: true},
}

// StatusMessage reports that a component has finished its work for the
// current epoch ("ready") or hit a problem ("error").
type StatusMessage struct {
	Envelope
	ResultFields
	Value       string `json:"Value"`
	Description string `json:"Description,omitempty"`
}

func (m *StatusMessage) finalize() error {
	if err := m.Envelope.finalize(TypeStatus); err != nil {
		return err
	}
	m.ResultFields.normalize()
	if err := m.ResultFields.validate(); err != nil {
		return err
	}
	return m.validate()
}

func (m *StatusMessage) validate() error {
	if m.Value != StatusReady && m.Value != StatusError {
		return errors.Invalid(errors.ErrInvalidValue,
			fmt.Sprintf("'%s' is not a valid status value", m.Value))
	}
	return nil
}
