package message

import (
	"encoding/json"
	"fmt"

	"github.com/simcesplatform/simulation-tools/errors"
)

// envelopeKeys are the wire attributes consumed by the envelope.
var envelopeKeys = map[string]bool{
	AttrType:            true,
	AttrSimulationID:    true,
	AttrSourceProcessID: true,
	AttrMessageID:       true,
	AttrTimestamp:       true,
}

// resultKeys are the wire attributes consumed by the result fields.
var resultKeys = map[string]bool{
	AttrEpochNumber:          true,
	AttrLastUpdatedInEpoch:   true,
	AttrTriggeringMessageIds: true,
	AttrWarnings:             true,
}

// GeneralMessage is the schema-light fallback for message types without a
// dedicated implementation. It validates only the envelope and preserves
// all other attributes untouched in Extra, which keeps unrecognized types
// flowing through the system.
type GeneralMessage struct {
	Envelope
	Extra map[string]any `json:"-"`
}

// MarshalJSON flattens the envelope attributes and the extra attributes
// into one JSON object.
func (m *GeneralMessage) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(&m.Envelope, nil, m.Extra)
}

// UnmarshalJSON decodes the envelope attributes and collects everything
// else into Extra.
func (m *GeneralMessage) UnmarshalJSON(data []byte) error {
	type alias GeneralMessage
	if err := json.Unmarshal(data, (*alias)(m)); err != nil {
		return errors.WrapInvalid(err, "GeneralMessage", "UnmarshalJSON", "decode attributes")
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.WrapInvalid(err, "GeneralMessage", "UnmarshalJSON", "decode attributes")
	}
	m.Extra = collectExtra(raw, envelopeKeys)
	return nil
}

func (m *GeneralMessage) finalize() error {
	// Any type tag is accepted: this is the extensibility escape hatch.
	return m.Envelope.finalize("")
}

// ResultMessage is the schema-light result message: envelope and result
// fields are validated, all remaining attributes are preserved in Extra.
type ResultMessage struct {
	Envelope
	ResultFields
	Extra map[string]any `json:"-"`
}

// MarshalJSON flattens the declared attributes and the extra attributes
// into one JSON object.
func (m *ResultMessage) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(&m.Envelope, &m.ResultFields, m.Extra)
}

// UnmarshalJSON decodes the declared attributes and collects everything
// else into Extra.
func (m *ResultMessage) UnmarshalJSON(data []byte) error {
	type alias ResultMessage
	if err := json.Unmarshal(data, (*alias)(m)); err != nil {
		return errors.WrapInvalid(err, "ResultMessage", "UnmarshalJSON", "decode attributes")
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.WrapInvalid(err, "ResultMessage", "UnmarshalJSON", "decode attributes")
	}
	m.Extra = collectExtra(raw, envelopeKeys, resultKeys)
	return nil
}

func (m *ResultMessage) finalize() error {
	if err := m.Envelope.finalize(""); err != nil {
		return err
	}
	m.ResultFields.normalize()
	return m.ResultFields.validate()
}

// TimeSeries extracts the named extra attribute as a validated time series
// block. Decoded messages carry the block as a raw JSON object, so the
// attribute goes through the block coercion.
func (m *ResultMessage) TimeSeries(name string) (*TimeSeriesBlock, error) {
	value, ok := m.Extra[name]
	if !ok {
		return nil, errors.Invalid(errors.ErrInvalidValue,
			fmt.Sprintf("result message has no attribute '%s'", name))
	}
	return CoerceTimeSeries(value)
}

// SetTimeSeries stores a time series block as an extra attribute. The
// block is validated before the message is touched.
func (m *ResultMessage) SetTimeSeries(name string, block *TimeSeriesBlock) error {
	if name == "" {
		return errors.Invalid(errors.ErrInvalidValue, "attribute name cannot be empty")
	}
	validated, err := CoerceTimeSeries(block)
	if err != nil {
		return err
	}
	if m.Extra == nil {
		m.Extra = make(map[string]any)
	}
	m.Extra[name] = validated
	return nil
}

// collectExtra returns the attributes of raw not claimed by any of the
// given declared key sets. Returns nil when nothing is left over.
func collectExtra(raw map[string]any, declared ...map[string]bool) map[string]any {
	var extra map[string]any
	for key, value := range raw {
		claimed := false
		for _, keys := range declared {
			if keys[key] {
				claimed = true
				break
			}
		}
		if !claimed {
			if extra == nil {
				extra = make(map[string]any)
			}
			extra[key] = value
		}
	}
	return extra
}

// marshalWithExtra merges the declared attribute structs with the extra
// attributes into one flat JSON object. Declared attributes win on
// collision.
func marshalWithExtra(envelope *Envelope, result *ResultFields, extra map[string]any) ([]byte, error) {
	merged := make(map[string]any, len(extra)+8)
	for key, value := range extra {
		merged[key] = value
	}

	if err := mergeStruct(merged, envelope); err != nil {
		return nil, err
	}
	if result != nil {
		if err := mergeStruct(merged, result); err != nil {
			return nil, err
		}
	}
	return json.Marshal(merged)
}

func mergeStruct(target map[string]any, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.WrapInvalid(err, "message", "mergeStruct", "encode declared attributes")
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return errors.WrapInvalid(err, "message", "mergeStruct", "decode declared attributes")
	}
	for key, value := range fields {
		target[key] = value
	}
	return nil
}
