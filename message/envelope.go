package message

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/simcesplatform/simulation-tools/errors"
)

// Wire attribute names shared by all message types.
const (
	AttrType            = "Type"
	AttrSimulationID    = "SimulationId"
	AttrSourceProcessID = "SourceProcessId"
	AttrMessageID       = "MessageId"
	AttrTimestamp       = "Timestamp"
)

// messageIDPattern matches "<source process id>-<integer>".
var messageIDPattern = regexp.MustCompile(`^.+-[0-9]+$`)

// attribute is one row of a message type's declared attribute table.
// Generated attributes may be missing from inbound JSON because a default
// value is filled in during decoding.
type attribute struct {
	name      string
	optional  bool
	generated bool
}

// envelopeAttributes is the declared attribute table for the envelope.
var envelopeAttributes = []attribute{
	{name: AttrType},
	{name: AttrSimulationID},
	{name: AttrSourceProcessID},
	{name: AttrMessageID},
	{name: AttrTimestamp, generated: true},
}

// checkRequired verifies that every non-optional declared attribute is
// present in the raw JSON object. Validation is fail-fast: the first
// missing attribute aborts.
func checkRequired(raw map[string]any, tables ...[]attribute) error {
	for _, table := range tables {
		for _, attr := range table {
			if attr.optional || attr.generated {
				continue
			}
			if _, ok := raw[attr.name]; !ok {
				return errors.Invalid(errors.ErrInvalidValue,
					fmt.Sprintf("%s attribute is missing from the message", attr.name))
			}
		}
	}
	return nil
}

// Envelope holds the attributes common to all simulation platform messages.
// Concrete message types embed it; it is never sent on its own.
type Envelope struct {
	Type            string `json:"Type"`
	SimulationID    string `json:"SimulationId"`
	SourceProcessID string `json:"SourceProcessId"`
	MessageID       string `json:"MessageId"`
	Timestamp       string `json:"Timestamp"`
}

// Message is the interface implemented by all decoded or constructed
// simulation platform messages.
type Message interface {
	// Meta returns the common envelope attributes.
	Meta() *Envelope
}

// HasResultFields is implemented by message types that carry the epoch
// bookkeeping attributes.
type HasResultFields interface {
	Result() *ResultFields
}

// Meta returns the envelope itself, promoting the Message interface to
// every type that embeds Envelope.
func (e *Envelope) Meta() *Envelope {
	return e
}

// normalize fills in a missing timestamp and converts the datetime
// attributes to the wire format. Must run before validation.
func (e *Envelope) normalize() error {
	if e.Timestamp == "" {
		e.Timestamp = Now()
	} else {
		normalized, err := NormalizeTimestamp(e.Timestamp)
		if err != nil {
			return err
		}
		e.Timestamp = normalized
	}

	if e.SimulationID != "" {
		normalized, err := NormalizeTimestamp(e.SimulationID)
		if err != nil {
			return err
		}
		e.SimulationID = normalized
	}
	return nil
}

// validate checks the envelope attributes in declared order.
// expectedType is the type tag of the concrete message; an empty string
// accepts any non-empty tag (the schema-light fallback path).
func (e *Envelope) validate(expectedType string) error {
	if e.Type == "" {
		return errors.Invalid(errors.ErrInvalidType, "message type is missing")
	}
	if expectedType != "" && e.Type != expectedType {
		return errors.Invalid(errors.ErrInvalidType,
			fmt.Sprintf("'%s' is not an allowed message type, expected '%s'", e.Type, expectedType))
	}
	if !IsValidTimestamp(e.SimulationID) {
		return errors.Invalid(errors.ErrInvalidDate,
			fmt.Sprintf("'%s' is an invalid simulation id", e.SimulationID))
	}
	if e.SourceProcessID == "" {
		return errors.Invalid(errors.ErrInvalidSource, "source process id is missing")
	}
	if !IsValidMessageID(e.MessageID) {
		return errors.Invalid(errors.ErrInvalidMessageID,
			fmt.Sprintf("'%s' is an invalid message id", e.MessageID))
	}
	if !IsValidTimestamp(e.Timestamp) {
		return errors.Invalid(errors.ErrInvalidDate,
			fmt.Sprintf("'%s' is an invalid timestamp", e.Timestamp))
	}
	return nil
}

// finalize normalizes and validates in one call. Used by the direct
// construction paths.
func (e *Envelope) finalize(expectedType string) error {
	if err := e.normalize(); err != nil {
		return err
	}
	return e.validate(expectedType)
}

// Equal reports structural equality over the envelope attributes.
func (e *Envelope) Equal(other *Envelope) bool {
	return other != nil && *e == *other
}

// IsValidMessageID reports whether the value matches the
// "<process>-<integer>" message id pattern.
func IsValidMessageID(value string) bool {
	return messageIDPattern.MatchString(value)
}

// ToBytes encodes the message as UTF-8 JSON bytes for the message bus.
func ToBytes(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.WrapInvalid(err, "message", "ToBytes", "encode message")
	}
	return data, nil
}

// Equal reports field-wise structural equality between two messages of any
// concrete type. Both messages are compared through their wire
// representation so that only declared attributes participate.
func Equal(a, b Message) bool {
	if a == nil || b == nil {
		return a == b
	}
	rawA, errA := canonicalJSON(a)
	rawB, errB := canonicalJSON(b)
	if errA != nil || errB != nil {
		return false
	}
	return deepEqualJSON(rawA, rawB)
}

func canonicalJSON(m Message) (map[string]any, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// deepEqualJSON compares two decoded JSON objects through their marshalled
// form. encoding/json sorts map keys, so the output is deterministic.
func deepEqualJSON(a, b map[string]any) bool {
	dataA, errA := json.Marshal(a)
	dataB, errB := json.Marshal(b)
	return errA == nil && errB == nil && string(dataA) == string(dataB)
}
