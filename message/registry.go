package message

import (
	"encoding/json"
	"log/slog"

	"github.com/simcesplatform/simulation-tools/errors"
)

// Type tags for the message kinds with dedicated implementations.
const (
	TypeSimState      = "SimState"
	TypeEpoch         = "Epoch"
	TypeStatus        = "Status"
	TypeError         = "Error"
	TypeResourceState = "ResourceState"
	TypeGeneral       = "General"
	TypeResult        = "Result"
)

// finalizer is implemented by every concrete message type: it fills in
// generated attributes, normalizes datetime formats and validates the
// declared attributes in order.
type finalizer interface {
	Message
	finalize() error
}

type decodeFunc func(data []byte, raw map[string]any) (Message, error)

// decodeInto is the shared decode path: check the declared attribute
// tables for required attributes, unmarshal, then finalize.
func decodeInto[T any, P interface {
	*T
	finalizer
}](data []byte, raw map[string]any, tables ...[]attribute) (Message, error) {
	if err := checkRequired(raw, tables...); err != nil {
		return nil, err
	}
	msg := P(new(T))
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, errors.WrapInvalid(err, "message", "decode", "unmarshal attributes")
	}
	if err := msg.finalize(); err != nil {
		return nil, err
	}
	return msg, nil
}

// decoders maps a type tag to its concrete decode path. An unmapped tag
// falls back to the GeneralMessage path, which validates only the envelope
// and preserves all attributes.
var decoders = map[string]decodeFunc{
	TypeSimState: func(data []byte, raw map[string]any) (Message, error) {
		return decodeInto[SimStateMessage](data, raw, envelopeAttributes, simStateAttributes)
	},
	TypeEpoch: func(data []byte, raw map[string]any) (Message, error) {
		return decodeInto[EpochMessage](data, raw, envelopeAttributes, resultAttributes, epochAttributes)
	},
	TypeStatus: func(data []byte, raw map[string]any) (Message, error) {
		return decodeInto[StatusMessage](data, raw, envelopeAttributes, resultAttributes, statusAttributes)
	},
	TypeError: func(data []byte, raw map[string]any) (Message, error) {
		return decodeInto[ErrorMessage](data, raw, envelopeAttributes, resultAttributes, errorAttributes)
	},
	TypeResourceState: func(data []byte, raw map[string]any) (Message, error) {
		return decodeInto[ResourceStateMessage](data, raw,
			envelopeAttributes, resultAttributes, resourceStateAttributes)
	},
	TypeResult: func(data []byte, raw map[string]any) (Message, error) {
		return decodeInto[ResultMessage](data, raw, envelopeAttributes, resultAttributes)
	},
	TypeGeneral: decodeGeneral,
}

func decodeGeneral(data []byte, raw map[string]any) (Message, error) {
	return decodeInto[GeneralMessage](data, raw, envelopeAttributes)
}

// Decoded is the tri-state outcome of decoding untrusted input:
// a typed message, a raw JSON object that failed schema validation, or a
// raw string that was not JSON at all.
type Decoded struct {
	Message Message
	JSON    map[string]any
	Raw     string
}

// IsTyped reports whether decoding produced a schema-valid typed message.
func (d Decoded) IsTyped() bool { return d.Message != nil }

// IsJSON reports whether the input was valid JSON that failed validation.
func (d Decoded) IsJSON() bool { return d.Message == nil && d.JSON != nil }

// IsRaw reports whether the input was not valid JSON.
func (d Decoded) IsRaw() bool { return d.Message == nil && d.JSON == nil }

// FromBytes decodes inbound message bus bytes. It never returns an error:
// payloads that fail schema validation degrade to the raw JSON object, and
// payloads that are not JSON degrade to the raw string. The type tag in
// the payload selects the concrete decode path; unmapped tags use the
// schema-light general path.
func FromBytes(data []byte) Decoded {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Debug("received message is not valid JSON", "error", err)
		return Decoded{Raw: string(data)}
	}

	tag, _ := raw[AttrType].(string)
	decode, ok := decoders[tag]
	if !ok {
		decode = decodeGeneral
	}

	msg, err := decode(data, raw)
	if err != nil {
		slog.Warn("received message failed schema validation", "type", tag, "error", err)
		return Decoded{JSON: raw}
	}
	return Decoded{Message: msg}
}

// DecodeType decodes the payload as the given message type.
// Returns nil when the payload does not validate; untrusted input never
// produces an error from this path.
func DecodeType(typeTag string, data []byte) Message {
	decode, ok := decoders[typeTag]
	if !ok {
		decode = decodeGeneral
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	msg, err := decode(data, raw)
	if err != nil {
		slog.Warn("message failed schema validation", "type", typeTag, "error", err)
		return nil
	}
	return msg
}

// Validate reports whether the payload validates as the given message type.
func Validate(typeTag string, data []byte) bool {
	return DecodeType(typeTag, data) != nil
}
