package message

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/simcesplatform/simulation-tools/errors"
)

// Generator produces messages bound to one (simulation id, source process
// id) pair. Every produced message gets a fresh "<process>-<n>" message id
// with n strictly increasing, and a fresh timestamp. Safe for concurrent
// use.
type Generator struct {
	mu              sync.Mutex
	simulationID    string
	sourceProcessID string
	nextNumber      int64
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithStartNumber sets the first message id number. The default is 1.
func WithStartNumber(n int64) GeneratorOption {
	return func(g *Generator) {
		g.nextNumber = n
	}
}

// NewGenerator creates a message generator for the given simulation and
// source process.
func NewGenerator(simulationID, sourceProcessID string, opts ...GeneratorOption) (*Generator, error) {
	normalized, err := NormalizeTimestamp(simulationID)
	if err != nil {
		return nil, errors.Invalid(errors.ErrInvalidDate,
			fmt.Sprintf("'%s' is an invalid simulation id", simulationID))
	}
	if sourceProcessID == "" {
		return nil, errors.Invalid(errors.ErrInvalidSource, "source process id cannot be empty")
	}

	g := &Generator{
		simulationID:    normalized,
		sourceProcessID: sourceProcessID,
		nextNumber:      1,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// NextMessageID returns a fresh message id and advances the sequence.
func (g *Generator) NextMessageID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := fmt.Sprintf("%s-%d", g.sourceProcessID, g.nextNumber)
	g.nextNumber++
	return id
}

// envelope returns a fresh envelope for the given type tag.
func (g *Generator) envelope(typeTag string) Envelope {
	return Envelope{
		Type:            typeTag,
		SimulationID:    g.simulationID,
		SourceProcessID: g.sourceProcessID,
		MessageID:       g.NextMessageID(),
		Timestamp:       Now(),
	}
}

// EpochMessage builds a validated epoch message.
func (g *Generator) EpochMessage(
	epochNumber int64, triggeringIDs []string, startTime, endTime string,
) (*EpochMessage, error) {
	msg := &EpochMessage{
		Envelope: g.envelope(TypeEpoch),
		ResultFields: ResultFields{
			EpochNumber:          epochNumber,
			TriggeringMessageIds: triggeringIDs,
		},
		StartTime: startTime,
		EndTime:   endTime,
	}
	if err := msg.finalize(); err != nil {
		return nil, err
	}
	return msg, nil
}

// StatusReadyMessage builds a validated Status(ready) message.
func (g *Generator) StatusReadyMessage(epochNumber int64, triggeringIDs []string) (*StatusMessage, error) {
	msg := &StatusMessage{
		Envelope: g.envelope(TypeStatus),
		ResultFields: ResultFields{
			EpochNumber:          epochNumber,
			TriggeringMessageIds: triggeringIDs,
		},
		Value: StatusReady,
	}
	if err := msg.finalize(); err != nil {
		return nil, err
	}
	return msg, nil
}

// StatusErrorMessage builds a validated Status(error) message.
func (g *Generator) StatusErrorMessage(
	epochNumber int64, triggeringIDs []string, description string,
) (*StatusMessage, error) {
	msg := &StatusMessage{
		Envelope: g.envelope(TypeStatus),
		ResultFields: ResultFields{
			EpochNumber:          epochNumber,
			TriggeringMessageIds: triggeringIDs,
		},
		Value:       StatusError,
		Description: description,
	}
	if err := msg.finalize(); err != nil {
		return nil, err
	}
	return msg, nil
}

// ErrorMessage builds a validated error message.
func (g *Generator) ErrorMessage(
	epochNumber int64, triggeringIDs []string, description string,
) (*ErrorMessage, error) {
	msg := &ErrorMessage{
		Envelope: g.envelope(TypeError),
		ResultFields: ResultFields{
			EpochNumber:          epochNumber,
			TriggeringMessageIds: triggeringIDs,
		},
		Description: description,
	}
	if err := msg.finalize(); err != nil {
		return nil, err
	}
	return msg, nil
}

// SimStateMessage builds a validated simulation state message.
func (g *Generator) SimStateMessage(state string) (*SimStateMessage, error) {
	msg := &SimStateMessage{
		Envelope:        g.envelope(TypeSimState),
		SimulationState: state,
	}
	if err := msg.finalize(); err != nil {
		return nil, err
	}
	return msg, nil
}

// ResourceStateMessage builds a validated resource state message.
// realPower, reactivePower and stateOfCharge accept a bare number or a
// quantity block and are coerced to the expected units; stateOfCharge may
// be nil.
func (g *Generator) ResourceStateMessage(
	epochNumber int64, triggeringIDs []string, bus string,
	realPower, reactivePower any, node *int, stateOfCharge any,
) (*ResourceStateMessage, error) {
	real, err := CoerceQuantity(realPower, UnitRealPower)
	if err != nil {
		return nil, err
	}
	reactive, err := CoerceQuantity(reactivePower, UnitReactivePower)
	if err != nil {
		return nil, err
	}
	var charge *QuantityBlock
	if stateOfCharge != nil {
		if charge, err = CoerceQuantity(stateOfCharge, UnitStateOfCharge); err != nil {
			return nil, err
		}
	}

	msg := &ResourceStateMessage{
		Envelope: g.envelope(TypeResourceState),
		ResultFields: ResultFields{
			EpochNumber:          epochNumber,
			TriggeringMessageIds: triggeringIDs,
		},
		Bus:           bus,
		RealPower:     *real,
		ReactivePower: *reactive,
		Node:          node,
		StateOfCharge: charge,
	}
	if err := msg.finalize(); err != nil {
		return nil, err
	}
	return msg, nil
}

// ResultMessage builds a validated result message with the given type tag
// and extra attributes. Time series blocks among the attributes are
// validated through the block coercion.
func (g *Generator) ResultMessage(
	typeTag string, epochNumber int64, triggeringIDs []string, extra map[string]any,
) (*ResultMessage, error) {
	for name, value := range extra {
		switch value.(type) {
		case *TimeSeriesBlock, TimeSeriesBlock:
			block, err := CoerceTimeSeries(value)
			if err != nil {
				return nil, err
			}
			extra[name] = block
		}
	}

	msg := &ResultMessage{
		Envelope: g.envelope(typeTag),
		ResultFields: ResultFields{
			EpochNumber:          epochNumber,
			TriggeringMessageIds: triggeringIDs,
		},
		Extra: extra,
	}
	if err := msg.finalize(); err != nil {
		return nil, err
	}
	return msg, nil
}

// GeneralMessage builds a schema-light message with the given type tag and
// extra attributes.
func (g *Generator) GeneralMessage(typeTag string, extra map[string]any) (*GeneralMessage, error) {
	msg := &GeneralMessage{
		Envelope: g.envelope(typeTag),
		Extra:    extra,
	}
	if err := msg.finalize(); err != nil {
		return nil, err
	}
	return msg, nil
}

// Get builds a message of the given type from loosely typed fields,
// dispatching through the registry's decode path so that all schema rules
// apply. Returns nil when construction fails, letting calling code degrade
// instead of crash.
func (g *Generator) Get(typeTag string, fields map[string]any) Message {
	envelope := g.envelope(typeTag)

	merged := make(map[string]any, len(fields)+5)
	for key, value := range fields {
		merged[key] = value
	}
	merged[AttrType] = envelope.Type
	merged[AttrSimulationID] = envelope.SimulationID
	merged[AttrSourceProcessID] = envelope.SourceProcessID
	merged[AttrMessageID] = envelope.MessageID
	merged[AttrTimestamp] = envelope.Timestamp

	data, err := json.Marshal(merged)
	if err != nil {
		return nil
	}
	return DecodeType(typeTag, data)
}
