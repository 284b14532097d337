package component

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/simcesplatform/simulation-tools/busclient"
	"github.com/simcesplatform/simulation-tools/errors"
	"github.com/simcesplatform/simulation-tools/message"
	"github.com/simcesplatform/simulation-tools/metric"
)

// Default topics for the simulation platform message exchange.
const (
	DefaultEpochTopic    = "Epoch"
	DefaultSimStateTopic = "SimState"
	DefaultStatusTopic   = "Status.Ready"
	DefaultErrorTopic    = "Status.Error"
)

// BusClient is the message bus contract the Coordinator depends on.
// *busclient.Client satisfies it.
type BusClient interface {
	Publish(ctx context.Context, topic string, data []byte) error
	Subscribe(ctx context.Context, topics []string, handler busclient.MessageHandler) error
	Close(ctx context.Context) error
	IsClosed() bool
}

// OtherMessageHandler receives messages from the extra topics a component
// listens to beyond the epoch and simulation state topics.
type OtherMessageHandler func(topic string, msg message.Message)

// Coordinator drives one simulation component through the epoch cycle.
//
// All message handling and state transitions run under one mutex, so a
// component sees the protocol events strictly one at a time.
type Coordinator struct {
	simulationID  string
	componentName string

	epochTopic    string
	simStateTopic string
	statusTopic   string
	errorTopic    string
	otherTopics   []string

	client    BusClient
	generator *message.Generator
	processor EpochProcessor
	other     OtherMessageHandler
	metrics   *metric.Metrics
	logger    *slog.Logger

	mu                    sync.Mutex
	started               bool
	stopped               bool
	simulationState       string
	initializationError   string
	latestEpoch           int64
	completedEpoch        int64
	latestEpochMessage    *message.EpochMessage
	triggeringMessageIDs  []string
	latestStatusMessageID string
}

// Option is a functional option for configuring the Coordinator.
type Option func(*Coordinator) error

// WithEpochTopic overrides the topic epoch messages arrive on.
func WithEpochTopic(topic string) Option {
	return func(c *Coordinator) error {
		c.epochTopic = topic
		return nil
	}
}

// WithSimStateTopic overrides the topic simulation state messages arrive on.
func WithSimStateTopic(topic string) Option {
	return func(c *Coordinator) error {
		c.simStateTopic = topic
		return nil
	}
}

// WithStatusTopic overrides the topic status messages are published to.
func WithStatusTopic(topic string) Option {
	return func(c *Coordinator) error {
		c.statusTopic = topic
		return nil
	}
}

// WithErrorTopic overrides the topic error messages are published to.
func WithErrorTopic(topic string) Option {
	return func(c *Coordinator) error {
		c.errorTopic = topic
		return nil
	}
}

// WithOtherTopics adds extra topics the component listens to. Messages
// from these topics are delivered to the OtherMessageHandler.
func WithOtherTopics(topics ...string) Option {
	return func(c *Coordinator) error {
		c.otherTopics = append(c.otherTopics, topics...)
		return nil
	}
}

// WithProcessor sets the component's epoch calculation.
func WithProcessor(p EpochProcessor) Option {
	return func(c *Coordinator) error {
		if p == nil {
			return errors.WrapInvalid(errors.ErrInvalidValue, "Coordinator", "WithProcessor", "nil processor")
		}
		c.processor = p
		return nil
	}
}

// WithOtherMessageHandler sets the handler for messages from the extra
// topics.
func WithOtherMessageHandler(h OtherMessageHandler) Option {
	return func(c *Coordinator) error {
		c.other = h
		return nil
	}
}

// WithMetrics attaches platform metrics to the Coordinator.
func WithMetrics(m *metric.Metrics) Option {
	return func(c *Coordinator) error {
		c.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) error {
		if logger == nil {
			return errors.WrapInvalid(errors.ErrInvalidValue, "Coordinator", "WithLogger", "nil logger")
		}
		c.logger = logger
		return nil
	}
}

// WithInitializationError marks the component as failed before the
// simulation starts. When the simulation manager starts the simulation,
// the Coordinator reports the error instead of readiness.
func WithInitializationError(description string) Option {
	return func(c *Coordinator) error {
		c.initializationError = description
		return nil
	}
}

// NewCoordinator creates a Coordinator for the given simulation run and
// component name. The client is expected to be connected before Start is
// called.
func NewCoordinator(client BusClient, simulationID, componentName string, opts ...Option) (*Coordinator, error) {
	if client == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidValue, "Coordinator", "NewCoordinator", "nil bus client")
	}

	generator, err := message.NewGenerator(simulationID, componentName)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		simulationID:    simulationID,
		componentName:   componentName,
		epochTopic:      DefaultEpochTopic,
		simStateTopic:   DefaultSimStateTopic,
		statusTopic:     DefaultStatusTopic,
		errorTopic:      DefaultErrorTopic,
		client:          client,
		generator:       generator,
		processor:       NopProcessor{},
		logger:          slog.Default(),
		simulationState: message.SimulationStateStopped,
		latestEpoch:     0,
		completedEpoch:  -1,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.logger = c.logger.With("component", componentName, "simulation", simulationID)
	return c, nil
}

// Start subscribes the component to the simulation topics. The component
// stays passive until the simulation manager broadcasts the running
// state.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return errors.ErrAlreadyStarted
	}

	topics := append([]string{c.simStateTopic, c.epochTopic}, c.otherTopics...)
	if err := c.client.Subscribe(ctx, topics, c.handleMessage); err != nil {
		return errors.Wrap(err, "Coordinator", "Start", "subscribe to simulation topics")
	}

	c.started = true
	c.stopped = false
	c.logger.Info("component started", "topics", topics)
	return nil
}

// Stop ends the component's participation in the simulation and closes
// the bus client. Safe to call repeatedly.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return errors.ErrNotStarted
	}
	return c.stopLocked(ctx)
}

func (c *Coordinator) stopLocked(ctx context.Context) error {
	if c.stopped {
		return nil
	}
	c.stopped = true
	c.simulationState = message.SimulationStateStopped

	if c.metrics != nil {
		c.metrics.RecordComponentState(c.componentName, false)
	}

	err := c.client.Close(ctx)
	c.logger.Info("component stopped", "completed_epoch", c.completedEpoch)
	if err != nil {
		return errors.Wrap(err, "Coordinator", "Stop", "close bus client")
	}
	return nil
}

// IsStopped reports whether the component has stopped.
func (c *Coordinator) IsStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// SimulationState returns the last simulation state seen from the
// simulation manager.
func (c *Coordinator) SimulationState() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.simulationState
}

// LatestEpoch returns the number of the most recent epoch message.
func (c *Coordinator) LatestEpoch() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latestEpoch
}

// CompletedEpoch returns the number of the last epoch this component has
// finished, or -1 when none is finished yet.
func (c *Coordinator) CompletedEpoch() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completedEpoch
}

// InitializationError returns the recorded startup failure description,
// or the empty string when startup succeeded.
func (c *Coordinator) InitializationError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initializationError
}

// SetInitializationError records a startup failure. Must be set before
// the simulation manager starts the simulation to take effect.
func (c *Coordinator) SetInitializationError(description string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initializationError = description
}

// handleMessage is the bus listener callback. Payloads that do not decode
// to a platform message are logged and dropped.
func (c *Coordinator) handleMessage(topic string, data []byte) {
	ctx := context.Background()

	decoded := message.FromBytes(data)
	if !decoded.IsTyped() {
		c.logger.Warn("ignoring undecodable message", "topic", topic, "bytes", len(data))
		if c.metrics != nil {
			c.metrics.RecordMessageDropped(c.componentName, "undecodable")
		}
		return
	}

	msg := decoded.Message
	if c.metrics != nil {
		c.metrics.RecordMessageReceived(c.componentName, msg.Meta().Type)
	}

	switch m := msg.(type) {
	case *message.SimStateMessage:
		c.mu.Lock()
		c.handleSimStateLocked(ctx, m)
		c.mu.Unlock()
	case *message.EpochMessage:
		c.mu.Lock()
		c.handleEpochLocked(ctx, m)
		c.mu.Unlock()
	default:
		if c.other != nil {
			c.other(topic, msg)
		} else {
			c.logger.Debug("received message without a handler",
				"topic", topic, "type", msg.Meta().Type)
		}
	}
}

// handleSimStateLocked follows the simulation state broadcast. A running
// state makes the component announce itself with a status or error
// message, a stopped state shuts it down.
func (c *Coordinator) handleSimStateLocked(ctx context.Context, m *message.SimStateMessage) {
	if m.SimulationID != c.simulationID {
		c.logger.Warn("ignoring simulation state message from another simulation",
			"message_simulation", m.SimulationID)
		if c.metrics != nil {
			c.metrics.RecordMessageDropped(c.componentName, "wrong_simulation")
		}
		return
	}
	if c.stopped {
		return
	}

	switch m.SimulationState {
	case message.SimulationStateRunning:
		c.simulationState = message.SimulationStateRunning
		if c.metrics != nil {
			c.metrics.RecordComponentState(c.componentName, true)
		}
		// The readiness announcement belongs to the start of the
		// simulation only. A running state broadcast repeated during an
		// active epoch must not produce a new status message.
		if c.latestEpoch != 0 {
			c.logger.Debug("running state repeated during an active simulation",
				"epoch", c.latestEpoch)
			return
		}
		c.triggeringMessageIDs = []string{m.MessageID}
		if c.initializationError == "" {
			c.sendStatusLocked(ctx)
		} else {
			c.logger.Error("component failed to initialize", "description", c.initializationError)
			c.sendErrorLocked(ctx, c.initializationError)
		}

	case message.SimulationStateStopped:
		c.logger.Info("simulation stopped by the simulation manager")
		if err := c.stopLocked(ctx); err != nil {
			c.logger.Warn("error while stopping", "error", err)
		}

	default:
		c.logger.Warn("ignoring unknown simulation state", "state", m.SimulationState)
	}
}

// handleEpochLocked records a new epoch and starts processing it.
// An epoch message that repeats the current epoch and was triggered by
// this component's own latest status message is a duplicate delivery and
// is ignored.
func (c *Coordinator) handleEpochLocked(ctx context.Context, m *message.EpochMessage) {
	if m.SimulationID != c.simulationID {
		c.logger.Warn("ignoring epoch message from another simulation",
			"message_simulation", m.SimulationID)
		if c.metrics != nil {
			c.metrics.RecordMessageDropped(c.componentName, "wrong_simulation")
		}
		return
	}
	if c.stopped {
		return
	}

	duplicate := c.latestEpochMessage != nil &&
		m.EpochNumber == c.latestEpoch &&
		c.latestStatusMessageID != "" &&
		slices.Contains(m.TriggeringMessageIds, c.latestStatusMessageID)
	if duplicate {
		c.logger.Info("ignoring duplicate epoch message",
			"epoch", m.EpochNumber, "message_id", m.MessageID)
		if c.metrics != nil {
			c.metrics.RecordMessageDropped(c.componentName, "duplicate_epoch")
		}
		return
	}

	c.latestEpoch = m.EpochNumber
	c.latestEpochMessage = m
	c.triggeringMessageIDs = []string{m.MessageID}
	c.logger.Info("epoch started", "epoch", m.EpochNumber,
		"start_time", m.StartTime, "end_time", m.EndTime)
	if c.metrics != nil {
		c.metrics.RecordCurrentEpoch(c.componentName, m.EpochNumber)
	}

	if _, err := c.startEpochLocked(ctx); err != nil {
		c.logger.Warn("epoch processing failed", "epoch", m.EpochNumber, "error", err)
	}
}

// StartEpoch attempts to run the calculation for the current epoch. It is
// called automatically when an epoch message arrives; components that
// wait for further input messages call it again from their message
// handlers once more data is available.
//
// Reports true when the current epoch is complete, whether the work ran
// during this call or had already finished earlier.
func (c *Coordinator) StartEpoch(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startEpochLocked(ctx)
}

func (c *Coordinator) startEpochLocked(ctx context.Context) (bool, error) {
	if c.stopped || c.simulationState != message.SimulationStateRunning {
		return false, nil
	}
	if c.latestEpochMessage == nil {
		return false, nil
	}

	// The epoch message was a resend for work already finished: answer
	// with a fresh status message without running the calculation again.
	// The epoch counts as complete for the caller.
	if c.latestStatusMessageID != "" && c.completedEpoch == c.latestEpoch {
		c.logger.Info("resending status for already completed epoch", "epoch", c.latestEpoch)
		c.sendStatusLocked(ctx)
		return true, nil
	}

	if c.latestEpoch <= c.completedEpoch {
		return false, nil
	}

	ready, err := c.processor.AllMessagesReceived(ctx, c.latestEpochMessage)
	if err != nil {
		c.sendErrorLocked(ctx, fmt.Sprintf("Error while checking input for epoch %d: %v", c.latestEpoch, err))
		return false, err
	}
	if !ready {
		c.logger.Debug("input not yet complete for epoch", "epoch", c.latestEpoch)
		return false, nil
	}

	done, err := c.processor.ProcessEpoch(ctx, c.latestEpochMessage)
	if err != nil {
		c.sendErrorLocked(ctx, fmt.Sprintf("Error while processing epoch %d: %v", c.latestEpoch, err))
		return false, err
	}
	if !done {
		return false, nil
	}

	c.completedEpoch = c.latestEpoch
	if c.metrics != nil {
		c.metrics.RecordEpochCompleted(c.componentName)
	}
	c.logger.Info("epoch completed", "epoch", c.completedEpoch)
	c.sendStatusLocked(ctx)
	return true, nil
}

// SendStatus publishes a ready status for the current epoch.
func (c *Coordinator) SendStatus(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendStatusLocked(ctx)
}

// sendStatusLocked publishes a ready status message. A failure to build
// the status message is reported on the error topic instead.
func (c *Coordinator) sendStatusLocked(ctx context.Context) error {
	status, err := c.generator.StatusReadyMessage(c.latestEpoch, c.triggeringMessageIDs)
	if err != nil {
		c.logger.Error("could not create a status message", "error", err)
		c.sendErrorLocked(ctx, "Internal error when creating a status message.")
		return err
	}

	data, err := message.ToBytes(status)
	if err != nil {
		c.logger.Error("could not encode a status message", "error", err)
		c.sendErrorLocked(ctx, "Internal error when creating a status message.")
		return err
	}

	if err := c.client.Publish(ctx, c.statusTopic, data); err != nil {
		c.logger.Warn("failed to publish status message", "error", err)
		if c.metrics != nil {
			c.metrics.RecordError(c.componentName, "publish")
		}
		return err
	}

	c.latestStatusMessageID = status.MessageID
	if c.metrics != nil {
		c.metrics.RecordMessagePublished(c.componentName, c.statusTopic)
	}
	c.logger.Info("status message sent", "epoch", c.latestEpoch, "message_id", status.MessageID)
	return nil
}

// SendError publishes an error message with the given description for the
// current epoch.
func (c *Coordinator) SendError(ctx context.Context, description string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendErrorLocked(ctx, description)
}

// sendErrorLocked publishes an error message. When even the error message
// cannot be built, nothing useful can be told to the simulation manager
// and the component shuts itself down.
func (c *Coordinator) sendErrorLocked(ctx context.Context, description string) error {
	errMsg, err := c.generator.ErrorMessage(c.latestEpoch, c.triggeringMessageIDs, description)
	if err != nil {
		c.logger.Error("could not create an error message, stopping component", "error", err)
		if stopErr := c.stopLocked(ctx); stopErr != nil {
			c.logger.Warn("error while stopping", "error", stopErr)
		}
		return errors.WrapFatal(err, "Coordinator", "SendError", "create error message")
	}

	data, err := message.ToBytes(errMsg)
	if err != nil {
		c.logger.Error("could not encode an error message, stopping component", "error", err)
		if stopErr := c.stopLocked(ctx); stopErr != nil {
			c.logger.Warn("error while stopping", "error", stopErr)
		}
		return errors.WrapFatal(err, "Coordinator", "SendError", "encode error message")
	}

	if err := c.client.Publish(ctx, c.errorTopic, data); err != nil {
		c.logger.Warn("failed to publish error message", "error", err)
		if c.metrics != nil {
			c.metrics.RecordError(c.componentName, "publish")
		}
		return err
	}

	if c.metrics != nil {
		c.metrics.RecordMessagePublished(c.componentName, c.errorTopic)
		c.metrics.RecordError(c.componentName, "reported")
	}
	c.logger.Info("error message sent", "epoch", c.latestEpoch, "description", description)
	return nil
}
