package component

import (
	"context"

	"github.com/simcesplatform/simulation-tools/message"
)

// EpochProcessor is the calculation hook a domain component provides to
// the Coordinator. The Coordinator calls AllMessagesReceived to check
// whether the component has everything it needs for the current epoch,
// and ProcessEpoch to run the actual calculation.
//
// ProcessEpoch reports whether the epoch is complete. Returning false
// with a nil error means more input is still expected; the Coordinator
// will try again when StartEpoch is triggered next. Returning an error
// makes the Coordinator publish an error message for the epoch.
type EpochProcessor interface {
	AllMessagesReceived(ctx context.Context, epoch *message.EpochMessage) (bool, error)
	ProcessEpoch(ctx context.Context, epoch *message.EpochMessage) (bool, error)
}

// NopProcessor is an EpochProcessor that is always ready and completes
// every epoch without any work. Components that only follow the epoch
// cycle, such as simple listeners, can use it directly.
type NopProcessor struct{}

// AllMessagesReceived always reports ready.
func (NopProcessor) AllMessagesReceived(context.Context, *message.EpochMessage) (bool, error) {
	return true, nil
}

// ProcessEpoch completes the epoch without doing anything.
func (NopProcessor) ProcessEpoch(context.Context, *message.EpochMessage) (bool, error) {
	return true, nil
}

// ProcessorFunc adapts a single function into an EpochProcessor that is
// always ready for the epoch.
type ProcessorFunc func(ctx context.Context, epoch *message.EpochMessage) (bool, error)

// AllMessagesReceived always reports ready.
func (ProcessorFunc) AllMessagesReceived(context.Context, *message.EpochMessage) (bool, error) {
	return true, nil
}

// ProcessEpoch calls the wrapped function.
func (f ProcessorFunc) ProcessEpoch(ctx context.Context, epoch *message.EpochMessage) (bool, error) {
	return f(ctx, epoch)
}
