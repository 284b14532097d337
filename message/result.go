package message

import (
	"fmt"

	"github.com/simcesplatform/simulation-tools/errors"
)

// Wire attribute names for result messages.
const (
	AttrEpochNumber          = "EpochNumber"
	AttrLastUpdatedInEpoch   = "LastUpdatedInEpoch"
	AttrTriggeringMessageIds = "TriggeringMessageIds"
	AttrWarnings             = "Warnings"
)

// Warning vocabulary for result messages.
const (
	WarningConvergence     = "warning.convergence"
	WarningInput           = "warning.input"
	WarningInputRange      = "warning.input.range"
	WarningInputUnreliable = "warning.input.unreliable"
	WarningInternal        = "warning.internal"
	WarningOther           = "warning.other"
)

// warningTypes is the fixed vocabulary for the Warnings attribute.
var warningTypes = map[string]bool{
	WarningConvergence:     true,
	WarningInput:           true,
	WarningInputRange:      true,
	WarningInputUnreliable: true,
	WarningInternal:        true,
	WarningOther:           true,
}

// resultAttributes is the declared attribute table for result messages.
var resultAttributes = []attribute{
	{name: AttrEpochNumber},
	{name: AttrLastUpdatedInEpoch, optional: true},
	{name: AttrTriggeringMessageIds},
	{name: AttrWarnings, optional: true},
}

// ResultFields holds the epoch bookkeeping attributes shared by all result
// messages. Concrete result message types embed it next to Envelope.
type ResultFields struct {
	// EpochNumber is the epoch this message belongs to. Epoch 0 is
	// reserved for the initialization phase.
	EpochNumber int64 `json:"EpochNumber"`
	// LastUpdatedInEpoch is the epoch in which the reported information
	// last changed, or nil when not tracked.
	LastUpdatedInEpoch *int64 `json:"LastUpdatedInEpoch,omitempty"`
	// TriggeringMessageIds lists the inbound message ids that causally
	// justify this message. Never empty in a valid message.
	TriggeringMessageIds []string `json:"TriggeringMessageIds"`
	// Warnings is nil or a non-empty list drawn from the warning
	// vocabulary.
	Warnings []string `json:"Warnings,omitempty"`
}

// Result returns the result fields themselves, promoting the
// HasResultFields interface to every type that embeds ResultFields.
func (r *ResultFields) Result() *ResultFields {
	return r
}

// normalize collapses an empty warning list to nil so that equality and
// encoding treat "no warnings" uniformly.
func (r *ResultFields) normalize() {
	if len(r.Warnings) == 0 {
		r.Warnings = nil
	}
}

// validate checks the result attributes in declared order.
func (r *ResultFields) validate() error {
	if r.EpochNumber < 0 {
		return errors.Invalid(errors.ErrInvalidEpoch,
			fmt.Sprintf("'%d' is not a valid epoch number", r.EpochNumber))
	}
	if r.LastUpdatedInEpoch != nil && *r.LastUpdatedInEpoch < 0 {
		return errors.Invalid(errors.ErrInvalidEpoch,
			fmt.Sprintf("'%d' is not a valid epoch number", *r.LastUpdatedInEpoch))
	}
	if len(r.TriggeringMessageIds) == 0 {
		return errors.Invalid(errors.ErrInvalidMessageID, "triggering message ids must not be empty")
	}
	for _, id := range r.TriggeringMessageIds {
		if !IsValidMessageID(id) {
			return errors.Invalid(errors.ErrInvalidMessageID,
				fmt.Sprintf("'%s' is not a valid triggering message id", id))
		}
	}
	for _, warning := range r.Warnings {
		if !warningTypes[warning] {
			return errors.Invalid(errors.ErrInvalidValue,
				fmt.Sprintf("'%s' is not a valid warning type", warning))
		}
	}
	return nil
}

// Equal reports structural equality over the result attributes.
func (r *ResultFields) Equal(other *ResultFields) bool {
	if other == nil {
		return false
	}
	if r.EpochNumber != other.EpochNumber {
		return false
	}
	if (r.LastUpdatedInEpoch == nil) != (other.LastUpdatedInEpoch == nil) {
		return false
	}
	if r.LastUpdatedInEpoch != nil && *r.LastUpdatedInEpoch != *other.LastUpdatedInEpoch {
		return false
	}
	return equalStringSlices(r.TriggeringMessageIds, other.TriggeringMessageIds) &&
		equalStringSlices(r.Warnings, other.Warnings)
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
