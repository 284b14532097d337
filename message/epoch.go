package message

import (
	"fmt"

	"github.com/simcesplatform/simulation-tools/errors"
)

// Wire attribute names for epoch messages.
const (
	AttrStartTime = "StartTime"
	AttrEndTime   = "EndTime"
)

var epochAttributes = []attribute{
	{name: AttrStartTime},
	{name: AttrEndTime},
}

// EpochMessage starts a new simulation epoch. StartTime and EndTime bound
// the simulated time interval the epoch covers; StartTime is strictly
// before EndTime.
type EpochMessage struct {
	Envelope
	ResultFields
	StartTime string `json:"StartTime"`
	EndTime   string `json:"EndTime"`
}

func (m *EpochMessage) finalize() error {
	if err := m.Envelope.finalize(TypeEpoch); err != nil {
		return err
	}
	m.ResultFields.normalize()
	if err := m.ResultFields.validate(); err != nil {
		return err
	}
	return m.normalizeTimes()
}

func (m *EpochMessage) normalizeTimes() error {
	start, err := ParseTimestamp(m.StartTime)
	if err != nil {
		return errors.Invalid(errors.ErrInvalidDate,
			fmt.Sprintf("'%s' is an invalid epoch start time", m.StartTime))
	}
	end, err := ParseTimestamp(m.EndTime)
	if err != nil {
		return errors.Invalid(errors.ErrInvalidDate,
			fmt.Sprintf("'%s' is an invalid epoch end time", m.EndTime))
	}
	if !start.Before(end) {
		return errors.Invalid(errors.ErrInvalidValue,
			fmt.Sprintf("epoch start time '%s' must be before end time '%s'", m.StartTime, m.EndTime))
	}
	m.StartTime = FormatTimestamp(start)
	m.EndTime = FormatTimestamp(end)
	return nil
}
