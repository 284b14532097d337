package message

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/simcesplatform/simulation-tools/errors"
)

// Wire attribute names for the time series block.
const (
	AttrTimeIndex = "TimeIndex"
	AttrSeries    = "Series"
	AttrValues    = "Values"
)

// UnitValidator reports whether a unit of measure code is acceptable.
// The vocabulary package provides an implementation backed by the UCUM
// unit code table.
type UnitValidator interface {
	IsValid(code string) bool
}

var (
	unitValidatorMu sync.RWMutex
	unitValidator   UnitValidator
)

// SetUnitValidator injects the unit code validator used for time series
// attribute units. Build the validator once at startup and inject it here;
// when no validator is set, any non-empty unit string is accepted.
func SetUnitValidator(v UnitValidator) {
	unitValidatorMu.Lock()
	defer unitValidatorMu.Unlock()
	unitValidator = v
}

func isAcceptedUnit(code string) bool {
	if code == "" {
		return false
	}
	unitValidatorMu.RLock()
	v := unitValidator
	unitValidatorMu.RUnlock()
	if v == nil {
		return true
	}
	return v.IsValid(code)
}

// TimeSeriesAttribute is one named value sequence within a time series
// block: a unit of measure and a homogeneously typed value list.
type TimeSeriesAttribute struct {
	UnitOfMeasure string `json:"UnitOfMeasure"`
	Values        []any  `json:"Values"`
}

// NewTimeSeriesAttribute creates a validated time series attribute.
func NewTimeSeriesAttribute(unitOfMeasure string, values []any) (*TimeSeriesAttribute, error) {
	attr := &TimeSeriesAttribute{UnitOfMeasure: unitOfMeasure, Values: values}
	if err := attr.validate(); err != nil {
		return nil, err
	}
	return attr, nil
}

func (a *TimeSeriesAttribute) validate() error {
	if !isAcceptedUnit(a.UnitOfMeasure) {
		return errors.Invalid(errors.ErrInvalidUnit,
			fmt.Sprintf("'%s' is not an allowed unit of measure", a.UnitOfMeasure))
	}
	if a.Values == nil {
		return errors.Invalid(errors.ErrInvalidValue, "time series values are missing")
	}
	if len(a.Values) == 0 {
		return nil
	}
	kind := valueKind(a.Values[0])
	if kind == kindUnsupported {
		return errors.Invalid(errors.ErrInvalidValue,
			fmt.Sprintf("'%v' is not a valid time series value", a.Values[0]))
	}
	for _, value := range a.Values[1:] {
		if valueKind(value) != kind {
			return errors.Invalid(errors.ErrInvalidValue,
				fmt.Sprintf("time series values are not homogeneously typed: '%v'", value))
		}
	}
	return nil
}

// Equal reports structural equality between two time series attributes.
func (a *TimeSeriesAttribute) Equal(other *TimeSeriesAttribute) bool {
	if a == nil || other == nil {
		return a == other
	}
	if a.UnitOfMeasure != other.UnitOfMeasure || len(a.Values) != len(other.Values) {
		return false
	}
	for i := range a.Values {
		if a.Values[i] != other.Values[i] {
			return false
		}
	}
	return true
}

type seriesValueKind int

const (
	kindUnsupported seriesValueKind = iota
	kindBool
	kindNumber
	kindString
)

// valueKind buckets a series value by type. JSON decoding produces float64
// for every number, so integers and floats from direct construction share
// the number bucket.
func valueKind(value any) seriesValueKind {
	switch value.(type) {
	case bool:
		return kindBool
	case float64, float32, int, int32, int64:
		return kindNumber
	case string:
		return kindString
	default:
		return kindUnsupported
	}
}

// TimeSeriesBlock is a set of named value sequences sharing one timestamp
// index. The invariant is that every series' value list has exactly
// len(TimeIndex) entries; it is checked at construction and on every
// mutation.
type TimeSeriesBlock struct {
	TimeIndex []string                        `json:"TimeIndex"`
	Series    map[string]*TimeSeriesAttribute `json:"Series"`
}

// NewTimeSeriesBlock creates a validated time series block.
func NewTimeSeriesBlock(timeIndex []string, series map[string]*TimeSeriesAttribute) (*TimeSeriesBlock, error) {
	block := &TimeSeriesBlock{TimeIndex: timeIndex, Series: series}
	if err := block.normalize(); err != nil {
		return nil, err
	}
	if err := block.validate(); err != nil {
		return nil, err
	}
	return block, nil
}

// GetSeries returns the named value series, or nil if it does not exist.
func (b *TimeSeriesBlock) GetSeries(name string) *TimeSeriesAttribute {
	return b.Series[name]
}

// SetTimeIndex replaces the timestamp index. Fails if the new index length
// does not match the existing series.
func (b *TimeSeriesBlock) SetTimeIndex(timeIndex []string) error {
	candidate := &TimeSeriesBlock{TimeIndex: timeIndex, Series: b.Series}
	if err := candidate.normalize(); err != nil {
		return err
	}
	if err := candidate.validate(); err != nil {
		return err
	}
	b.TimeIndex = candidate.TimeIndex
	return nil
}

// AddSeries adds a new or replaces an existing value series. The length
// invariant is re-validated before the block is mutated.
func (b *TimeSeriesBlock) AddSeries(name string, series *TimeSeriesAttribute) error {
	if name == "" {
		return errors.Invalid(errors.ErrInvalidValue, "series name cannot be empty")
	}
	if series == nil {
		return errors.Invalid(errors.ErrInvalidValue, "series cannot be nil")
	}
	if err := series.validate(); err != nil {
		return err
	}
	if len(series.Values) != len(b.TimeIndex) {
		return errors.Invalid(errors.ErrInvalidValue,
			fmt.Sprintf("series '%s' has %d values for a time index of length %d",
				name, len(series.Values), len(b.TimeIndex)))
	}
	if b.Series == nil {
		b.Series = make(map[string]*TimeSeriesAttribute)
	}
	b.Series[name] = series
	return nil
}

// normalize converts the time index entries to the wire timestamp format.
func (b *TimeSeriesBlock) normalize() error {
	for i, value := range b.TimeIndex {
		normalized, err := NormalizeTimestamp(value)
		if err != nil {
			return err
		}
		b.TimeIndex[i] = normalized
	}
	return nil
}

func (b *TimeSeriesBlock) validate() error {
	if len(b.Series) == 0 {
		return errors.Invalid(errors.ErrInvalidValue, "time series block must contain at least one series")
	}
	for name, series := range b.Series {
		if name == "" {
			return errors.Invalid(errors.ErrInvalidValue, "series name cannot be empty")
		}
		if series == nil {
			return errors.Invalid(errors.ErrInvalidValue,
				fmt.Sprintf("series '%s' is missing its attribute block", name))
		}
		if err := series.validate(); err != nil {
			return err
		}
		if len(series.Values) != len(b.TimeIndex) {
			return errors.Invalid(errors.ErrInvalidValue,
				fmt.Sprintf("series '%s' has %d values for a time index of length %d",
					name, len(series.Values), len(b.TimeIndex)))
		}
	}
	return nil
}

// CoerceTimeSeries converts a value into a time series block. A pre-built
// block is revalidated, a decoded JSON object is converted through the
// wire form. Anything else fails with a typed error.
func CoerceTimeSeries(value any) (*TimeSeriesBlock, error) {
	switch v := value.(type) {
	case *TimeSeriesBlock:
		if v == nil {
			return nil, errors.Invalid(errors.ErrInvalidValue, "time series block cannot be nil")
		}
		if err := v.validate(); err != nil {
			return nil, err
		}
		return v, nil
	case TimeSeriesBlock:
		if err := v.validate(); err != nil {
			return nil, err
		}
		return &v, nil
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Invalid(errors.ErrInvalidValue,
				fmt.Sprintf("'%v' cannot be converted to a time series block", value))
		}
		return timeSeriesFromJSON(data)
	case json.RawMessage:
		return timeSeriesFromJSON(v)
	default:
		return nil, errors.Invalid(errors.ErrInvalidValue,
			fmt.Sprintf("'%v' cannot be converted to a time series block", value))
	}
}

func timeSeriesFromJSON(data []byte) (*TimeSeriesBlock, error) {
	var block TimeSeriesBlock
	if err := json.Unmarshal(data, &block); err != nil {
		return nil, errors.Invalid(errors.ErrInvalidValue,
			fmt.Sprintf("'%s' is not a valid time series block", string(data)))
	}
	if err := block.normalize(); err != nil {
		return nil, err
	}
	if err := block.validate(); err != nil {
		return nil, err
	}
	return &block, nil
}

// Equal reports structural equality between two time series blocks.
func (b *TimeSeriesBlock) Equal(other *TimeSeriesBlock) bool {
	if b == nil || other == nil {
		return b == other
	}
	if !equalStringSlices(b.TimeIndex, other.TimeIndex) || len(b.Series) != len(other.Series) {
		return false
	}
	for name, series := range b.Series {
		if !series.Equal(other.Series[name]) {
			return false
		}
	}
	return true
}
