package message

import (
	"encoding/json"
	"fmt"

	"github.com/simcesplatform/simulation-tools/errors"
)

// Wire attribute names for the quantity block.
const (
	AttrValue         = "Value"
	AttrUnitOfMeasure = "UnitOfMeasure"
)

// QuantityBlock represents one physical measurement: a float value and its
// unit of measure. Both attributes are mandatory.
type QuantityBlock struct {
	Value         float64 `json:"Value"`
	UnitOfMeasure string  `json:"UnitOfMeasure"`
}

// NewQuantityBlock creates a validated quantity block.
func NewQuantityBlock(value float64, unitOfMeasure string) (*QuantityBlock, error) {
	block := &QuantityBlock{Value: value, UnitOfMeasure: unitOfMeasure}
	if err := block.validate(); err != nil {
		return nil, err
	}
	return block, nil
}

func (q *QuantityBlock) validate() error {
	if q.UnitOfMeasure == "" {
		return errors.Invalid(errors.ErrInvalidUnit, "unit of measure for quantity block cannot be empty")
	}
	return nil
}

// Equal reports structural equality between two quantity blocks.
func (q *QuantityBlock) Equal(other *QuantityBlock) bool {
	if q == nil || other == nil {
		return q == other
	}
	return *q == *other
}

// CoerceQuantity converts a value into a quantity block with the expected
// unit of measure. A bare number is wrapped with the expected unit, a JSON
// object is converted to a block, and a pre-built block is accepted only if
// its unit matches. Anything else fails with a typed error.
func CoerceQuantity(value any, expectedUnit string) (*QuantityBlock, error) {
	switch v := value.(type) {
	case *QuantityBlock:
		if v == nil {
			return nil, errors.Invalid(errors.ErrInvalidValue, "quantity block cannot be nil")
		}
		return checkQuantityUnit(v, expectedUnit)
	case QuantityBlock:
		return checkQuantityUnit(&v, expectedUnit)
	case float64:
		return NewQuantityBlock(v, expectedUnit)
	case float32:
		return NewQuantityBlock(float64(v), expectedUnit)
	case int:
		return NewQuantityBlock(float64(v), expectedUnit)
	case int64:
		return NewQuantityBlock(float64(v), expectedUnit)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, errors.Invalid(errors.ErrInvalidValue,
				fmt.Sprintf("unable to convert '%s' to float for quantity block value", v))
		}
		return NewQuantityBlock(f, expectedUnit)
	case map[string]any:
		block, err := quantityFromMap(v)
		if err != nil {
			return nil, err
		}
		return checkQuantityUnit(block, expectedUnit)
	default:
		return nil, errors.Invalid(errors.ErrInvalidValue,
			fmt.Sprintf("'%v' cannot be converted to a quantity block", value))
	}
}

// coerceQuantityJSON converts a raw JSON attribute, either a bare number or
// a block object, to a quantity block with the expected unit.
func coerceQuantityJSON(raw json.RawMessage, expectedUnit string) (*QuantityBlock, error) {
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return NewQuantityBlock(number, expectedUnit)
	}

	var object map[string]any
	if err := json.Unmarshal(raw, &object); err != nil {
		return nil, errors.Invalid(errors.ErrInvalidValue,
			fmt.Sprintf("'%s' is not a valid quantity block", string(raw)))
	}
	block, err := quantityFromMap(object)
	if err != nil {
		return nil, err
	}
	return checkQuantityUnit(block, expectedUnit)
}

func quantityFromMap(object map[string]any) (*QuantityBlock, error) {
	rawValue, ok := object[AttrValue]
	if !ok {
		return nil, errors.Invalid(errors.ErrInvalidValue, "quantity block value cannot be missing")
	}
	value, ok := rawValue.(float64)
	if !ok {
		return nil, errors.Invalid(errors.ErrInvalidValue,
			fmt.Sprintf("unable to convert '%v' to float for quantity block value", rawValue))
	}
	unit, ok := object[AttrUnitOfMeasure].(string)
	if !ok {
		return nil, errors.Invalid(errors.ErrInvalidUnit, "unit of measure for quantity block cannot be missing")
	}
	return NewQuantityBlock(value, unit)
}

func checkQuantityUnit(block *QuantityBlock, expectedUnit string) (*QuantityBlock, error) {
	if err := block.validate(); err != nil {
		return nil, err
	}
	if expectedUnit != "" && block.UnitOfMeasure != expectedUnit {
		return nil, errors.Invalid(errors.ErrInvalidUnit,
			fmt.Sprintf("'%s' does not match the expected unit '%s'", block.UnitOfMeasure, expectedUnit))
	}
	return block, nil
}
