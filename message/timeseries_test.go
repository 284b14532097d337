package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simcesplatform/simulation-tools/errors"
)

func testTimeIndex() []string {
	return []string{"2020-06-01T12:00:00.000Z", "2020-06-01T12:30:00.000Z"}
}

func TestNewTimeSeriesAttribute(t *testing.T) {
	attr, err := NewTimeSeriesAttribute("kW", []any{1.0, 2.0})
	require.NoError(t, err)
	assert.Equal(t, "kW", attr.UnitOfMeasure)

	_, err = NewTimeSeriesAttribute("", []any{1.0})
	assert.ErrorIs(t, err, errors.ErrInvalidUnit)

	_, err = NewTimeSeriesAttribute("kW", nil)
	assert.ErrorIs(t, err, errors.ErrInvalidValue)
}

func TestTimeSeriesAttributeValuesMustBeHomogeneous(t *testing.T) {
	_, err := NewTimeSeriesAttribute("kW", []any{1.0, "two"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidValue)

	// Integers and floats share the number bucket.
	_, err = NewTimeSeriesAttribute("kW", []any{1, 2.5})
	assert.NoError(t, err)

	_, err = NewTimeSeriesAttribute("m", []any{true, false})
	assert.NoError(t, err)

	_, err = NewTimeSeriesAttribute("m", []any{map[string]any{}})
	assert.Error(t, err)
}

func TestNewTimeSeriesBlockChecksLengthInvariant(t *testing.T) {
	attr, err := NewTimeSeriesAttribute("kW", []any{1.0, 2.0})
	require.NoError(t, err)

	block, err := NewTimeSeriesBlock(testTimeIndex(), map[string]*TimeSeriesAttribute{"power": attr})
	require.NoError(t, err)
	assert.Same(t, attr, block.GetSeries("power"))
	assert.Nil(t, block.GetSeries("missing"))

	short, err := NewTimeSeriesAttribute("kW", []any{1.0})
	require.NoError(t, err)
	_, err = NewTimeSeriesBlock(testTimeIndex(), map[string]*TimeSeriesAttribute{"power": short})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidValue)
}

func TestNewTimeSeriesBlockRequiresSeries(t *testing.T) {
	_, err := NewTimeSeriesBlock(testTimeIndex(), nil)
	assert.ErrorIs(t, err, errors.ErrInvalidValue)
}

func TestTimeSeriesBlockNormalizesTimeIndex(t *testing.T) {
	attr, err := NewTimeSeriesAttribute("kW", []any{1.0})
	require.NoError(t, err)

	block, err := NewTimeSeriesBlock([]string{"2020-06-01T15:00:00+03:00"},
		map[string]*TimeSeriesAttribute{"power": attr})
	require.NoError(t, err)
	assert.Equal(t, []string{"2020-06-01T12:00:00.000Z"}, block.TimeIndex)
}

func TestSetTimeIndexKeepsInvariant(t *testing.T) {
	attr, err := NewTimeSeriesAttribute("kW", []any{1.0, 2.0})
	require.NoError(t, err)
	block, err := NewTimeSeriesBlock(testTimeIndex(), map[string]*TimeSeriesAttribute{"power": attr})
	require.NoError(t, err)

	err = block.SetTimeIndex([]string{"2020-06-01T13:00:00.000Z"})
	require.Error(t, err, "length mismatch must be rejected")
	assert.Equal(t, testTimeIndex(), block.TimeIndex, "failed mutation must not change the block")

	err = block.SetTimeIndex([]string{"2020-06-01T13:00:00.000Z", "2020-06-01T13:30:00.000Z"})
	require.NoError(t, err)
}

func TestAddSeriesKeepsInvariant(t *testing.T) {
	attr, err := NewTimeSeriesAttribute("kW", []any{1.0, 2.0})
	require.NoError(t, err)
	block, err := NewTimeSeriesBlock(testTimeIndex(), map[string]*TimeSeriesAttribute{"power": attr})
	require.NoError(t, err)

	short, err := NewTimeSeriesAttribute("V", []any{230.0})
	require.NoError(t, err)
	require.Error(t, block.AddSeries("voltage", short))
	assert.Nil(t, block.GetSeries("voltage"))

	full, err := NewTimeSeriesAttribute("V", []any{230.0, 231.0})
	require.NoError(t, err)
	require.NoError(t, block.AddSeries("voltage", full))
	assert.Same(t, full, block.GetSeries("voltage"))
}

type rejectAllUnits struct{}

func (rejectAllUnits) IsValid(string) bool { return false }

func TestUnitValidatorInjection(t *testing.T) {
	SetUnitValidator(rejectAllUnits{})
	defer SetUnitValidator(nil)

	_, err := NewTimeSeriesAttribute("kW", []any{1.0})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidUnit)

	SetUnitValidator(nil)
	_, err = NewTimeSeriesAttribute("NotARealUnit", []any{1.0})
	assert.NoError(t, err, "without a validator any non-empty code passes")
}

func testTimeSeriesBlock(t *testing.T) *TimeSeriesBlock {
	t.Helper()
	attr, err := NewTimeSeriesAttribute("kW", []any{1.0, 2.0})
	require.NoError(t, err)
	block, err := NewTimeSeriesBlock(testTimeIndex(), map[string]*TimeSeriesAttribute{"power": attr})
	require.NoError(t, err)
	return block
}

func TestCoerceTimeSeries(t *testing.T) {
	block := testTimeSeriesBlock(t)

	got, err := CoerceTimeSeries(block)
	require.NoError(t, err)
	assert.Same(t, block, got)

	// The map form a decoded JSON payload produces. The time index is
	// normalized to the wire timestamp format on the way in.
	got, err = CoerceTimeSeries(map[string]any{
		"TimeIndex": []any{"2020-06-01T12:00:00+00:00", "2020-06-01T12:30:00Z"},
		"Series": map[string]any{
			"power": map[string]any{"UnitOfMeasure": "kW", "Values": []any{1.0, 2.0}},
		},
	})
	require.NoError(t, err)
	assert.True(t, block.Equal(got))

	_, err = CoerceTimeSeries(map[string]any{
		"TimeIndex": []any{"2020-06-01T12:00:00Z"},
		"Series": map[string]any{
			"power": map[string]any{"UnitOfMeasure": "kW", "Values": []any{1.0, 2.0}},
		},
	})
	require.Error(t, err, "length mismatch between time index and series")
	assert.ErrorIs(t, err, errors.ErrInvalidValue)

	_, err = CoerceTimeSeries("just a string")
	assert.ErrorIs(t, err, errors.ErrInvalidValue)

	_, err = CoerceTimeSeries((*TimeSeriesBlock)(nil))
	assert.ErrorIs(t, err, errors.ErrInvalidValue)
}
