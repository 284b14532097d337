package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simcesplatform/simulation-tools/errors"
)

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	g, err := NewGenerator("2020-06-01T12:00:00.000Z", "grid_component")
	require.NoError(t, err)
	return g
}

func TestNewGeneratorValidatesArguments(t *testing.T) {
	_, err := NewGenerator("not-a-date", "grid_component")
	assert.Error(t, err)

	_, err = NewGenerator("2020-06-01T12:00:00.000Z", "")
	assert.Error(t, err)
}

func TestNewGeneratorNormalizesSimulationID(t *testing.T) {
	g, err := NewGenerator("2020-06-01T15:00:00+03:00", "grid_component")
	require.NoError(t, err)

	msg, err := g.SimStateMessage(SimulationStateRunning)
	require.NoError(t, err)
	assert.Equal(t, "2020-06-01T12:00:00.000Z", msg.SimulationID)
}

func TestNextMessageIDIsStrictlyIncreasing(t *testing.T) {
	g := newTestGenerator(t)
	assert.Equal(t, "grid_component-1", g.NextMessageID())
	assert.Equal(t, "grid_component-2", g.NextMessageID())
	assert.Equal(t, "grid_component-3", g.NextMessageID())
}

func TestWithStartNumber(t *testing.T) {
	g, err := NewGenerator("2020-06-01T12:00:00.000Z", "grid_component", WithStartNumber(10))
	require.NoError(t, err)
	assert.Equal(t, "grid_component-10", g.NextMessageID())
}

func TestBuildersStampTheEnvelope(t *testing.T) {
	g := newTestGenerator(t)

	status, err := g.StatusReadyMessage(3, []string{"manager-7"})
	require.NoError(t, err)
	assert.Equal(t, TypeStatus, status.Type)
	assert.Equal(t, StatusReady, status.Value)
	assert.Equal(t, "2020-06-01T12:00:00.000Z", status.SimulationID)
	assert.Equal(t, "grid_component", status.SourceProcessID)
	assert.True(t, IsValidMessageID(status.MessageID))
	assert.True(t, IsValidTimestamp(status.Timestamp))

	errMsg, err := g.ErrorMessage(3, []string{"manager-7"}, "it broke")
	require.NoError(t, err)
	assert.Equal(t, TypeError, errMsg.Type)
	assert.NotEqual(t, status.MessageID, errMsg.MessageID)
}

func TestBuildersRejectInvalidContent(t *testing.T) {
	g := newTestGenerator(t)

	_, err := g.StatusReadyMessage(3, nil)
	assert.Error(t, err, "triggering ids are mandatory")

	_, err = g.ErrorMessage(-1, []string{"manager-7"}, "oops")
	assert.Error(t, err, "negative epoch")

	_, err = g.EpochMessage(1, []string{"manager-7"},
		"2020-06-01T13:00:00.000Z", "2020-06-01T12:00:00.000Z")
	assert.Error(t, err, "start must be before end")

	_, err = g.SimStateMessage("paused")
	assert.Error(t, err, "unknown simulation state")
}

func TestEpochMessageBuilder(t *testing.T) {
	g := newTestGenerator(t)
	epoch, err := g.EpochMessage(4, []string{"grid_component-2"},
		"2020-06-01T12:00:00", "2020-06-01T12:30:00")
	require.NoError(t, err)
	assert.Equal(t, "2020-06-01T12:00:00.000Z", epoch.StartTime)
	assert.Equal(t, "2020-06-01T12:30:00.000Z", epoch.EndTime)
	assert.Equal(t, int64(4), epoch.EpochNumber)
}

func TestResourceStateMessageBuilderCoercesQuantities(t *testing.T) {
	g := newTestGenerator(t)
	node := 2
	msg, err := g.ResourceStateMessage(1, []string{"manager-3"}, "bus-1",
		10.5, QuantityBlock{Value: 2.0, UnitOfMeasure: UnitReactivePower}, &node, 75.0)
	require.NoError(t, err)
	assert.Equal(t, QuantityBlock{Value: 10.5, UnitOfMeasure: UnitRealPower}, msg.RealPower)
	assert.Equal(t, QuantityBlock{Value: 2.0, UnitOfMeasure: UnitReactivePower}, msg.ReactivePower)
	require.NotNil(t, msg.StateOfCharge)
	assert.Equal(t, 75.0, msg.StateOfCharge.Value)

	_, err = g.ResourceStateMessage(1, []string{"manager-3"}, "bus-1",
		QuantityBlock{Value: 1, UnitOfMeasure: "W"}, 2.0, nil, nil)
	assert.Error(t, err, "unit mismatch")
}

func TestGetRoutesThroughTheRegistry(t *testing.T) {
	g := newTestGenerator(t)

	msg := g.Get(TypeStatus, map[string]any{
		"EpochNumber":          1,
		"TriggeringMessageIds": []string{"manager-3"},
		"Value":                StatusReady,
	})
	require.NotNil(t, msg)
	status, ok := msg.(*StatusMessage)
	require.True(t, ok)
	assert.Equal(t, StatusReady, status.Value)
	assert.Equal(t, "grid_component", status.SourceProcessID)

	// Invalid content degrades to nil instead of panicking.
	assert.Nil(t, g.Get(TypeStatus, map[string]any{
		"EpochNumber":          1,
		"TriggeringMessageIds": []string{"manager-3"},
		"Value":                "done",
	}))

	// Unknown type tags use the schema-light path.
	general := g.Get("WeatherForecast", map[string]any{"Temperature": 21.5})
	require.NotNil(t, general)
	assert.Equal(t, "WeatherForecast", general.Meta().Type)
}

func TestResultMessageBuilderCarriesTimeSeries(t *testing.T) {
	g := newTestGenerator(t)
	block := testTimeSeriesBlock(t)

	msg, err := g.ResultMessage(TypeResult, 1, []string{"simulation_manager-1"},
		map[string]any{"Prices": block, "Market": "day_ahead"})
	require.NoError(t, err)
	assert.Equal(t, TypeResult, msg.Type)
	assert.Equal(t, int64(1), msg.EpochNumber)

	data, err := ToBytes(msg)
	require.NoError(t, err)
	decoded := FromBytes(data)
	require.True(t, decoded.IsTyped())

	result, ok := decoded.Message.(*ResultMessage)
	require.True(t, ok)
	assert.Equal(t, "day_ahead", result.Extra["Market"])

	// Decoding turns the block into a raw JSON object. The accessor
	// converts and validates it again.
	got, err := result.TimeSeries("Prices")
	require.NoError(t, err)
	assert.True(t, block.Equal(got))

	_, err = result.TimeSeries("Missing")
	assert.ErrorIs(t, err, errors.ErrInvalidValue)
}

func TestResultMessageSetTimeSeriesValidatesBlock(t *testing.T) {
	g := newTestGenerator(t)
	msg, err := g.ResultMessage(TypeResult, 1, []string{"simulation_manager-1"}, nil)
	require.NoError(t, err)

	require.NoError(t, msg.SetTimeSeries("Prices", testTimeSeriesBlock(t)))
	_, err = msg.TimeSeries("Prices")
	require.NoError(t, err)

	err = msg.SetTimeSeries("Broken", &TimeSeriesBlock{TimeIndex: []string{"2020-06-01T12:00:00.000Z"}})
	require.Error(t, err, "block without series must be rejected")
	assert.ErrorIs(t, err, errors.ErrInvalidValue)

	err = msg.SetTimeSeries("", testTimeSeriesBlock(t))
	assert.ErrorIs(t, err, errors.ErrInvalidValue)
}
