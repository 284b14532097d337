package message

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPayload(typeTag string, extra string) []byte {
	base := fmt.Sprintf(`"Type": %q,
		"SimulationId": "2020-06-01T12:00:00.000Z",
		"SourceProcessId": "grid_component",
		"MessageId": "grid_component-1",
		"Timestamp": "2020-06-01T12:01:00.000Z"`, typeTag)
	if extra != "" {
		base += ",\n" + extra
	}
	return []byte("{" + base + "}")
}

func TestFromBytesDecodesTypedMessages(t *testing.T) {
	tests := []struct {
		typeTag string
		extra   string
		check   func(t *testing.T, msg Message)
	}{
		{
			TypeSimState,
			`"SimulationState": "running"`,
			func(t *testing.T, msg Message) {
				m := msg.(*SimStateMessage)
				assert.Equal(t, SimulationStateRunning, m.SimulationState)
			},
		},
		{
			TypeEpoch,
			`"EpochNumber": 2,
			 "TriggeringMessageIds": ["manager-4"],
			 "StartTime": "2020-06-01T12:00:00.000Z",
			 "EndTime": "2020-06-01T12:30:00.000Z"`,
			func(t *testing.T, msg Message) {
				m := msg.(*EpochMessage)
				assert.Equal(t, int64(2), m.EpochNumber)
				assert.Equal(t, "2020-06-01T12:30:00.000Z", m.EndTime)
			},
		},
		{
			TypeStatus,
			`"EpochNumber": 2, "TriggeringMessageIds": ["manager-4"], "Value": "ready"`,
			func(t *testing.T, msg Message) {
				assert.Equal(t, StatusReady, msg.(*StatusMessage).Value)
			},
		},
		{
			TypeError,
			`"EpochNumber": 2, "TriggeringMessageIds": ["manager-4"], "Description": "it broke"`,
			func(t *testing.T, msg Message) {
				assert.Equal(t, "it broke", msg.(*ErrorMessage).Description)
			},
		},
		{
			TypeResult,
			`"EpochNumber": 2, "TriggeringMessageIds": ["manager-4"], "Total": 42.0`,
			func(t *testing.T, msg Message) {
				m := msg.(*ResultMessage)
				assert.Equal(t, 42.0, m.Extra["Total"])
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.typeTag, func(t *testing.T) {
			decoded := FromBytes(validPayload(tt.typeTag, tt.extra))
			require.True(t, decoded.IsTyped(), "got %+v", decoded)
			assert.Equal(t, tt.typeTag, decoded.Message.Meta().Type)
			tt.check(t, decoded.Message)
		})
	}
}

func TestFromBytesCoercesResourceStateQuantities(t *testing.T) {
	payload := validPayload(TypeResourceState, `
		"EpochNumber": 2,
		"TriggeringMessageIds": ["manager-4"],
		"Bus": "bus-7",
		"RealPower": 10.5,
		"ReactivePower": {"Value": 1.5, "UnitOfMeasure": "kV.A{r}"},
		"StateOfCharge": 80.0`)

	decoded := FromBytes(payload)
	require.True(t, decoded.IsTyped(), "got %+v", decoded)
	m := decoded.Message.(*ResourceStateMessage)
	assert.Equal(t, QuantityBlock{Value: 10.5, UnitOfMeasure: UnitRealPower}, m.RealPower)
	assert.Equal(t, QuantityBlock{Value: 1.5, UnitOfMeasure: UnitReactivePower}, m.ReactivePower)
	require.NotNil(t, m.StateOfCharge)
	assert.Equal(t, QuantityBlock{Value: 80.0, UnitOfMeasure: UnitStateOfCharge}, *m.StateOfCharge)
	assert.Nil(t, m.Node)
}

func TestFromBytesUnknownTypeFallsBackToGeneral(t *testing.T) {
	payload := validPayload("WeatherForecast", `"TemperatureForecast": [20.5, 21.0]`)

	decoded := FromBytes(payload)
	require.True(t, decoded.IsTyped())
	m, ok := decoded.Message.(*GeneralMessage)
	require.True(t, ok)
	assert.Equal(t, "WeatherForecast", m.Type)
	assert.Contains(t, m.Extra, "TemperatureForecast")

	// The unrecognized attributes survive a re-encode.
	data, err := ToBytes(m)
	require.NoError(t, err)
	again := FromBytes(data)
	require.True(t, again.IsTyped())
	assert.True(t, Equal(m, again.Message))
}

func TestFromBytesInvalidSchemaDegradesToJSON(t *testing.T) {
	// A SimState message without its state attribute fails validation but
	// still surfaces as a JSON object.
	decoded := FromBytes(validPayload(TypeSimState, ""))
	assert.False(t, decoded.IsTyped())
	require.True(t, decoded.IsJSON())
	assert.Equal(t, TypeSimState, decoded.JSON["Type"])
}

func TestFromBytesNonJSONDegradesToRaw(t *testing.T) {
	decoded := FromBytes([]byte("hello there"))
	assert.False(t, decoded.IsTyped())
	assert.False(t, decoded.IsJSON())
	require.True(t, decoded.IsRaw())
	assert.Equal(t, "hello there", decoded.Raw)
}

func TestDecodeType(t *testing.T) {
	payload := validPayload(TypeSimState, `"SimulationState": "stopped"`)

	msg := DecodeType(TypeSimState, payload)
	require.NotNil(t, msg)
	assert.Equal(t, SimulationStateStopped, msg.(*SimStateMessage).SimulationState)

	// The payload does not validate as an epoch message.
	assert.Nil(t, DecodeType(TypeEpoch, payload))
	assert.Nil(t, DecodeType(TypeSimState, []byte("not json")))
}

func TestValidate(t *testing.T) {
	payload := validPayload(TypeSimState, `"SimulationState": "running"`)
	assert.True(t, Validate(TypeSimState, payload))
	assert.False(t, Validate(TypeEpoch, payload))
}

func TestFromBytesRejectsBadResultFields(t *testing.T) {
	tests := []struct {
		name  string
		extra string
	}{
		{"negative epoch", `"EpochNumber": -1, "TriggeringMessageIds": ["manager-4"], "Value": "ready"`},
		{"empty triggering ids", `"EpochNumber": 1, "TriggeringMessageIds": [], "Value": "ready"`},
		{"missing triggering ids", `"EpochNumber": 1, "Value": "ready"`},
		{"unknown warning", `"EpochNumber": 1, "TriggeringMessageIds": ["manager-4"],
			"Warnings": ["warning.unheard.of"], "Value": "ready"`},
		{"bad status value", `"EpochNumber": 1, "TriggeringMessageIds": ["manager-4"], "Value": "done"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded := FromBytes(validPayload(TypeStatus, tt.extra))
			assert.False(t, decoded.IsTyped())
			assert.True(t, decoded.IsJSON())
		})
	}
}

func TestStatusWarningsAreNormalized(t *testing.T) {
	payload := validPayload(TypeStatus,
		`"EpochNumber": 1, "TriggeringMessageIds": ["manager-4"], "Warnings": [], "Value": "ready"`)
	decoded := FromBytes(payload)
	require.True(t, decoded.IsTyped())
	assert.Nil(t, decoded.Message.(*StatusMessage).Warnings)
}
