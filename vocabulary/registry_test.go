package vocabulary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLoadsEmbeddedTable(t *testing.T) {
	r, err := NewUnitRegistry()
	require.NoError(t, err)
	assert.Greater(t, r.Len(), 20)

	for _, code := range []string{"kW", "kV.A{r}", "%", "Cel", "W", "kg"} {
		assert.True(t, r.IsValid(code), "code %q", code)
	}
	assert.False(t, r.IsValid("furlongs-per-fortnight"))
	assert.False(t, r.IsValid(""))
}

func TestDescription(t *testing.T) {
	r, err := NewUnitRegistry()
	require.NoError(t, err)

	description, ok := r.Description("kW")
	require.True(t, ok)
	assert.NotEmpty(t, description)

	_, ok = r.Description("nope")
	assert.False(t, ok)
}

type staticConfirmer struct {
	codes map[string]string
	calls int
}

func (c *staticConfirmer) Confirm(code string) (string, bool) {
	c.calls++
	description, ok := c.codes[code]
	return description, ok
}

func TestConfirmerExtendsRegistry(t *testing.T) {
	confirmer := &staticConfirmer{codes: map[string]string{"mmol/L": "millimole per litre"}}
	r, err := NewUnitRegistry(WithConfirmer(confirmer))
	require.NoError(t, err)

	require.True(t, r.IsValid("mmol/L"))
	// The confirmed code is cached, so the confirmer is asked only once.
	require.True(t, r.IsValid("mmol/L"))
	assert.Equal(t, 1, confirmer.calls)

	description, ok := r.Description("mmol/L")
	require.True(t, ok)
	assert.Equal(t, "millimole per litre", description)

	assert.False(t, r.IsValid("made-up"))
	assert.Equal(t, 2, confirmer.calls)
}
