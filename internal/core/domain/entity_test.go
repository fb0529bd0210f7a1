package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTLP(t *testing.T) {
	cases := map[string]TLP{
		"white": TLPWhite,
		"GREEN": TLPGreen,
		" amber": TLPAmber,
		"Red":   TLPRed,
	}
	for in, want := range cases {
		got, err := ParseTLP(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseTLP("clear")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = ParseTLP("")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNaturalKey(t *testing.T) {
	ind := &Entity{Type: EntityIndicator, IndicatorType: "ipv4-addr", Value: "10.0.0.1"}
	assert.Equal(t, "indicator:ipv4-addr:10.0.0.1", ind.NaturalKey())

	rel := &Entity{Type: EntityRelationship, RelType: "indicates", FromID: "a", ToID: "b"}
	assert.Equal(t, "relationship:indicates:a:b", rel.NaturalKey())

	rep := &Entity{Type: EntityReport, Name: "Emotet wave"}
	assert.Equal(t, "report:Emotet wave", rep.NaturalKey())
}

func TestDeterministicID(t *testing.T) {
	a := DeterministicID(EntityIndicator, "indicator:ipv4-addr:10.0.0.1")
	b := DeterministicID(EntityIndicator, "indicator:ipv4-addr:10.0.0.1")
	assert.Equal(t, a, b)
	assert.Contains(t, a, "indicator--")

	// Different keys and different types both change the ID.
	c := DeterministicID(EntityIndicator, "indicator:ipv4-addr:10.0.0.2")
	assert.NotEqual(t, a, c)
	d := DeterministicID(EntityReport, "indicator:ipv4-addr:10.0.0.1")
	assert.NotEqual(t, a, d)
}
