package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIssiConstructor(t *testing.T) {
	a := Issi(1234)
	assert.Equal(t, uint32(1234), a.SSI)
	assert.Equal(t, ISSI, a.Type)
	assert.False(t, a.Encrypted)
	assert.False(t, a.IsGroup())
}

func TestGssiIsGroup(t *testing.T) {
	a := Gssi(5678)
	assert.True(t, a.IsGroup())
}

func TestStringFormatting(t *testing.T) {
	a := Issi(42)
	assert.Equal(t, "ISSI:42", a.String())
	a.Encrypted = true
	assert.Equal(t, "E_ISSI:42", a.String())
}

func TestNewPanicsOnOversizedSSI(t *testing.T) {
	assert.Panics(t, func() {
		New(MaxSSI+1, SSI)
	})
}

func TestEventLabelTypeString(t *testing.T) {
	a := New(1, EventLabel)
	assert.Equal(t, "EventLabel", a.Type.String())
}
