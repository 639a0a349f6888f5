package mac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLayouts(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"lowercase colons", "aa:bb:cc:dd:ee:ff"},
		{"uppercase hyphens", "AA-BB-CC-DD-EE-FF"},
		{"bare hex", "aabbccddeeff"},
		{"dotted", "aabb.ccdd.eeff"},
		{"spaced", "aa bb cc dd ee ff"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.input)
			require.NoError(t, err)
			assert.Equal(t, "AA:BB:CC:DD:EE:FF", got)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	first, err := Normalize("00-1a-11-22-33-44")
	require.NoError(t, err)

	second, err := Normalize(first)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantLength int
	}{
		{"empty", "", -1},
		{"too short", "AA:BB:CC:DD:EE", 10},
		{"too long", "AA:BB:CC:DD:EE:FF:00", 14},
		{"non-hex", "GG:BB:CC:DD:EE:01", -1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.input)
			require.Error(t, err)

			var invalid *InvalidMACError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tc.input, invalid.Input)
			assert.Equal(t, tc.wantLength, invalid.Length)
		})
	}
}

func TestFirstOctetBits(t *testing.T) {
	assert.True(t, IsMulticast("01:00:5E:00:00:01"))
	assert.False(t, IsMulticast("AA:BB:CC:DD:EE:01"))
	assert.True(t, IsLocallyAdministered("AA:BB:CC:DD:EE:01")) // 0xAA has bit 1 set
	assert.False(t, IsLocallyAdministered("00:1B:63:00:00:01"))

	// Invalid input never reports a set bit.
	assert.False(t, IsMulticast("not-a-mac"))
	assert.False(t, IsLocallyAdministered(""))
}

func TestManufacturer(t *testing.T) {
	assert.Equal(t, "Example Medical Devices Inc.", Manufacturer("aa:bb:cc:dd:ee:01"))
	assert.Equal(t, "Apple", Manufacturer("001b63aabbcc"))
	assert.Equal(t, "unknown", Manufacturer("FF:FF:FF:FF:FF:FF"))
	assert.Equal(t, "unknown", Manufacturer("bogus"))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("AA:BB:CC:DD:EE:FF"))
	assert.False(t, IsValid("AA:BB:CC:DD:EE"))
}
