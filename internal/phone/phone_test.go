package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		variants []string
		valid    bool
	}{
		{
			name:     "ten digit domestic",
			raw:      "9092601366",
			variants: []string{"19092601366", "9092601366", "+19092601366"},
			valid:    true,
		},
		{
			name:     "formatted ten digit",
			raw:      "(909) 260-1366",
			variants: []string{"19092601366", "9092601366", "+19092601366"},
			valid:    true,
		},
		{
			name:     "eleven digit with us country code",
			raw:      "19092601366",
			variants: []string{"19092601366", "9092601366", "+19092601366"},
			valid:    true,
		},
		{
			name:     "e164 input",
			raw:      "+19092601366",
			variants: []string{"19092601366", "9092601366", "+19092601366"},
			valid:    true,
		},
		{
			name:     "international number",
			raw:      "+442071838750",
			variants: []string{"442071838750", "+442071838750"},
			valid:    true,
		},
		{
			name:     "too short",
			raw:      "260-1366",
			variants: []string{"2601366"},
			valid:    false,
		},
		{
			name:     "empty input",
			raw:      "",
			variants: []string{""},
			valid:    false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.raw)
			assert.Equal(t, tc.variants, got.Variants)
			assert.Equal(t, tc.valid, got.Valid)
		})
	}
}

func TestNormalize_TenDigitFirstVariantIsCountryCoded(t *testing.T) {
	inputs := []string{"2125551234", "9095550000", "8005551212"}
	for _, in := range inputs {
		got := Normalize(in)
		assert.True(t, got.Valid)
		assert.Equal(t, "1"+in, got.Variants[0])
	}
}

func TestNormalize_ElevenDigitUSKeepsNationalSecond(t *testing.T) {
	got := Normalize("12125551234")
	assert.True(t, got.Valid)
	assert.Equal(t, "12125551234", got.Variants[0])
	assert.Equal(t, "2125551234", got.Variants[1])
}

func TestNormalize_NoDuplicateVariants(t *testing.T) {
	inputs := []string{"9092601366", "+19092601366", "12125551234", "+442071838750", "555"}
	for _, in := range inputs {
		got := Normalize(in)
		seen := map[string]bool{}
		for _, v := range got.Variants {
			assert.False(t, seen[v], "duplicate variant %q for input %q", v, in)
			seen[v] = true
		}
	}
}
