package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"0.001", "0.001"},
		{" 0.5 btc ", "0.5"},
		{"2BTC", "2"},
		{"150000 sats", "0.0015"},
		{"1 sat", "0.00000001"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, input := range []string{"", "abc", "-1", "1 ETH", "1.5 sats", "0.000000001"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseAmount(input)
			assert.Error(t, err)
		})
	}
}

func TestNormalizeCoin(t *testing.T) {
	assert.Equal(t, "bitcoin", NormalizeCoin("BTC"))
	assert.Equal(t, "ethereum", NormalizeCoin(" eth "))
	assert.Equal(t, "dai", NormalizeCoin("DAI"))
}
