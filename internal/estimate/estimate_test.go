package estimate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuySell(t *testing.T) {
	assert.InDelta(t, 0.55, Buy(0.5, 10), 1e-12)
	assert.InDelta(t, 0.45, Sell(0.5, 10), 1e-12)
	assert.Equal(t, 0.5, Buy(0.5, 0))
	assert.Less(t, Sell(1, 500), 0.0, "no bounds checking on size")
}

func TestQuote_KeepsPriorOnBadInput(t *testing.T) {
	q := NewQuote(0.6, 0.4)

	assert.False(t, q.UpdateBuy(0.5, "abc"))
	assert.False(t, q.UpdateSell(0.5, "abc"))
	assert.Equal(t, 0.6, q.Buy())
	assert.Equal(t, 0.4, q.Sell())

	assert.False(t, q.UpdateBuy(0.5, ""))
	assert.Equal(t, 0.6, q.Buy())
}

func TestQuote_Update(t *testing.T) {
	q := NewQuote(0, 0)

	assert.True(t, q.UpdateBuy(0.5, "10"))
	assert.True(t, q.UpdateSell(0.5, " 2.5 "))
	assert.InDelta(t, 0.55, q.Buy(), 1e-12)
	assert.InDelta(t, 0.4875, q.Sell(), 1e-12)
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1.5", 1.5, true},
		{"-2", -2, true},
		{"1e3", 1000, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1abc", 0, false},
		{"  ", 0, false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}
