package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/ksef-cost-sync/internal/money"
)

func TestFromString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "plain", input: "1234.56", expected: "1234.56"},
		{name: "comma separator", input: "1234,56", expected: "1234.56"},
		{name: "whitespace", input: "  42.00 ", expected: "42"},
		{name: "negative", input: "-10.50", expected: "-10.5"},
		{name: "integer", input: "7", expected: "7"},
		{name: "garbage", input: "abc", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := money.FromString(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, d.Equal(decimal.RequireFromString(tt.expected)), "got %s", d)
		})
	}
}

func TestParsePercent(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "whole", input: "50", want: "50"},
		{name: "fractional", input: "33.33", want: "33.33"},
		{name: "comma", input: "12,5", want: "12.5"},
		{name: "lower bound", input: "0", want: "0"},
		{name: "upper bound", input: "100", want: "100"},
		{name: "negative", input: "-1", wantErr: true},
		{name: "over hundred", input: "100.01", wantErr: true},
		{name: "not a number", input: "half", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := money.ParsePercent(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, d.Equal(decimal.RequireFromString(tt.want)), "got %s", d)
		})
	}
}

func TestApplyPercent(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		percent string
		want    string
	}{
		{name: "full", amount: "1000", percent: "100", want: "1000"},
		{name: "half", amount: "1000", percent: "50", want: "500"},
		{name: "vat 23", amount: "1500.00", percent: "23", want: "345.00"},
		{name: "rounds to grosz", amount: "100.00", percent: "33.333", want: "33.33"},
		{name: "zero", amount: "99.99", percent: "0", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := money.ApplyPercent(
				decimal.RequireFromString(tt.amount),
				decimal.RequireFromString(tt.percent),
			)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestSum(t *testing.T) {
	values := []decimal.Decimal{
		decimal.RequireFromString("10.10"),
		decimal.RequireFromString("20.20"),
		decimal.RequireFromString("-5.30"),
	}
	assert.True(t, money.Sum(values).Equal(decimal.RequireFromString("25.00")))
	assert.True(t, money.Sum(nil).IsZero())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1234.50", money.FormatAmount(decimal.RequireFromString("1234.5")))
	assert.Equal(t, "0.00", money.FormatAmount(decimal.Zero))
	assert.Equal(t, "2.5", money.FormatQuantity(decimal.RequireFromString("2.500")))
	assert.Equal(t, "0.333333", money.FormatQuantity(decimal.RequireFromString("0.3333333")))
}
