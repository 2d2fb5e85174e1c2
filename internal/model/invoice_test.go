package model_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/ksef-cost-sync/internal/model"
)

func TestCostInvoice_Editable(t *testing.T) {
	tests := []struct {
		status   model.InvoiceStatus
		editable bool
	}{
		{status: model.StatusNew, editable: true},
		{status: model.StatusExcluded, editable: true},
		{status: model.StatusBooked, editable: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			inv := model.CostInvoice{Status: tt.status}
			assert.Equal(t, tt.editable, inv.Editable())
		})
	}
}

func TestVATRate_Percent(t *testing.T) {
	tests := []struct {
		rate model.VATRate
		want int64
	}{
		{rate: model.VATRateStandard, want: 23},
		{rate: model.VATRateReducedHigh, want: 8},
		{rate: model.VATRateReducedLow, want: 5},
		{rate: model.VATRateZero, want: 0},
		{rate: model.VATRateExempt, want: 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.rate), func(t *testing.T) {
			assert.True(t, tt.rate.Percent().Equal(decimal.NewFromInt(tt.want)))
		})
	}

	assert.True(t, model.VATRateExempt.Exempt())
	assert.False(t, model.VATRateZero.Exempt(), "a zero rate is taxable, not exempt")
}

func TestValidationErrors(t *testing.T) {
	violations := &model.ValidationErrors{}
	assert.True(t, violations.Empty())

	violations.Add("item %d booking percentage out of range", 3)
	violations.Add("no item selected")
	require.False(t, violations.Empty())
	require.Len(t, violations.Violations, 2)
	assert.Contains(t, violations.Error(), "item 3")
}

func TestErrorConstructors(t *testing.T) {
	notFound := model.NewNotFoundError("cost invoice", "abc")
	assert.Contains(t, notFound.Error(), "cost invoice")
	assert.Contains(t, notFound.Error(), "abc")

	conflict := model.NewConflictError("a %s sync run is already in progress", model.SyncIncremental)
	assert.Contains(t, conflict.Error(), "INCREMENTAL")

	validation := model.NewValidationError("bookingPercentage", "150", "out of range")
	assert.Contains(t, validation.Error(), "bookingPercentage")
}
