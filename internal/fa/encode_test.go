package fa_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/ksef-cost-sync/internal/fa"
	"github.com/rezonia/ksef-cost-sync/internal/model"
)

func sampleInvoice(t *testing.T) (*model.CostInvoice, []model.CostInvoiceItem) {
	t.Helper()
	sale := day(t, "2026-05-05")
	due := day(t, "2026-05-20")
	inv := &model.CostInvoice{
		Number:    "NOTA/2026/05/001",
		IssueDate: day(t, "2026-05-06"),
		SaleDate:  &sale,
		DueDate:   &due,
		Currency:  "PLN",
	}
	items := []model.CostInvoiceItem{
		{
			LineNo:      1,
			Description: "Obsługa księgowa <maj & czerwiec>",
			Unit:        "szt.",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString("1500.00"),
			NetValue:    decimal.RequireFromString("1500.00"),
			VATRate:     model.VATRateStandard,
			VATValue:    decimal.RequireFromString("345.00"),
			GrossValue:  decimal.RequireFromString("1845.00"),
		},
		{
			LineNo:      2,
			Description: "Prenumerata czasopisma",
			Unit:        "szt.",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.RequireFromString("40.00"),
			NetValue:    decimal.RequireFromString("80.00"),
			VATRate:     model.VATRateReducedHigh,
			VATValue:    decimal.RequireFromString("6.40"),
			GrossValue:  decimal.RequireFromString("86.40"),
		},
		{
			LineNo:      3,
			Description: "Szkolenie BHP",
			Unit:        "szt.",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString("300.00"),
			NetValue:    decimal.RequireFromString("300.00"),
			VATRate:     model.VATRateExempt,
			GrossValue:  decimal.RequireFromString("300.00"),
		},
	}
	return inv, items
}

var testIssuer = fa.Issuer{
	TaxID:   "1132245785",
	Name:    "Biuro Rachunkowe BETA Sp. z o.o.",
	Address: "ul. Prosta 51, 00-838 Warszawa",
}

func TestEncode_RoundTrip(t *testing.T) {
	inv, items := sampleInvoice(t)
	buyer := fa.Buyer{TaxID: "5260305006", Name: "Hurtownia Papiernicza ALFA Sp. z o.o."}

	doc, err := fa.Encode(inv, items, testIssuer, buyer)
	require.NoError(t, err)

	decoded, decodedItems, err := fa.Decode(doc)
	require.NoError(t, err)

	assert.Equal(t, inv.Number, decoded.Number)
	assert.Equal(t, inv.IssueDate, decoded.IssueDate)
	require.NotNil(t, decoded.SaleDate)
	assert.Equal(t, *inv.SaleDate, *decoded.SaleDate)
	require.NotNil(t, decoded.DueDate)
	assert.Equal(t, *inv.DueDate, *decoded.DueDate)
	assert.Equal(t, "PLN", decoded.Currency)

	// The seller block on an outbound document is the configured issuer,
	// which the decoder reads back as the supplier.
	assert.Equal(t, testIssuer.TaxID, decoded.SupplierTaxID)
	assert.Equal(t, testIssuer.Name, decoded.SupplierName)

	require.Len(t, decodedItems, len(items))
	for i, item := range items {
		got := decodedItems[i]
		assert.Equal(t, item.LineNo, got.LineNo)
		assert.Equal(t, item.Description, got.Description)
		assert.Equal(t, item.VATRate, got.VATRate)
		assert.True(t, item.NetValue.Equal(got.NetValue), "line %d net: %s vs %s", i+1, item.NetValue, got.NetValue)
	}

	// Per-rate subtotals survive the trip exactly
	want := fa.BucketTotals(items)
	got := fa.BucketTotals(decodedItems)
	require.Len(t, got, len(want))
	for rate, b := range want {
		assert.True(t, b.Net.Equal(got[rate].Net), "rate %s net: %s vs %s", rate, b.Net, got[rate].Net)
		assert.True(t, b.VAT.Equal(got[rate].VAT), "rate %s vat: %s vs %s", rate, b.VAT, got[rate].VAT)
	}

	// Document totals match the bucket sums
	assert.True(t, decoded.NetAmount.Equal(decimal.RequireFromString("1880.00")), "net: %s", decoded.NetAmount)
	assert.True(t, decoded.VATAmount.Equal(decimal.RequireFromString("351.40")), "vat: %s", decoded.VATAmount)
	assert.True(t, decoded.GrossAmount.Equal(decimal.RequireFromString("2231.40")), "gross: %s", decoded.GrossAmount)
}

func TestEncode_EscapesMetacharacters(t *testing.T) {
	inv, items := sampleInvoice(t)

	doc, err := fa.Encode(inv, items, testIssuer, fa.Buyer{TaxID: "5260305006", Name: "ALFA"})
	require.NoError(t, err)

	out := string(doc)
	assert.Contains(t, out, "Obsługa księgowa &lt;maj &amp; czerwiec&gt;")
	assert.NotContains(t, out, "<maj & czerwiec>")
}

func TestEncode_RejectsRateWithoutSlot(t *testing.T) {
	inv, items := sampleInvoice(t)
	// a pre-2011 rate normalizes fine on decode but has no P_13/P_14 slot
	items[1].VATRate = model.VATRate("22")
	items[1].VATValue = decimal.RequireFromString("17.60")

	_, err := fa.Encode(inv, items, testIssuer, fa.Buyer{TaxID: "5260305006", Name: "ALFA"})
	require.Error(t, err)

	var validationErr *model.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "vatRate", validationErr.Field)
}

func TestEncode_BuyerWithoutTaxID(t *testing.T) {
	inv, items := sampleInvoice(t)

	doc, err := fa.Encode(inv, items, testIssuer, fa.Buyer{Name: "Jan Kowalski"})
	require.NoError(t, err)

	out := string(doc)
	assert.Contains(t, out, "<BrakID>1</BrakID>")
}

func TestEncodeCorrection(t *testing.T) {
	inv, items := sampleInvoice(t)
	corr := fa.Correction{
		Reason:            "Błędna stawka VAT w pozycji 2",
		Effect:            fa.EffectCorrectionDate,
		OriginalIssueDate: day(t, "2026-04-06"),
		OriginalNumber:    "NOTA/2026/04/001",
		OriginalKSeFID:    "5260305006-20260406-ABCDEF123456-AB",
	}

	doc, err := fa.EncodeCorrection(inv, items, testIssuer, fa.Buyer{TaxID: "5260305006", Name: "ALFA"}, corr)
	require.NoError(t, err)

	out := string(doc)
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, "<RodzajFaktury>KOR</RodzajFaktury>")
	assert.Contains(t, out, "<PrzyczynaKorekty>Błędna stawka VAT w pozycji 2</PrzyczynaKorekty>")
	assert.Contains(t, out, "<TypKorekty>2</TypKorekty>")
	assert.Contains(t, out, "<DataWystFaKorygowanej>2026-04-06</DataWystFaKorygowanej>")
	assert.Contains(t, out, "<NrFaKorygowanej>NOTA/2026/04/001</NrFaKorygowanej>")
	assert.Contains(t, out, "<NrKSeF>5260305006-20260406-ABCDEF123456-AB</NrKSeF>")

	// A correction still decodes like an ordinary document
	decoded, _, err := fa.Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, inv.Number, decoded.Number)
}

func TestEncodeCorrection_RequiresReason(t *testing.T) {
	inv, items := sampleInvoice(t)

	_, err := fa.EncodeCorrection(inv, items, testIssuer, fa.Buyer{TaxID: "5260305006"}, fa.Correction{})
	require.Error(t, err)

	var validationErr *model.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestEncodeCorrection_DefaultEffect(t *testing.T) {
	inv, items := sampleInvoice(t)
	corr := fa.Correction{
		Reason:            "Korekta danych nabywcy",
		OriginalIssueDate: day(t, "2026-04-06"),
		OriginalNumber:    "NOTA/2026/04/001",
	}

	doc, err := fa.EncodeCorrection(inv, items, testIssuer, fa.Buyer{TaxID: "5260305006"}, corr)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "<TypKorekty>2</TypKorekty>")
}
