package fa

import (
	"encoding/xml"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/ksef-cost-sync/internal/model"
	"github.com/rezonia/ksef-cost-sync/internal/money"
)

// Schema constants for the targeted revision
const (
	FormCode      = "FA"
	SchemaVariant = "2"
	SchemaSystem  = "FA (2)"
)

// CorrectionEffect is the schema's correction-effect-date type code
type CorrectionEffect string

const (
	EffectOriginalDate   CorrectionEffect = "1" // effective at the original invoice date
	EffectCorrectionDate CorrectionEffect = "2" // effective at the correction date
	EffectOther          CorrectionEffect = "3"
)

// Correction describes a correction document's extra sections
type Correction struct {
	Reason string
	Effect CorrectionEffect

	// back-reference to the corrected document
	OriginalIssueDate time.Time
	OriginalNumber    string
	OriginalKSeFID    string
}

// Marshalled document shape. Free text passes through xml.Marshal, which
// escapes the five XML metacharacters.
type faktura struct {
	XMLName  xml.Name `xml:"Faktura"`
	Naglowek naglowek `xml:"Naglowek"`
	Podmiot1 podmiot  `xml:"Podmiot1"`
	Podmiot2 podmiot  `xml:"Podmiot2"`
	Fa       faBlock  `xml:"Fa"`
}

type naglowek struct {
	KodFormularza     kodFormularza `xml:"KodFormularza"`
	WariantFormularza string        `xml:"WariantFormularza"`
	DataWytworzeniaFa string        `xml:"DataWytworzeniaFa"`
}

type kodFormularza struct {
	KodSystemowy string `xml:"kodSystemowy,attr"`
	Value        string `xml:",chardata"`
}

type podmiot struct {
	DaneIdentyfikacyjne daneIdent `xml:"DaneIdentyfikacyjne"`
	Adres               *adres    `xml:"Adres,omitempty"`
}

type daneIdent struct {
	NIP    string `xml:"NIP,omitempty"`
	BrakID string `xml:"BrakID,omitempty"` // "1" when no tax identifier exists
	Nazwa  string `xml:"Nazwa,omitempty"`
}

type adres struct {
	AdresL1 string `xml:"AdresL1"`
}

type faBlock struct {
	KodWaluty string `xml:"KodWaluty"`
	P1        string `xml:"P_1"`           // issue date
	P2        string `xml:"P_2"`           // invoice number
	P6        string `xml:"P_6,omitempty"` // sale date

	// VAT-bucketed totals at fixed slots: standard, reduced-high,
	// reduced-low, zero, exempt
	P131 string `xml:"P_13_1,omitempty"`
	P141 string `xml:"P_14_1,omitempty"`
	P132 string `xml:"P_13_2,omitempty"`
	P142 string `xml:"P_14_2,omitempty"`
	P133 string `xml:"P_13_3,omitempty"`
	P143 string `xml:"P_14_3,omitempty"`
	P136 string `xml:"P_13_6,omitempty"`
	P137 string `xml:"P_13_7,omitempty"`

	P15 string `xml:"P_15"` // grand total

	RodzajFaktury string `xml:"RodzajFaktury"`

	PrzyczynaKorekty  string             `xml:"PrzyczynaKorekty,omitempty"`
	TypKorekty        string             `xml:"TypKorekty,omitempty"`
	DaneFaKorygowanej *daneFaKorygowanej `xml:"DaneFaKorygowanej,omitempty"`

	Wiersze  []faWiersz `xml:"FaWiersz"`
	Platnosc *platnosc  `xml:"Platnosc,omitempty"`
}

type daneFaKorygowanej struct {
	DataWystFaKorygowanej string `xml:"DataWystFaKorygowanej"`
	NrFaKorygowanej       string `xml:"NrFaKorygowanej"`
	NrKSeF                string `xml:"NrKSeF,omitempty"`
}

type faWiersz struct {
	NrWierszaFa int    `xml:"NrWierszaFa"`
	P7          string `xml:"P_7"`
	P8A         string `xml:"P_8A,omitempty"`
	P8B         string `xml:"P_8B,omitempty"`
	P9A         string `xml:"P_9A,omitempty"`
	P11         string `xml:"P_11"`
	P12         string `xml:"P_12"`
}

type platnosc struct {
	TerminPlatnosci []terminPlatnosci `xml:"TerminPlatnosci"`
}

type terminPlatnosci struct {
	Termin string `xml:"Termin"`
}

// Issuer is the identity emitted as the seller block on outbound
// documents. It comes from service configuration, never from the invoice
// being corrected.
type Issuer struct {
	TaxID   string
	Name    string
	Address string
}

// Buyer identifies the counterparty on an outbound document. A missing tax
// identifier is legal: the schema's "no identifier" marker is emitted
// instead.
type Buyer struct {
	TaxID   string
	Name    string
	Address string
}

// Encode renders a normalized invoice as an ordinary FA document. The seller
// block comes from the configured issuer identity, never from the invoice.
func Encode(inv *model.CostInvoice, items []model.CostInvoiceItem, issuer Issuer, buyer Buyer) ([]byte, error) {
	doc, err := buildDocument(inv, items, issuer, buyer)
	if err != nil {
		return nil, err
	}
	doc.Fa.RodzajFaktury = "VAT"
	return marshal(doc)
}

// EncodeCorrection renders a correction document: the ordinary shape plus
// the correction reason, effect-type code and original-document
// back-reference.
func EncodeCorrection(inv *model.CostInvoice, items []model.CostInvoiceItem, issuer Issuer, buyer Buyer, corr Correction) ([]byte, error) {
	if corr.Reason == "" {
		return nil, model.NewValidationError("reason", nil, "correction reason is required")
	}
	if corr.Effect == "" {
		corr.Effect = EffectCorrectionDate
	}

	doc, err := buildDocument(inv, items, issuer, buyer)
	if err != nil {
		return nil, err
	}
	doc.Fa.RodzajFaktury = "KOR"
	doc.Fa.PrzyczynaKorekty = corr.Reason
	doc.Fa.TypKorekty = string(corr.Effect)
	doc.Fa.DaneFaKorygowanej = &daneFaKorygowanej{
		DataWystFaKorygowanej: corr.OriginalIssueDate.Format("2006-01-02"),
		NrFaKorygowanej:       corr.OriginalNumber,
		NrKSeF:                corr.OriginalKSeFID,
	}
	return marshal(doc)
}

func buildDocument(inv *model.CostInvoice, items []model.CostInvoiceItem, issuer Issuer, buyer Buyer) (*faktura, error) {
	doc := &faktura{
		Naglowek: naglowek{
			KodFormularza:     kodFormularza{KodSystemowy: SchemaSystem, Value: FormCode},
			WariantFormularza: SchemaVariant,
			DataWytworzeniaFa: time.Now().UTC().Format(time.RFC3339),
		},
		Podmiot1: podmiot{
			DaneIdentyfikacyjne: daneIdent{NIP: issuer.TaxID, Nazwa: issuer.Name},
		},
		Podmiot2: podmiot{
			DaneIdentyfikacyjne: daneIdent{NIP: buyer.TaxID, Nazwa: buyer.Name},
		},
	}
	if issuer.Address != "" {
		doc.Podmiot1.Adres = &adres{AdresL1: issuer.Address}
	}
	if buyer.TaxID == "" {
		doc.Podmiot2.DaneIdentyfikacyjne.BrakID = "1"
	}
	if buyer.Address != "" {
		doc.Podmiot2.Adres = &adres{AdresL1: buyer.Address}
	}

	currency := inv.Currency
	if currency == "" {
		currency = "PLN"
	}
	doc.Fa.KodWaluty = currency
	doc.Fa.P1 = inv.IssueDate.Format("2006-01-02")
	doc.Fa.P2 = inv.Number
	if inv.SaleDate != nil {
		doc.Fa.P6 = inv.SaleDate.Format("2006-01-02")
	}
	if inv.DueDate != nil {
		doc.Fa.Platnosc = &platnosc{
			TerminPlatnosci: []terminPlatnosci{{Termin: inv.DueDate.Format("2006-01-02")}},
		}
	}

	for i, item := range items {
		rate := string(item.VATRate)
		if item.VATRate.Exempt() {
			rate = "zw"
		}
		doc.Fa.Wiersze = append(doc.Fa.Wiersze, faWiersz{
			NrWierszaFa: i + 1,
			P7:          item.Description,
			P8A:         item.Unit,
			P8B:         money.FormatQuantity(item.Quantity),
			P9A:         money.FormatAmount(item.UnitPrice),
			P11:         money.FormatAmount(item.NetValue),
			P12:         rate,
		})
	}

	if err := fillBuckets(&doc.Fa, items); err != nil {
		return nil, err
	}
	return doc, nil
}

// fillBuckets groups line totals by VAT rate into the schema's fixed slots
// and computes the grand total. A rate without a dedicated slot cannot be
// represented in the summary, so such lines are rejected rather than
// silently counted into the grand total only.
func fillBuckets(fa *faBlock, items []model.CostInvoiceItem) error {
	buckets := BucketTotals(items)

	for rate := range buckets {
		switch rate {
		case model.VATRateStandard, model.VATRateReducedHigh, model.VATRateReducedLow,
			model.VATRateZero, model.VATRateExempt:
		default:
			return model.NewValidationError("vatRate", rate, "rate has no summary slot in the FA (2) schema")
		}
	}

	setBucket := func(rate model.VATRate, netField, vatField *string) {
		b, ok := buckets[rate]
		if !ok {
			return
		}
		*netField = money.FormatAmount(b.Net)
		if vatField != nil {
			*vatField = money.FormatAmount(b.VAT)
		}
	}

	setBucket(model.VATRateStandard, &fa.P131, &fa.P141)
	setBucket(model.VATRateReducedHigh, &fa.P132, &fa.P142)
	setBucket(model.VATRateReducedLow, &fa.P133, &fa.P143)
	setBucket(model.VATRateZero, &fa.P136, nil)
	setBucket(model.VATRateExempt, &fa.P137, nil)

	gross := decimal.Zero
	for _, b := range buckets {
		gross = gross.Add(b.Net).Add(b.VAT)
	}
	fa.P15 = money.FormatAmount(gross)
	return nil
}

// Bucket holds per-VAT-rate subtotals
type Bucket struct {
	Net decimal.Decimal
	VAT decimal.Decimal
}

// BucketTotals sums line net/VAT values per canonical VAT rate. The encoder
// and its round-trip tests share this, since matching per-bucket subtotals
// is the correctness property that matters for the codec.
func BucketTotals(items []model.CostInvoiceItem) map[model.VATRate]Bucket {
	buckets := make(map[model.VATRate]Bucket)
	for _, item := range items {
		b := buckets[item.VATRate]
		b.Net = money.Round2(b.Net.Add(item.NetValue))
		b.VAT = money.Round2(b.VAT.Add(item.VATValue))
		buckets[item.VATRate] = b
	}
	return buckets
}

func marshal(doc *faktura) ([]byte, error) {
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, model.NewParseError("xml", "failed to encode document", err)
	}
	return append([]byte(xml.Header), out...), nil
}
