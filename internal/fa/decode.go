package fa

import (
	"strings"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/rezonia/ksef-cost-sync/internal/model"
	"github.com/rezonia/ksef-cost-sync/internal/money"
)

var defaultPercent = decimal.NewFromInt(100)

// Decode parses an FA-schema invoice document into a normalized cost
// invoice and its line items. It tolerates the historical shapes of the
// schema family: each logical field is resolved by an ordered list of
// strategies, and the first one that matches wins.
func Decode(doc []byte) (*model.CostInvoice, []model.CostInvoiceItem, error) {
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(doc); err != nil {
		return nil, nil, model.NewParseError("xml", "failed to parse document", err)
	}
	root := tree.Root()
	if root == nil {
		return nil, nil, model.NewParseError("xml", "empty document", nil)
	}

	fa := findPath(root, "Fa")
	if fa == nil {
		// very old payloads put the Fa fields directly under the root
		fa = root
	}

	inv := &model.CostInvoice{
		Number:              text(fa, "P_2"),
		Currency:            text(fa, "KodWaluty"),
		Status:              model.StatusNew,
		PaymentStatus:       model.PaymentUnpaid,
		PaidAmount:          decimal.Zero,
		BookingPercent:      defaultPercent,
		VATDeductionPercent: defaultPercent,
		RawXML:              doc,
	}
	if inv.Number == "" {
		inv.Number = text(fa, "P_2A") // pre-revision number field
	}
	if inv.Currency == "" {
		inv.Currency = "PLN"
	}

	if d := date(fa, "P_1"); d != nil {
		inv.IssueDate = *d
	}
	inv.SaleDate = ResolveSaleDate(root)
	inv.DueDate = ResolveDueDate(root)

	decodeSeller(root, inv)

	items := decodeItems(fa)
	net, vat, gross := resolveTotals(fa, items)
	inv.NetAmount = net
	inv.VATAmount = vat
	inv.GrossAmount = gross

	return inv, items, nil
}

// decodeSeller extracts the supplier from the "other party" section. Two
// historical shapes coexist: the current nested DaneIdentyfikacyjne object
// and the old flat fields directly under Podmiot1.
func decodeSeller(root *etree.Element, inv *model.CostInvoice) {
	party := findPath(root, "Podmiot1")
	if party == nil {
		party = findPath(root, "Sprzedawca") // pre-KSeF payloads
	}
	if party == nil {
		return
	}

	if ident := findPath(party, "DaneIdentyfikacyjne"); ident != nil {
		inv.SupplierTaxID = text(ident, "NIP")
		inv.SupplierName = firstNonEmpty(text(ident, "Nazwa"), text(ident, "PelnaNazwa"))
	}
	if inv.SupplierTaxID == "" {
		inv.SupplierTaxID = text(party, "NIP")
	}
	if inv.SupplierName == "" {
		inv.SupplierName = firstNonEmpty(text(party, "Nazwa"), text(party, "PelnaNazwa"))
	}

	if adres := findPath(party, "Adres"); adres != nil {
		inv.SupplierAddress = joinNonEmpty(", ",
			text(adres, "AdresL1"),
			text(adres, "AdresL2"),
		)
	}
	if inv.SupplierAddress == "" {
		inv.SupplierAddress = text(party, "Adres")
	}

	inv.SupplierBankAccount = firstNonEmpty(
		text(root, "Fa", "Platnosc", "RachunekBankowy", "NrRB"),
		text(party, "NrRB"),
	)
}

// lineElements locates the line rows, tolerating the wrapped FaWiersze
// shape of the first revision and the flat FaWiersz children of later ones.
func lineElements(fa *etree.Element) []*etree.Element {
	if rows := findAll(fa, "FaWiersze", "FaWiersz"); len(rows) > 0 {
		return rows
	}
	return fa.SelectElements("FaWiersz")
}

func decodeItems(fa *etree.Element) []model.CostInvoiceItem {
	var items []model.CostInvoiceItem
	for i, row := range lineElements(fa) {
		item := model.CostInvoiceItem{
			LineNo:              i + 1,
			Description:         text(row, "P_7"),
			Unit:                text(row, "P_8A"),
			Quantity:            amount(row, "P_8B"),
			UnitPrice:           amount(row, "P_9A"),
			NetValue:            amount(row, "P_11"),
			VATRate:             NormalizeVATRate(text(row, "P_12")),
			BookingPercent:      defaultPercent,
			VATDeductionPercent: defaultPercent,
		}
		if n := text(row, "NrWierszaFa"); n != "" {
			if parsed, err := decimal.NewFromString(n); err == nil {
				item.LineNo = int(parsed.IntPart())
			}
		}

		// most revisions supply the line VAT amount; compute it from the
		// rate when they do not
		item.VATValue = amount(row, "KwotaPodatku")
		if item.VATValue.IsZero() && !item.VATRate.Exempt() {
			item.VATValue = money.ApplyPercent(item.NetValue, item.VATRate.Percent())
		}
		item.GrossValue = item.NetValue.Add(item.VATValue)

		items = append(items, item)
	}
	return items
}

// resolveTotals extracts document totals. Strategies in order: the summary
// gross P_15 with per-rate-slot net/VAT; the rate slots alone; a sum over
// the decoded lines when the document carries no totals at all.
func resolveTotals(fa *etree.Element, items []model.CostInvoiceItem) (net, vat, gross decimal.Decimal) {
	for _, slot := range []string{"P_13_1", "P_13_2", "P_13_3", "P_13_6", "P_13_7"} {
		net = net.Add(amount(fa, slot))
	}
	for _, slot := range []string{"P_14_1", "P_14_2", "P_14_3"} {
		vat = vat.Add(amount(fa, slot))
	}
	gross = amount(fa, "P_15")

	if gross.IsZero() {
		gross = net.Add(vat)
	}
	if net.IsZero() && vat.IsZero() && gross.IsZero() {
		for _, item := range items {
			net = net.Add(item.NetValue)
			vat = vat.Add(item.VATValue)
		}
		gross = net.Add(vat)
	}
	if net.IsZero() && !gross.IsZero() {
		net = gross.Sub(vat)
	}
	return money.Round2(net), money.Round2(vat), money.Round2(gross)
}

// NormalizeVATRate canonicalizes the rate representations seen across
// revisions: whole percentages ("23"), fractional values ("0.23", scaled
// by 100), and the symbolic exempt markers ("zw", "ZW").
func NormalizeVATRate(s string) model.VATRate {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return model.VATRateZero
	}
	if strings.EqualFold(s, "zw") || strings.EqualFold(s, "zwolniona") {
		return model.VATRateExempt
	}

	d, err := money.FromString(s)
	if err != nil {
		return model.VATRateZero
	}
	one := decimal.NewFromInt(1)
	if d.GreaterThan(decimal.Zero) && d.LessThan(one) {
		d = d.Mul(money.Hundred)
	}
	return model.VATRate(d.Round(0).String())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(sep string, values ...string) string {
	var parts []string
	for _, v := range values {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}
