package fa

import (
	"time"

	"github.com/beevik/etree"
)

// Date extraction helpers. Both resolvers are total over malformed or
// partial documents: absence is a normal outcome, not an error.

// ResolveSaleDate resolves the sale/delivery completion date of a decoded
// document. Strategies, in priority order:
//
//  1. the explicit P_6 field of the Fa block
//  2. the legacy DataSprzedazy header field
//  3. the issue date P_1 (the current revision treats an omitted P_6 as
//     "sale date equals issue date")
//  4. the earliest per-line P_6A date, for documents that carry line-level
//     sale dates instead of a document-level one
func ResolveSaleDate(root *etree.Element) *time.Time {
	fa := findPath(root, "Fa")
	if fa == nil {
		fa = root
	}

	if d := date(fa, "P_6"); d != nil {
		return d
	}
	if d := date(root, "DataSprzedazy"); d != nil {
		return d
	}
	if d := date(fa, "DataSprzedazy"); d != nil {
		return d
	}
	if d := date(fa, "P_1"); d != nil {
		return d
	}
	return earliestLineDate(fa)
}

func earliestLineDate(fa *etree.Element) *time.Time {
	var earliest *time.Time
	for _, row := range lineElements(fa) {
		d := date(row, "P_6A")
		if d == nil {
			continue
		}
		if earliest == nil || d.Before(*earliest) {
			earliest = d
		}
	}
	return earliest
}

// ResolveDueDate resolves the payment due date. The payment-terms section
// may hold one term or a list; the earliest term wins. Falls back to the
// legacy single TerminPlatnosci field on the Fa block.
func ResolveDueDate(root *etree.Element) *time.Time {
	fa := findPath(root, "Fa")
	if fa == nil {
		fa = root
	}

	var earliest *time.Time
	for _, platnosc := range fa.SelectElements("Platnosc") {
		for _, termin := range platnosc.SelectElements("TerminPlatnosci") {
			d := date(termin, "Termin")
			if d == nil {
				// some revisions put the date directly in the element text
				d = parseDate(termin.Text())
			}
			if d == nil {
				continue
			}
			if earliest == nil || d.Before(*earliest) {
				earliest = d
			}
		}
	}
	if earliest != nil {
		return earliest
	}

	if d := date(fa, "TerminPlatnosci"); d != nil {
		return d
	}
	return nil
}
