package fa

import (
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/rezonia/ksef-cost-sync/internal/money"
)

// The exchange has shipped several schema revisions under different
// namespaces and prefix conventions. All lookups here match local tag names
// only, so prefixed and unprefixed documents resolve identically.

// findPath walks a path of local tag names from el, returning nil when any
// segment is missing.
func findPath(el *etree.Element, path ...string) *etree.Element {
	cur := el
	for _, tag := range path {
		if cur == nil {
			return nil
		}
		cur = cur.SelectElement(tag)
	}
	return cur
}

// findAll returns every direct child of the element at path whose local tag
// matches the last segment.
func findAll(el *etree.Element, path ...string) []*etree.Element {
	if len(path) == 0 {
		return nil
	}
	parent := el
	if len(path) > 1 {
		parent = findPath(el, path[:len(path)-1]...)
	}
	if parent == nil {
		return nil
	}
	return parent.SelectElements(path[len(path)-1])
}

// text returns the trimmed text at path, or "" when absent
func text(el *etree.Element, path ...string) string {
	found := findPath(el, path...)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(found.Text())
}

// amount parses the decimal at path; absent or malformed values yield zero
func amount(el *etree.Element, path ...string) decimal.Decimal {
	s := text(el, path...)
	if s == "" {
		return decimal.Zero
	}
	d, err := money.FromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// date parses the date at path; nil when absent or malformed
func date(el *etree.Element, path ...string) *time.Time {
	return parseDate(text(el, path...))
}

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02-01-2006",
}

// parseDate tries the date formats seen across schema revisions. It never
// fails loudly: a malformed value is treated as absent.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
