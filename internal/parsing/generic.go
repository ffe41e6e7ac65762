package parsing

import (
	"math"
	"regexp"
)

var (
	// BREAD 2 x 1,20 2,40
	genericQtyPricePattern = regexp.MustCompile(`^(.+?)\s+(\d+(?:[.,]\d+)?)\s*[xX×*@]\s*(?:€\s*)?(\d+[.,]\d{2})(?:\s*€)?(?:\s+(?:€\s*)?(\d+[.,]\d{2})(?:\s*€)?)?(?:\s+[A-Z])?$`)
	// BREAD 1,20
	genericPricePattern = regexp.MustCompile(`^(.+?)\s+(?:€\s*)?(-?\d+[.,]\d{2}-?)(?:\s*(?:€|EUR))?(?:\s+[A-Z])?$`)
	// a store name never ends in a price
	pricedTail = regexp.MustCompile(`\d[.,]\d{2}-?\s*(?:€|eur)?(?:\s+\p{L})?\s*$`)
)

// NewGenericParser returns the fallback strategy used when no store-specific one applies.
func NewGenericParser() Strategy {
	return genericParser{}
}

type genericParser struct{}

func (genericParser) Name() string { return "generic" }

func (p genericParser) Parse(rawText string) ParsedReceipt {
	return parseWith(p, rawText)
}

// header takes the first line that reads like a name rather than a date, price, phone or address.
func (genericParser) header(lines []string) (string, int) {
	i := findStoreLine(lines, func(folded string) bool {
		return hasLetter(folded) && !isSummaryLine(folded) && !addressPattern.MatchString(folded+" ") &&
			!pricedTail.MatchString(folded) && !IsWeightBasedLine(folded) &&
			ExtractDate([]string{folded}) == "" && ExtractTime([]string{folded}) == ""
	})
	if i < 0 {
		return "Unknown Store", -1
	}
	return lines[i], i
}

func (genericParser) items(lines []string, store string, consumed map[int]bool) []ParsedItem {
	var items []ParsedItem
	for i, line := range lines {
		if consumed[i] || isSummaryLine(line) {
			continue
		}

		if m := genericQtyPricePattern.FindStringSubmatch(line); m != nil && hasLetter(m[1]) {
			qty, okQty := parseAmount(m[2])
			unitPrice, okPrice := parseAmount(m[3])
			if okQty && okPrice {
				total, ok := parseAmount(m[4])
				if !ok {
					total = roundedProduct(qty, unitPrice)
				}
				item := countedItem(m[1], store, qty, total, i)
				item.PricePerUnit = floatPtr(unitPrice)
				items = append(items, item)
				consumed[i] = true
				continue
			}
		}

		m := genericPricePattern.FindStringSubmatch(line)
		if m == nil || !hasLetter(m[1]) {
			continue
		}
		price, ok := parseAmount(m[2])
		if !ok {
			continue
		}
		if isDiscountLine(line) {
			items = append(items, discountItem(line, price, i))
		} else {
			items = append(items, countedItem(m[1], store, 1, math.Abs(price), i))
		}
		consumed[i] = true
	}
	return items
}
