package parsing

import (
	"math"
	"regexp"
)

var (
	alphamegaStorePattern = regexp.MustCompile(`alpha\s*mega|αλφα\s*μεγα`)
	myAlphamegaPattern    = regexp.MustCompile(`my\s*alpha\s*mega`)

	// ΓΙΑΟΥΡΤΙ ΣΤΡΑΓΓΙΣΤΟ 2x 3,00
	alphamegaItemPattern = regexp.MustCompile(`^(.+?)\s+(?:(\d+(?:[.,]\d+)?)\s*[xX×*]\s*)?(-?\d+[.,]\d{2}-?)(?:\s*(?:€|EUR))?(?:\s+[A-ZΑ-Ω])?$`)
	// a unit price left in the name by the lazy match above: "ΓΙΑΟΥΡΤΙ 2 x 1,50"
	alphamegaTrailingQty = regexp.MustCompile(`^(.+?)\s+(\d+(?:[.,]\d+)?)\s*[xX×*]\s*\d+[.,]\d{2}$`)
)

// NewAlphamegaParser returns the strategy for Alphamega receipts, which print each item
// on one line and mark offers in the item text.
func NewAlphamegaParser() Strategy {
	return alphamegaParser{}
}

type alphamegaParser struct{}

func (alphamegaParser) Name() string { return "alphamega" }

func (p alphamegaParser) Parse(rawText string) ParsedReceipt {
	return parseWith(p, rawText)
}

func (alphamegaParser) header(lines []string) (string, int) {
	i := findStoreLine(lines, func(folded string) bool {
		return alphamegaStorePattern.MatchString(folded) && !myAlphamegaPattern.MatchString(folded)
	})
	if i < 0 {
		return "Alphamega", -1
	}
	return lines[i], i
}

func (alphamegaParser) items(lines []string, store string, consumed map[int]bool) []ParsedItem {
	var items []ParsedItem
	for i, line := range lines {
		if consumed[i] || isSummaryLine(line) {
			continue
		}
		m := alphamegaItemPattern.FindStringSubmatch(line)
		if m == nil || !hasLetter(m[1]) {
			continue
		}
		price, ok := parseAmount(m[3])
		if !ok {
			continue
		}
		name := m[1]
		qty, _ := parseAmount(m[2])
		if t := alphamegaTrailingQty.FindStringSubmatch(name); t != nil {
			name = t[1]
			qty, _ = parseAmount(t[2])
		}

		item := countedItem(name, store, qty, price, i)
		if isDiscountLine(line) {
			item.IsDiscount = true
			item.Price = floatPtr(-math.Abs(price))
			item.PricePerUnit = nil
			item.Description = line
		}
		items = append(items, item)
		consumed[i] = true
	}
	return items
}
