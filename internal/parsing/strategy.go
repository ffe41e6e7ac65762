package parsing

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"unicode"

	"github.com/zombor/pantry-tracker/internal/normalize"
)

// Strategy turns raw receipt text from one store format into a ParsedReceipt.
// Implementations hold no mutable state and are safe for concurrent use.
type Strategy interface {
	Name() string
	Parse(rawText string) ParsedReceipt
}

// grammar is the store-specific part of a Strategy.
type grammar interface {
	// header returns the store name and the index of the line it came from, or -1.
	header(lines []string) (string, int)
	// items appends line items for every unconsumed line it recognises, marking the lines it uses.
	items(lines []string, store string, consumed map[int]bool) []ParsedItem
}

func parseWith(g grammar, rawText string) ParsedReceipt {
	lines := splitLines(rawText)

	header := parseCommonHeader(lines)
	store, storeLine := g.header(lines)
	header.Store = store
	// the store line is never an item or the name of a weighed item
	consumed := make(map[int]bool)
	if storeLine >= 0 {
		header.Address = extractAddress(lines, storeLine)
		consumed[storeLine] = true
	}

	items := []ParsedItem{}
	for _, w := range extractWeightBasedItems(lines, consumed) {
		items = append(items, weightItem(w, header.Store))
	}
	items = append(items, g.items(lines, header.Store, consumed)...)
	slices.SortStableFunc(items, func(a, b ParsedItem) int {
		return cmp.Compare(firstLine(a), firstLine(b))
	})

	return ParsedReceipt{
		Header:   header,
		Items:    items,
		Footer:   parseFooter(lines),
		Language: DetectLanguage(rawText),
		RawText:  rawText,
	}
}

// findStoreLine returns the first line among the top of the receipt that matches.
func findStoreLine(lines []string, match func(folded string) bool) int {
	seen := 0
	for i, line := range lines {
		if line == "" {
			continue
		}
		if match(normalize.Fold(line)) {
			return i
		}
		if seen++; seen >= 5 {
			break
		}
	}
	return -1
}

func weightItem(w WeightBasedItem, store string) ParsedItem {
	n := normalize.Name(w.Name, store)
	return ParsedItem{
		Name:           n.Name,
		NormalizedName: n.Name,
		OriginalName:   w.Name,
		Quantity:       w.Quantity,
		Unit:           w.Unit,
		Price:          floatPtr(w.TotalPrice),
		PricePerUnit:   floatPtr(w.PricePerUnit),
		IsWeightBased:  true,
		Category:       n.Category,
		LineNumbers:    w.LineNumbers,
	}
}

// countedItem builds a non-weighed item. A zero quantity means one piece.
func countedItem(rawName, store string, qty, price float64, lineNumbers ...int) ParsedItem {
	if qty <= 0 {
		qty = 1
	}
	n := normalize.Name(rawName, store)
	item := ParsedItem{
		Name:           n.Name,
		NormalizedName: n.Name,
		OriginalName:   strings.TrimSpace(rawName),
		Quantity:       qty,
		Unit:           normalize.DefaultUnit,
		Price:          floatPtr(price),
		Category:       n.Category,
		LineNumbers:    lineNumbers,
	}
	if qty != 1 {
		item.PricePerUnit = floatPtr(normalize.Round2(price / qty))
	}
	return item
}

// discountItem records a discount line as an item with a negative price.
func discountItem(description string, amount float64, lineNumbers ...int) ParsedItem {
	description = strings.Join(strings.Fields(amountNoise.ReplaceAllString(description, " ")), " ")
	return ParsedItem{
		Name:           description,
		NormalizedName: description,
		OriginalName:   description,
		Quantity:       1,
		Unit:           normalize.DefaultUnit,
		Price:          floatPtr(-math.Abs(amount)),
		IsDiscount:     true,
		Description:    description,
		LineNumbers:    lineNumbers,
	}
}

func firstLine(item ParsedItem) int {
	if len(item.LineNumbers) == 0 {
		return math.MaxInt
	}
	return item.LineNumbers[0]
}

func roundedProduct(qty, price float64) float64 {
	return normalize.Round2(qty * price)
}

func parseAmount(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := normalize.ParseDecimal(raw)
	return v, err == nil
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}
