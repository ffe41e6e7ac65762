package parsing

import (
	"regexp"
	"strings"
)

var (
	lidlStorePattern = regexp.MustCompile(`lidl`)
	lidlPlusPattern  = regexp.MustCompile(`lidl\s*plus`)

	// 2 x 1,59 3,18 B
	lidlQtyPricePattern = regexp.MustCompile(`^(?:(\d+(?:[.,]\d+)?)\s*)?[xX×*]\s*(?:€\s*)?(\d+[.,]\d{2})(?:\s*€)?(?:\s+(\d+[.,]\d{2})(?:\s*€)?)?(?:\s+[A-Za-z])?$`)
	// ΓΑΛΑ ΦΡ. 1L 1,59 B
	lidlSingleLinePattern = regexp.MustCompile(`^(.+?)\s+(-?\d+[.,]\d{2})(?:\s*€)?(?:\s+[A-ZΑ-Ω])?$`)
	lidlAmountLinePattern = regexp.MustCompile(`^(-?\d+[.,]\d{2}-?)(?:\s*€)?(?:\s+[A-Za-z])?$`)
)

// NewLidlParser returns the strategy for Lidl till receipts, which print quantities on
// the line under the item name.
func NewLidlParser() Strategy {
	return lidlParser{}
}

type lidlParser struct{}

func (lidlParser) Name() string { return "lidl" }

func (p lidlParser) Parse(rawText string) ParsedReceipt {
	return parseWith(p, rawText)
}

func (lidlParser) header(lines []string) (string, int) {
	i := findStoreLine(lines, func(folded string) bool {
		return lidlStorePattern.MatchString(folded) && !lidlPlusPattern.MatchString(folded)
	})
	if i < 0 {
		return "Lidl", -1
	}
	return lines[i], i
}

func (lidlParser) items(lines []string, store string, consumed map[int]bool) []ParsedItem {
	var items []ParsedItem

	for i, line := range lines {
		if consumed[i] || !isDiscountLine(line) {
			continue
		}
		if amounts := discountAmount.FindAllString(line, -1); len(amounts) > 0 {
			if v, ok := parseAmount(amounts[len(amounts)-1]); ok {
				items = append(items, discountItem(line, v, i))
				consumed[i] = true
			}
			continue
		}
		if i+1 < len(lines) && !consumed[i+1] {
			if m := lidlAmountLinePattern.FindStringSubmatch(lines[i+1]); m != nil {
				if v, ok := parseAmount(m[1]); ok {
					items = append(items, discountItem(line, v, i, i+1))
					consumed[i], consumed[i+1] = true, true
				}
			}
		}
	}

	for i := 0; i+1 < len(lines); i++ {
		if consumed[i] || consumed[i+1] || !isItemNameLine(lines[i]) {
			continue
		}
		m := lidlQtyPricePattern.FindStringSubmatch(lines[i+1])
		if m == nil {
			continue
		}
		qty := 1.0
		if v, ok := parseAmount(m[1]); ok {
			qty = v
		}
		unitPrice, ok := parseAmount(m[2])
		if !ok {
			continue
		}
		total, ok := parseAmount(m[3])
		if !ok {
			total = roundedProduct(qty, unitPrice)
		}
		item := countedItem(lines[i], store, qty, total, i, i+1)
		item.PricePerUnit = floatPtr(unitPrice)
		items = append(items, item)
		consumed[i], consumed[i+1] = true, true
		i++
	}

	for i, line := range lines {
		if consumed[i] {
			continue
		}
		m := lidlSingleLinePattern.FindStringSubmatch(line)
		if m == nil || !isItemNameLine(m[1]) {
			continue
		}
		price, ok := parseAmount(m[2])
		if !ok {
			continue
		}
		items = append(items, countedItem(m[1], store, 1, price, i))
		consumed[i] = true
	}
	return items
}

// isItemNameLine reports whether text can name a product rather than a summary or discount.
func isItemNameLine(text string) bool {
	text = strings.TrimSpace(text)
	return text != "" && hasLetter(text) && !isSummaryLine(text) && !isDiscountLine(text)
}
