package parsing

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/zombor/pantry-tracker/internal/normalize"
)

const (
	number   = `(\d+(?:[.,]\d+)?)`
	cents    = `(\d+[.,]\d{2})`
	unit     = `(kgr|kgs|kg|κιλ[αάοό]?|κγ|gr|g|γρ|ltr|lt|l|λτ|λ|ml|μλ)`
	currency = `(?:€|eur(?:os?)?|ευρώ|ευρω|\$|£)`
	times    = `[xX×*χΧ]`
)

// weightPattern is one alternative grammar for a weighed-goods pricing line.
// Group indices of 0 mean the pattern does not capture that value.
type weightPattern struct {
	name                             string
	re                               *regexp.Regexp
	qty, unit, price, perUnit, total int
}

// weightPatterns are tried in order; the first that parses wins.
var weightPatterns = []weightPattern{
	{
		// 1,230 kg x 2,50 €/kg = 3,08 €
		name: "multiply-equals",
		re: regexp.MustCompile(`(?i)` + number + `\s*` + unit + `\s*` + times + `\s*` + currency + `?\s*` + number +
			`\s*` + currency + `?\s*/\s*` + unit + `\s*=\s*` + currency + `?\s*` + number),
		qty: 1, unit: 2, price: 3, perUnit: 4, total: 5,
	},
	{
		// 0,845 kg @ 1,99 €/kg 1,68
		name: "at-price",
		re: regexp.MustCompile(`(?i)` + number + `\s*` + unit + `\s*@\s*` + currency + `?\s*` + number + `\s*` + currency +
			`?(?:\s*/\s*` + unit + `)?(?:\s*=?\s*` + currency + `?\s*` + number + `)?`),
		qty: 1, unit: 2, price: 3, perUnit: 4, total: 5,
	},
	{
		// [1,230 kg] 2,50 €/kg [3,08]
		name: "price-per-unit",
		re: regexp.MustCompile(`(?i)(?:` + number + `\s*` + unit + `\s+)?` + currency + `?\s*` + number + `\s*` + currency +
			`?\s*/\s*` + unit + `(?:\s*=?\s*` + currency + `?\s*` + number + `\s*` + currency + `?)?(?:[^\p{L}]|$)`),
		qty: 1, unit: 2, price: 3, perUnit: 4, total: 5,
	},
	{
		// 1,230 kg 2,50 3,08
		name: "quantity-price-total",
		re: regexp.MustCompile(`(?i)` + number + `\s*` + unit + `\s+` + currency + `?\s*` + cents + `\s*` + currency +
			`?\s+` + currency + `?\s*` + cents),
		qty: 1, unit: 2, price: 3, total: 4,
	},
}

var (
	perUnitPattern      = regexp.MustCompile(`(?i)\d+(?:[.,]\d+)?\s*` + currency + `?\s*/\s*` + unit)
	currencyPattern     = regexp.MustCompile(`(?i)` + currency)
	itemCodeNamePattern = regexp.MustCompile(`^\d{3,}\s+\p{L}{2,}`)
	alphaOnlyPattern    = regexp.MustCompile(`^[\s.,'&()/%+\-]*\p{L}[\p{L}\s.,'&()/%+\-]*$`)
	residualNoise       = regexp.MustCompile(`(?i)` + currency + `|[=@]`)
)

// IsWeightBasedLine reports whether line carries weighed-goods pricing.
func IsWeightBasedLine(line string) bool {
	for _, p := range weightPatterns {
		if p.re.MatchString(line) {
			return true
		}
	}
	return false
}

// IsPotentialItemNameLine reports whether line could be the name of an adjacent weighed item.
func IsPotentialItemNameLine(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" || utf8.RuneCountInString(t) > 50 {
		return false
	}
	if perUnitPattern.MatchString(t) || IsWeightBasedLine(t) || isSummaryLine(t) {
		return false
	}
	return itemCodeNamePattern.MatchString(t) || alphaOnlyPattern.MatchString(t)
}

// ParseWeightBasedLine extracts quantity and pricing from a single line, without a name.
// It returns nil when no pattern parses.
func ParseWeightBasedLine(line string) *WeightBasedItem {
	item, _, ok := matchWeightLine(line)
	if !ok {
		return nil
	}
	return &item
}

// matchWeightLine returns the parsed pricing and the byte span the pattern consumed.
func matchWeightLine(line string) (WeightBasedItem, [2]int, bool) {
	for _, p := range weightPatterns {
		m := p.re.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}
		group := func(i int) string {
			if i == 0 || m[2*i] < 0 {
				return ""
			}
			return line[m[2*i]:m[2*i+1]]
		}

		item, err := buildWeightItem(group(p.qty), group(p.unit), group(p.price), group(p.perUnit), group(p.total))
		if err != nil {
			slog.Debug("Weight pattern matched but did not parse", "pattern", p.name, "line", line, "error", err)
			continue
		}
		span := [2]int{m[0], m[1]}
		item.Currency = normalize.StandardizeCurrency(currencyPattern.FindString(line[span[0]:span[1]]))
		return item, span, true
	}
	return WeightBasedItem{}, [2]int{}, false
}

func buildWeightItem(qtyRaw, unitRaw, priceRaw, perUnitRaw, totalRaw string) (WeightBasedItem, error) {
	qty := 1.0
	if qtyRaw != "" {
		v, err := normalize.ParseDecimal(qtyRaw)
		if err != nil {
			return WeightBasedItem{}, err
		}
		qty = v
	}
	price, err := normalize.ParseDecimal(priceRaw)
	if err != nil {
		return WeightBasedItem{}, err
	}
	total := normalize.Round2(qty * price)
	if totalRaw != "" {
		if total, err = normalize.ParseDecimal(totalRaw); err != nil {
			return WeightBasedItem{}, err
		}
	}
	if unitRaw == "" {
		unitRaw = perUnitRaw
	}
	return WeightBasedItem{
		Quantity:     qty,
		Unit:         normalize.StandardizeUnit(unitRaw),
		PricePerUnit: price,
		TotalPrice:   total,
	}, nil
}

// ParseWeightBasedItem finds the first pricing line in block and attaches a name to it,
// looking at the previous line, then text left on the pricing line, then the next line.
// LineNumbers are offsets into block. It returns nil when block has no pricing line.
func ParseWeightBasedItem(block []string) *WeightBasedItem {
	for i, line := range block {
		item, span, ok := matchWeightLine(line)
		if !ok {
			continue
		}
		residual := residualName(line, span)
		switch {
		case i > 0 && IsPotentialItemNameLine(block[i-1]):
			item.Name = strings.TrimSpace(block[i-1])
			item.LineNumbers = []int{i - 1, i}
		case residual != "":
			item.Name = residual
			item.LineNumbers = []int{i}
		case i+1 < len(block) && IsPotentialItemNameLine(block[i+1]):
			item.Name = strings.TrimSpace(block[i+1])
			item.LineNumbers = []int{i, i + 1}
		default:
			item.Name = fallbackWeightName(item.Unit)
			item.LineNumbers = []int{i}
		}
		return &item
	}
	return nil
}

// residualName is whatever name-like text remains on a pricing line once the pricing is cut out.
func residualName(line string, span [2]int) string {
	rest := line[:span[0]] + " " + line[span[1]:]
	rest = strings.Join(strings.Fields(residualNoise.ReplaceAllString(rest, " ")), " ")
	if !IsPotentialItemNameLine(rest) {
		return ""
	}
	return rest
}

func fallbackWeightName(unit string) string {
	if normalize.IsWeightUnit(unit) {
		return "Weighted Item"
	}
	return "Item"
}

// ExtractWeightBasedItems scans all receipt lines once and returns weighed items in order of
// their pricing line. LineNumbers are indices into lines and no line is used twice.
func ExtractWeightBasedItems(lines []string) []WeightBasedItem {
	return extractWeightBasedItems(lines, make(map[int]bool))
}

// extractWeightBasedItems records every line it uses in consumed.
func extractWeightBasedItems(lines []string, consumed map[int]bool) []WeightBasedItem {
	var pricing []int
	for i, line := range lines {
		if IsWeightBasedLine(line) {
			pricing = append(pricing, i)
		}
	}

	items := make([]WeightBasedItem, 0, len(pricing))
	for _, idx := range pricing {
		if consumed[idx] {
			continue
		}
		start, end := idx, idx
		if idx > 0 && !consumed[idx-1] && IsPotentialItemNameLine(lines[idx-1]) {
			start = idx - 1
		}
		if idx+1 < len(lines) && !consumed[idx+1] &&
			(IsPotentialItemNameLine(lines[idx+1]) || IsWeightBasedLine(lines[idx+1])) {
			end = idx + 1
		}

		item := ParseWeightBasedItem(lines[start : end+1])
		if item == nil {
			continue
		}
		for k := range item.LineNumbers {
			item.LineNumbers[k] += start
			consumed[item.LineNumbers[k]] = true
		}
		items = append(items, *item)
	}
	return items
}
