package parsing

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zombor/pantry-tracker/internal/normalize"
)

// Vocabulary patterns run against normalize.Fold output, so they are written
// lowercase without accents and need no (?i).

func word(alternatives string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^\p{L}])(?:` + alternatives + `)(?:[^\p{L}]|$)`)
}

type datePattern struct {
	re *regexp.Regexp
	// iso patterns capture year, month, day; the others capture two components then the year.
	iso bool
}

var (
	datePatterns = []datePattern{
		{re: regexp.MustCompile(`(?:date|ημερομηνια|ημ/νια|ημ\.)\s*[:.]?\s*(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4}|\d{2})(?:\D|$)`)},
		{re: regexp.MustCompile(`(?:^|\D)(\d{4})-(\d{1,2})-(\d{1,2})(?:\D|$)`), iso: true},
		{re: regexp.MustCompile(`(?:^|[^\d.,])(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4}|\d{2})(?:[^\d.,]|$)`)},
	}
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

	timePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:time|ωρα)\s*[:.]?\s*([01]?\d|2[0-3]):([0-5]\d)(?::([0-5]\d))?`),
		regexp.MustCompile(`(?:^|[^\d:])([01]?\d|2[0-3]):([0-5]\d)(?::([0-5]\d))?(?:[^\d:]|$)`),
	}

	receiptNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:receipt|rcpt|invoice|trans(?:action)?|απόδειξης|αποδειξης|απόδειξη|αποδειξη|παραστατικό|παραστατικο)\s*(?:no\.?|number|nr\.?|αρ\.?|αριθμός|αριθμος)?\s*[:#.]?\s*([A-Za-z0-9][A-Za-z0-9\-/]{2,})`),
		regexp.MustCompile(`#\s*([A-Za-z0-9][A-Za-z0-9\-/]{2,})`),
	}
	digitPattern = regexp.MustCompile(`\d`)

	cashierPattern = regexp.MustCompile(`(?i)(?:cashier|operator|served by|ταμίας|ταμιας|ταμείο|ταμειο|χειριστής|χειριστης)\s*(?:no\.?|#)?\s*[:.#]?\s*(.+)$`)
	wideGap        = regexp.MustCompile(`\s{2,}`)

	totalPattern      = regexp.MustCompile(`(?:^|[^\p{L}])(?:grand total|total|amount due|γενικο συνολο|συνολο|πληρωτεο)\s*(?:eur|€)?\s*[:=]?\s*(?:eur|€)?\s*(-?(?:` + groupedAmount + `|\d+(?:[.,]\d{1,2})?))` + amountEnd)
	totalLabelOnly    = regexp.MustCompile(`^\s*(?:grand total|total|amount due|γενικο συνολο|συνολο|πληρωτεο)\s*(?:eur|€)?\s*[:=]?\s*(?:eur|€)?\s*$`)
	bareAmount        = regexp.MustCompile(`^\s*(?:€|eur)?\s*(` + groupedAmount + `|\d+[.,]\d{2})\s*(?:€|eur)?\s*$`)
	subtotalPattern   = word(`subtotal|sub total|sub-total|υποσυνολο|μερικο συνολο`)
	symbolAmount      = regexp.MustCompile(`[€$£]\s*(` + groupedAmount + `|\d+[.,]\d{1,2})` + amountEnd)
	eurPrefixedAmount = regexp.MustCompile(`(?:^|[^\p{L}])eur\s*(` + groupedAmount + `|\d+[.,]\d{1,2})` + amountEnd)

	paymentVocabulary = []struct {
		method  string
		pattern *regexp.Regexp
	}{
		{"VISA", word(`visa`)},
		{"MASTERCARD", word(`mastercard|master card`)},
		{"MAESTRO", word(`maestro`)},
		{"AMEX", word(`amex|american express`)},
		{"CARD", word(`card|credit|debit|contactless|καρτα|πιστωτικη|χρεωστικη`)},
		{"CASH", word(`cash|μετρητα`)},
	}

	cardDigitsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[*xX•#]{4,}[\s\-]*(\d{4})(?:\D|$)`),
		regexp.MustCompile(`(?i)(?:ending(?:\s+in)?|λήγει σε|ληγει σε)\s*:?\s*(\d{4})(?:\D|$)`),
		regexp.MustCompile(`(?i)(?:card|κάρτα|καρτα)\s*(?:no\.?|number|αρ\.?)?\s*[:.]?\s*(?:[*xX•]+[\s\-]*)+(\d{4})(?:\D|$)`),
	}

	vatRates = []struct {
		rate     float64
		patterns []*regexp.Regexp
	}{
		{19, vatRatePatterns(`19`)},
		{9, vatRatePatterns(`9`)},
		{5, vatRatePatterns(`5`)},
		{0, vatRatePatterns(`0`)},
	}
	percentToken  = regexp.MustCompile(`\d+(?:[.,]\d+)?\s*%`)
	decimalNumber = regexp.MustCompile(`-?\d+[.,]\d+`)

	loyaltyPrograms = []struct {
		name    string
		pattern *regexp.Regexp
	}{
		{"Lidl Plus", regexp.MustCompile(`lidl\s*plus`)},
		{"My Alphamega", regexp.MustCompile(`my\s*alpha\s*mega`)},
	}
	stickerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d+)\s*(?:stickers?|αυτοκολλητ[αοη])`),
		regexp.MustCompile(`(?:stickers?|αυτοκολλητ[αοη])(?:\s+\p{L}+)?\s*[:=]?\s*(\d+)`),
	}
	pointsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:points?|ποντοι|ποντουσ|ποντων)(?:\s+\p{L}+)?\s*[:=]?\s*(\d+(?:[.,]\d+)?)`),
		regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:points?|ποντοι|ποντουσ|ποντων)`),
	}
	savingsPattern = regexp.MustCompile(`(?:you saved|you have saved|total savings|savings|κερδισατε|εξοικονομησατε|γλιτωσατε)\s*:?\s*(?:€|eur)?\s*(\d+[.,]\d{1,2})`)

	discountVocabulary = word(`discount|εκπτωση|εκπτ\.?|offer|προσφορα|coupon|κουπονι|promo`)
	discountAmount     = regexp.MustCompile(`-?\d+[.,]\d{2}-?`)
	amountNoise        = regexp.MustCompile(`(?i)-?\d+[.,]\d{2}-?|€|\beur\b`)

	summaryVocabulary = word(`total|subtotal|sub total|συνολο|υποσυνολο|πληρωτεο|vat|v\.a\.t|φπα|φ\.π\.α|cash|change|ρεστα|μετρητα|card|καρτα|visa|mastercard|maestro|amex|balance|υπολοιπο|tax|items|ειδη|τεμαχια|receipt|αποδειξη|αποδειξησ|cashier|ταμιασ|points|ποντοι|stickers|αυτοκολλητα|tel|τηλ|αφμ|date|ημερομηνια|time|ωρα`)

	addressPattern = regexp.MustCompile(`(?:street|str\.|st\.|avenue|ave\.?\s|road|rd\.|λεωφ|οδοσ|οδ\.|\d{4}\s+\p{L}{3,})`)
)

func vatRatePatterns(rate string) []*regexp.Regexp {
	return []*regexp.Regexp{
		regexp.MustCompile(`(?:^|[^\d.,])` + rate + `(?:[.,]0{1,2})?\s*%`),
		regexp.MustCompile(`(?:vat|v\.a\.t\.?|φπα|φ\.π\.α\.?)\s*[:\-]?\s*` + rate + `(?:[.,]0{1,2})?(?:\s*%)?(?:[^\d.,]|$)`),
	}
}

// splitLines breaks raw receipt text into trimmed lines, keeping empty ones so
// indices match the source.
func splitLines(rawText string) []string {
	lines := strings.Split(strings.ReplaceAll(rawText, "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(strings.TrimSuffix(l, "\r"))
	}
	return lines
}

// DetectLanguage returns "Greek" when the text contains any Greek letter and "English" otherwise.
func DetectLanguage(text string) string {
	if normalize.HasGreek(text) {
		return "Greek"
	}
	return "English"
}

// ExtractDate returns the first date found, as YYYY-MM-DD when the parts are valid.
// Labelled dates win over ISO dates, which win over bare DD/MM/YYYY.
func ExtractDate(lines []string) string {
	for _, p := range datePatterns {
		for _, line := range lines {
			if d, ok := matchDate(p, normalize.Fold(line)); ok {
				return d
			}
		}
	}
	return ""
}

// NormalizeDate rewrites a free-form date as YYYY-MM-DD. Values it cannot read come back unchanged.
func NormalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || isoDatePattern.MatchString(raw) {
		return raw
	}
	for _, p := range datePatterns[1:] {
		if d, ok := matchDate(p, raw); ok {
			return d
		}
	}
	return raw
}

// matchDate reports whether p matches s. Invalid dates come back as the matched text.
func matchDate(p datePattern, s string) (string, bool) {
	m := p.re.FindStringSubmatchIndex(s)
	if m == nil {
		return "", false
	}
	group := func(i int) string { return s[m[2*i]:m[2*i+1]] }
	raw := s[m[2]:m[7]]
	if p.iso {
		return formatDate(group(1), group(2), group(3), raw), true
	}
	return orderedDate(group(1), group(2), group(3), raw), true
}

// orderedDate treats the first component as the day when it exceeds 12 and as the month otherwise.
func orderedDate(first, second, year, raw string) string {
	if len(year) == 2 {
		year = "20" + year
	}
	f, _ := strconv.Atoi(first)
	if f > 12 {
		return formatDate(year, second, first, raw)
	}
	return formatDate(year, first, second, raw)
}

func formatDate(year, month, day, raw string) string {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if m < 1 || m > 12 || d < 1 {
		return raw
	}
	// time.Date normalizes 31/02 into March, which marks it as not a calendar date
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Month() != time.Month(m) || t.Day() != d {
		return raw
	}
	return t.Format("2006-01-02")
}

// ExtractTime returns the first time found as HH:MM:SS.
func ExtractTime(lines []string) string {
	for _, re := range timePatterns {
		for _, line := range lines {
			m := re.FindStringSubmatch(normalize.Fold(line))
			if m == nil {
				continue
			}
			h, _ := strconv.Atoi(m[1])
			sec := m[3]
			if sec == "" {
				sec = "00"
			}
			return fmt.Sprintf("%02d:%s:%s", h, m[2], sec)
		}
	}
	return ""
}

// ExtractReceiptNumber returns the first labelled receipt identifier that contains a digit.
func ExtractReceiptNumber(lines []string) string {
	for _, re := range receiptNumberPatterns {
		for _, line := range lines {
			for _, m := range re.FindAllStringSubmatch(line, -1) {
				if digitPattern.MatchString(m[1]) {
					return m[1]
				}
			}
		}
	}
	return ""
}

// ExtractCashier returns the text after a cashier or operator label.
func ExtractCashier(lines []string) string {
	for _, line := range lines {
		m := cashierPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(wideGap.Split(strings.TrimSpace(m[1]), 2)[0])
		if value != "" {
			return value
		}
	}
	return ""
}

// groupedAmount is an amount with thousands separators ("1.234,56", "1,234.56"). amountEnd
// stops a match from ending inside a longer number.
const (
	groupedAmount = `\d{1,3}(?:[.,]\d{3})+(?:[.,]\d{1,2})?`
	amountEnd     = `(?:[^\d.,]|[.,](?:\D|$)|$)`
)

// ExtractTotal returns the receipt total, or 0 when none is found.
// A labelled total wins, including a label whose amount sits on the next line;
// after that the first currency-prefixed amount is used.
func ExtractTotal(lines []string) float64 {
	folded := make([]string, len(lines))
	for i, l := range lines {
		folded[i] = normalize.Fold(l)
	}

	for i, line := range folded {
		if subtotalPattern.MatchString(line) {
			continue
		}
		if m := totalPattern.FindStringSubmatch(line); m != nil {
			if v, err := normalize.ParseDecimal(m[1]); err == nil {
				return v
			}
		}
		if totalLabelOnly.MatchString(line) && i+1 < len(folded) {
			if m := bareAmount.FindStringSubmatch(folded[i+1]); m != nil {
				if v, err := normalize.ParseDecimal(m[1]); err == nil {
					return v
				}
			}
		}
	}
	for _, re := range []*regexp.Regexp{symbolAmount, eurPrefixedAmount} {
		for _, line := range folded {
			if m := re.FindStringSubmatch(line); m != nil {
				if v, err := normalize.ParseDecimal(m[1]); err == nil {
					return v
				}
			}
		}
	}
	return 0
}

// ExtractPaymentMethod returns VISA, MASTERCARD, MAESTRO, AMEX, CARD or CASH, or "" when unknown.
// Brand names outrank the generic card words, which outrank cash.
func ExtractPaymentMethod(lines []string) string {
	text := normalize.Fold(strings.Join(lines, "\n"))
	for _, v := range paymentVocabulary {
		if v.pattern.MatchString(text) {
			return v.method
		}
	}
	return ""
}

// ExtractCardLastDigits returns the four visible digits of a masked card number.
func ExtractCardLastDigits(lines []string) string {
	for _, re := range cardDigitsPatterns {
		for _, line := range lines {
			if m := re.FindStringSubmatch(line); m != nil {
				return m[1]
			}
		}
	}
	return ""
}

// ExtractVAT returns one entry per line carrying a recognised VAT rate.
// One amount is the VAT itself; two are net and VAT; three are net, VAT and gross.
// Longer lines use their first three amounts.
func ExtractVAT(lines []string) []VATEntry {
	entries := []VATEntry{}
	for _, line := range lines {
		folded := normalize.Fold(line)
		rate, span, ok := matchVATRate(folded)
		if !ok {
			continue
		}
		rest := folded[:span[0]] + " " + folded[span[1]:]
		rest = percentToken.ReplaceAllString(rest, " ")

		var amounts []float64
		for _, raw := range decimalNumber.FindAllString(rest, -1) {
			if v, err := normalize.ParseDecimal(raw); err == nil {
				amounts = append(amounts, v)
			}
		}

		entry := VATEntry{Rate: rate}
		switch {
		case len(amounts) == 0:
			continue
		case len(amounts) == 1:
			entry.Amount = amounts[0]
		case len(amounts) == 2:
			entry.NetAmount = floatPtr(amounts[0])
			entry.Amount = amounts[1]
			entry.GrossAmount = floatPtr(normalize.Round2(amounts[0] + amounts[1]))
		default:
			entry.NetAmount = floatPtr(amounts[0])
			entry.Amount = amounts[1]
			entry.GrossAmount = floatPtr(amounts[2])
		}
		entries = append(entries, entry)
	}
	return entries
}

func matchVATRate(folded string) (float64, [2]int, bool) {
	for _, r := range vatRates {
		for _, re := range r.patterns {
			if loc := re.FindStringIndex(folded); loc != nil {
				return r.rate, [2]int{loc[0], loc[1]}, true
			}
		}
	}
	return 0, [2]int{}, false
}

// ExtractLoyaltyInfo returns loyalty programme details, or nil when the receipt has none.
func ExtractLoyaltyInfo(lines []string) *LoyaltyInfo {
	var info LoyaltyInfo
	found := false
	for _, line := range lines {
		folded := normalize.Fold(line)
		for _, p := range loyaltyPrograms {
			if info.ProgramName == "" && p.pattern.MatchString(folded) {
				info.ProgramName = p.name
				found = true
			}
		}
		if info.StickerCount == nil {
			for _, re := range stickerPatterns {
				if m := re.FindStringSubmatch(folded); m != nil {
					if n, err := strconv.Atoi(m[1]); err == nil {
						info.StickerCount = &n
						found = true
						break
					}
				}
			}
		}
		if info.Points == nil {
			for _, re := range pointsPatterns {
				if m := re.FindStringSubmatch(folded); m != nil {
					if v, err := normalize.ParseDecimal(m[1]); err == nil {
						info.Points = floatPtr(v)
						found = true
						break
					}
				}
			}
		}
		if info.Message == "" && savingsPattern.MatchString(folded) {
			info.Message = line
			found = true
		}
	}
	if !found {
		return nil
	}
	return &info
}

// ExtractDiscounts returns every line naming a discount together with its amount as a positive value.
func ExtractDiscounts(lines []string) []Discount {
	discounts := []Discount{}
	for _, line := range lines {
		if !discountVocabulary.MatchString(normalize.Fold(line)) {
			continue
		}
		amounts := discountAmount.FindAllString(line, -1)
		if len(amounts) == 0 {
			continue
		}
		v, err := normalize.ParseDecimal(amounts[len(amounts)-1])
		if err != nil {
			continue
		}
		desc := strings.Join(strings.Fields(amountNoise.ReplaceAllString(line, " ")), " ")
		if desc == "" {
			desc = line
		}
		discounts = append(discounts, Discount{Description: desc, Amount: math.Abs(v)})
	}
	return discounts
}

// isSummaryLine reports lines that belong to the totals, payment or loyalty sections.
// A recognised VAT rate followed by two or more amounts is a breakdown row even without a label.
func isSummaryLine(line string) bool {
	folded := normalize.Fold(line)
	if summaryVocabulary.MatchString(folded) {
		return true
	}
	if _, _, ok := matchVATRate(folded); ok {
		return len(decimalNumber.FindAllString(percentToken.ReplaceAllString(folded, " "), -1)) >= 2
	}
	return false
}

func isDiscountLine(line string) bool {
	return discountVocabulary.MatchString(normalize.Fold(line))
}

// extractAddress returns the first address-looking line among the few after the store line.
func extractAddress(lines []string, storeLine int) string {
	for i := storeLine + 1; i < len(lines) && i <= storeLine+3; i++ {
		line := lines[i]
		if line == "" || isSummaryLine(line) || ExtractDate([]string{line}) != "" {
			continue
		}
		if addressPattern.MatchString(normalize.Fold(line) + " ") {
			return line
		}
	}
	return ""
}

func parseFooter(lines []string) ReceiptFooter {
	return ReceiptFooter{
		TotalAmount:    ExtractTotal(lines),
		PaymentMethod:  ExtractPaymentMethod(lines),
		CardLastDigits: ExtractCardLastDigits(lines),
		VATBreakdown:   ExtractVAT(lines),
		Discounts:      ExtractDiscounts(lines),
		LoyaltyInfo:    ExtractLoyaltyInfo(lines),
	}
}

func parseCommonHeader(lines []string) ReceiptHeader {
	return ReceiptHeader{
		Date:          ExtractDate(lines),
		Time:          ExtractTime(lines),
		ReceiptNumber: ExtractReceiptNumber(lines),
		Cashier:       ExtractCashier(lines),
	}
}
