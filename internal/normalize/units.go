package normalize

import "strings"

const (
	// DefaultUnit is returned for empty unit tokens.
	DefaultUnit = "pieces"
	// DefaultCurrency is returned for empty currency tokens.
	DefaultCurrency = "EUR"
)

// unitSynonyms lists recognized spellings per canonical unit, already folded.
var unitSynonyms = map[string][]string{
	"kg": {
		"kg", "kgs", "kgr", "kilo", "kilos", "kilogram", "kilograms", "kilogramme", "kilogrammes",
		"κιλο", "κιλα", "κιλ", "κγ", "χγρ", "χλγ",
	},
	"g": {
		"g", "gr", "grs", "gm", "gms", "gram", "grams", "gramme", "grammes",
		"γρ", "γραμ", "γρμ", "γραμμαριο", "γραμμαρια",
	},
	"l": {
		"l", "lt", "ltr", "ltrs", "liter", "liters", "litre", "litres",
		"λ", "λτ", "λιτ", "λιτρο", "λιτρα",
	},
	"ml": {
		"ml", "mls", "milliliter", "milliliters", "millilitre", "millilitres",
		"μλ", "χιλιοστολιτρα",
	},
	"pieces": {
		"pcs", "pc", "piece", "pieces", "ea", "each", "unit", "units", "pk", "pack",
		"τεμ", "τμχ", "τεμαχιο", "τεμαχια",
	},
}

var currencySynonyms = map[string][]string{
	"EUR": {"€", "eur", "euro", "euros", "ευρω", "ευρο"},
	"USD": {"$", "usd", "us$", "dollar", "dollars"},
	"GBP": {"£", "gbp", "pound", "pounds", "stg"},
}

var (
	unitLookup     = invert(unitSynonyms)
	currencyLookup = invert(currencySynonyms)
)

func invert(m map[string][]string) map[string]string {
	out := make(map[string]string)
	for canonical, spellings := range m {
		for _, s := range spellings {
			out[s] = canonical
		}
	}
	return out
}

// StandardizeUnit maps a raw unit token to kg, g, l, ml or pieces.
// Unknown tokens are returned lowercased and otherwise untouched; blank input yields DefaultUnit.
func StandardizeUnit(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DefaultUnit
	}
	if unit, ok := unitLookup[strings.TrimSuffix(Fold(trimmed), ".")]; ok {
		return unit
	}
	return strings.ToLower(raw)
}

// StandardizeCurrency maps a raw currency token or symbol to its code.
// Unknown tokens are returned lowercased; empty input yields DefaultCurrency.
func StandardizeCurrency(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DefaultCurrency
	}
	if code, ok := currencyLookup[strings.TrimSuffix(Fold(trimmed), ".")]; ok {
		return code
	}
	return strings.ToLower(trimmed)
}

// IsWeightUnit reports whether unit (raw or canonical) measures weight or volume.
func IsWeightUnit(unit string) bool {
	switch StandardizeUnit(unit) {
	case "kg", "g", "l", "ml":
		return true
	}
	return false
}
