package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Item categories assigned by Name.
const (
	CategoryDairy      = "Dairy"
	CategoryMeat       = "Meat"
	CategoryBakery     = "Bakery"
	CategoryFruit      = "Fruit"
	CategoryVegetables = "Vegetables"
	CategoryFrozen     = "Frozen"
	CategoryDryGoods   = "Dry Goods"
	CategoryBeverages  = "Beverages"
	CategoryHousehold  = "Household"
	CategorySnacks     = "Snacks"
)

// NormalizedName is the canonical form of a receipt item description.
type NormalizedName struct {
	Name     string `json:"name"`
	Original string `json:"original"`
	Category string `json:"category,omitempty"`
}

type productEntry struct {
	// keywords are folded substrings; the first entry with a hit wins
	keywords []string
	// name replaces the description when set, otherwise the cleaned description is kept
	name     string
	category string
}

var productDictionary = []productEntry{
	{keywords: []string{"frozen", "κατεψυγμ", "κατεψ"}, category: CategoryFrozen},
	{keywords: []string{"ice cream", "παγωτο"}, name: "Ice Cream", category: CategoryFrozen},
	{keywords: []string{"halloumi", "χαλλουμι", "χαλουμι"}, name: "Halloumi", category: CategoryDairy},
	{keywords: []string{"yoghurt", "yogurt", "γιαουρτι"}, name: "Yogurt", category: CategoryDairy},
	{keywords: []string{"butter", "βουτυρο"}, name: "Butter", category: CategoryDairy},
	{keywords: []string{"cheese", "τυρι", "φετα", "feta"}, name: "Cheese", category: CategoryDairy},
	{keywords: []string{"milk", "γαλα"}, name: "Milk", category: CategoryDairy},
	{keywords: []string{"eggs", "αυγα"}, name: "Eggs", category: CategoryDairy},
	{keywords: []string{"chicken", "κοτοπουλο"}, name: "Chicken", category: CategoryMeat},
	{keywords: []string{"pork", "χοιρινο"}, name: "Pork", category: CategoryMeat},
	{keywords: []string{"beef", "μοσχαρι", "μοσχαρισιο"}, name: "Beef", category: CategoryMeat},
	{keywords: []string{"lamb", "αρνι"}, name: "Lamb", category: CategoryMeat},
	{keywords: []string{"mince", "κιμασ"}, name: "Minced Meat", category: CategoryMeat},
	{keywords: []string{"sausage", "λουκανικ"}, name: "Sausages", category: CategoryMeat},
	{keywords: []string{"ham", "ζαμπον"}, name: "Ham", category: CategoryMeat},
	{keywords: []string{"fish", "ψαρι", "σολομο", "salmon"}, name: "Fish", category: CategoryMeat},
	{keywords: []string{"bread", "ψωμι"}, name: "Bread", category: CategoryBakery},
	{keywords: []string{"pitta", "πιττα", "πιτα"}, name: "Pitta Bread", category: CategoryBakery},
	{keywords: []string{"croissant", "κρουασαν"}, name: "Croissant", category: CategoryBakery},
	{keywords: []string{"banana", "μπανανε", "μπανανα"}, name: "Bananas", category: CategoryFruit},
	{keywords: []string{"apple", "μηλα", "μηλο"}, name: "Apples", category: CategoryFruit},
	{keywords: []string{"orange", "πορτοκαλ"}, name: "Oranges", category: CategoryFruit},
	{keywords: []string{"lemon", "λεμονι"}, name: "Lemons", category: CategoryFruit},
	{keywords: []string{"grape", "σταφυλι"}, name: "Grapes", category: CategoryFruit},
	{keywords: []string{"strawberr", "φραουλ"}, name: "Strawberries", category: CategoryFruit},
	{keywords: []string{"watermelon", "καρπουζι"}, name: "Watermelon", category: CategoryFruit},
	{keywords: []string{"tomato", "ντοματ", "τοματ"}, name: "Tomatoes", category: CategoryVegetables},
	{keywords: []string{"cucumber", "αγγουρ"}, name: "Cucumbers", category: CategoryVegetables},
	{keywords: []string{"potato", "πατατ"}, name: "Potatoes", category: CategoryVegetables},
	{keywords: []string{"onion", "κρεμμυδ"}, name: "Onions", category: CategoryVegetables},
	{keywords: []string{"lettuce", "μαρουλι"}, name: "Lettuce", category: CategoryVegetables},
	{keywords: []string{"carrot", "καροτ"}, name: "Carrots", category: CategoryVegetables},
	{keywords: []string{"spinach", "σπανακι"}, name: "Spinach", category: CategoryVegetables},
	{keywords: []string{"pepper", "πιπερι"}, name: "Peppers", category: CategoryVegetables},
	{keywords: []string{"pasta", "spaghetti", "μακαρονι", "σπαγγετι"}, name: "Pasta", category: CategoryDryGoods},
	{keywords: []string{"rice", "ρυζι"}, name: "Rice", category: CategoryDryGoods},
	{keywords: []string{"flour", "αλευρι"}, name: "Flour", category: CategoryDryGoods},
	{keywords: []string{"sugar", "ζαχαρη"}, name: "Sugar", category: CategoryDryGoods},
	{keywords: []string{"beans", "φασολι", "φακεσ", "lentil"}, name: "Pulses", category: CategoryDryGoods},
	{keywords: []string{"cereal", "δημητριακ"}, name: "Cereal", category: CategoryDryGoods},
	{keywords: []string{"coffee", "καφε"}, name: "Coffee", category: CategoryBeverages},
	{keywords: []string{"tea", "τσαι"}, name: "Tea", category: CategoryBeverages},
	{keywords: []string{"water", "νερο"}, name: "Water", category: CategoryBeverages},
	{keywords: []string{"juice", "χυμοσ"}, name: "Juice", category: CategoryBeverages},
	{keywords: []string{"beer", "μπυρα"}, name: "Beer", category: CategoryBeverages},
	{keywords: []string{"wine", "κρασι"}, name: "Wine", category: CategoryBeverages},
	{keywords: []string{"cola", "soda", "αναψυκτικ"}, name: "Soft Drink", category: CategoryBeverages},
	{keywords: []string{"chips", "crisps", "τσιπσ"}, name: "Crisps", category: CategorySnacks},
	{keywords: []string{"chocolate", "σοκολατ"}, name: "Chocolate", category: CategorySnacks},
	{keywords: []string{"biscuit", "cookie", "μπισκοτ"}, name: "Biscuits", category: CategorySnacks},
	{keywords: []string{"detergent", "απορρυπαντικ"}, name: "Detergent", category: CategoryHousehold},
	{keywords: []string{"toilet paper", "χαρτι υγειασ"}, name: "Toilet Paper", category: CategoryHousehold},
	{keywords: []string{"soap", "σαπουνι"}, name: "Soap", category: CategoryHousehold},
}

// storeAbbreviations expands the shorthand each chain prints on its tills. Keys are folded words
// without a trailing dot.
var storeAbbreviations = map[string]map[string]string{
	"lidl": {
		"φρ":   "φρεσκο",
		"αγελ": "αγελαδινο",
		"πληρ": "πληρεσ",
		"ελαφ": "ελαφρυ",
		"bio":  "organic",
	},
	"alphamega": {
		"γιαουρ": "γιαουρτι",
		"χαλλ":   "χαλλουμι",
		"κοτοπ":  "κοτοπουλο",
		"fr":     "fresh",
		"org":    "organic",
	},
}

var (
	leadingCodePattern = regexp.MustCompile(`^\d{3,}\s+`)
	noisePattern       = regexp.MustCompile(`[*#_|]+`)
	spacePattern       = regexp.MustCompile(`\s+`)
)

// Name maps a raw description to a canonical name and category. store selects chain-specific
// abbreviation expansion and may be empty.
func Name(raw, store string) NormalizedName {
	result := NormalizedName{Original: raw}

	cleaned := strings.TrimSpace(raw)
	cleaned = leadingCodePattern.ReplaceAllString(cleaned, "")
	cleaned = noisePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.Trim(spacePattern.ReplaceAllString(cleaned, " "), " .,;:-")
	if cleaned == "" {
		result.Name = strings.TrimSpace(raw)
		return result
	}

	words := strings.Fields(cleaned)
	expanded := false
	if abbrevs, ok := storeAbbreviations[storeKey(store)]; ok {
		for i, w := range words {
			if full, ok := abbrevs[strings.TrimSuffix(Fold(w), ".")]; ok {
				words[i] = full
				expanded = true
			}
		}
	}
	display := strings.Join(words, " ")

	folded := Fold(display)
	for _, entry := range productDictionary {
		if !containsAny(folded, entry.keywords) {
			continue
		}
		result.Category = entry.category
		if entry.name != "" {
			result.Name = entry.name
			return result
		}
		break
	}

	if expanded || isShouting(display) {
		display = titleCase(display)
	}
	result.Name = display
	return result
}

// storeAliases maps spellings of a chain name to its storeAbbreviations key, checked in order.
var storeAliases = []struct{ alias, key string }{
	{"lidl", "lidl"},
	{"alphamega", "alphamega"},
	{"αλφαμεγα", "alphamega"},
}

func storeKey(store string) string {
	folded := strings.ReplaceAll(Fold(store), " ", "")
	for _, a := range storeAliases {
		if strings.Contains(folded, a.alias) {
			return a.key
		}
	}
	return ""
}

// containsAny reports whether any keyword occurs in s at the start of a word.
func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		for offset := 0; offset < len(s); {
			i := strings.Index(s[offset:], k)
			if i < 0 {
				break
			}
			at := offset + i
			if at == 0 || !unicode.IsLetter(lastRune(s[:at])) {
				return true
			}
			offset = at + len(k)
		}
	}
	return false
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

// isShouting reports whether s has letters and none of them are lowercase, the usual till style.
func isShouting(s string) bool {
	return strings.ToUpper(s) == s && strings.ToLower(s) != s
}

func titleCase(s string) string {
	tag := language.English
	if HasGreek(s) {
		tag = language.Greek
	}
	return cases.Title(tag).String(strings.ToLower(s))
}
