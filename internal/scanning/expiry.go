package scanning

import (
	"strings"
	"time"

	"github.com/zombor/pantry-tracker/internal/normalize"
)

// FoodCategory groups items by how long they keep.
type FoodCategory string

const (
	FoodDairy          FoodCategory = "dairy"
	FoodMeat           FoodCategory = "meat"
	FoodBread          FoodCategory = "bread"
	FoodFruit          FoodCategory = "fruit"
	FoodLeafyVegetable FoodCategory = "leafy-vegetable"
	FoodFrozen         FoodCategory = "frozen"
	FoodDryGoods       FoodCategory = "dry-goods"
	FoodDefault        FoodCategory = "default"
)

// shelfLifeDays is the assumed days until expiry per category.
var shelfLifeDays = map[FoodCategory]int{
	FoodDairy:          7,
	FoodMeat:           3,
	FoodBread:          5,
	FoodFruit:          7,
	FoodLeafyVegetable: 5,
	FoodFrozen:         90,
	FoodDryGoods:       180,
	FoodDefault:        14,
}

// foodKeywords are folded substrings checked in order; frozen comes first so
// "frozen chicken" keeps for months.
var foodKeywords = []struct {
	category FoodCategory
	keywords []string
}{
	{FoodFrozen, []string{"frozen", "ice cream", "κατεψυγμ", "παγωτ"}},
	{FoodMeat, []string{"chicken", "beef", "pork", "lamb", "mince", "sausage", "bacon", "turkey", "fish", "salmon",
		"κοτοπουλ", "μοσχαρ", "χοιριν", "αρνι", "κιμα", "λουκανικ", "ψαρι", "σολομ"}},
	{FoodDairy, []string{"milk", "yogurt", "yoghurt", "cheese", "butter", "cream", "halloumi", "feta", "eggs",
		"γαλα", "γιαουρτ", "τυρι", "βουτυρ", "κρεμα", "χαλλουμ", "φετα", "αυγα"}},
	{FoodBread, []string{"bread", "pitta", "croissant", "baguette", "ψωμ", "πιτ", "κρουασαν", "φραντζολ"}},
	{FoodLeafyVegetable, []string{"lettuce", "spinach", "rocket", "salad", "cabbage", "kale", "parsley",
		"μαρουλ", "σπανακ", "ροκα", "σαλατ", "λαχαν", "μαιντανο"}},
	{FoodFruit, []string{"apple", "banana", "orange", "lemon", "grape", "strawberr", "pear", "peach", "melon",
		"μηλ", "μπαναν", "πορτοκαλ", "λεμον", "σταφυλ", "φραουλ", "αχλαδ", "ροδακιν", "πεπον", "καρπουζ"}},
	{FoodDryGoods, []string{"rice", "pasta", "flour", "sugar", "lentil", "beans", "cereal", "oats", "spaghetti",
		"ρυζι", "μακαρον", "αλευρ", "ζαχαρ", "φακεσ", "φασολ", "δημητριακ"}},
}

// CategorizeFood classifies an item name by case- and accent-insensitive keyword match.
func CategorizeFood(name string) FoodCategory {
	folded := normalize.Fold(name)
	for _, group := range foodKeywords {
		for _, k := range group.keywords {
			if strings.Contains(folded, k) {
				return group.category
			}
		}
	}
	return FoodDefault
}

// DefaultExpiryDate returns now plus the shelf life of the item's category, as YYYY-MM-DD.
func DefaultExpiryDate(name string, now time.Time) string {
	return now.AddDate(0, 0, shelfLifeDays[CategorizeFood(name)]).Format(dateLayout)
}
