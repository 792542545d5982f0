// Package categorize assigns a store category to items created without one,
// using keyword heuristics over the item name. It is the default
// implementation behind the item handler's Categorizer interface; deployments
// with a smarter engine swap it out at wiring time.
package categorize

import "strings"

// Keyword categorizes by name lookup: an exact match against the known-item
// table first, then the first substring hit in an ordered keyword list.
type Keyword struct {
	// Fallback is returned when nothing matches. Empty means "Other".
	Fallback string
}

func NewKeyword(fallback string) *Keyword {
	return &Keyword{Fallback: fallback}
}

func (k *Keyword) Categorize(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return k.fallback()
	}
	if cat, ok := exact[n]; ok {
		return cat
	}
	for _, e := range substrings {
		if strings.Contains(n, e.keyword) {
			return e.category
		}
	}
	return k.fallback()
}

func (k *Keyword) fallback() string {
	if k.Fallback == "" {
		return "Other"
	}
	return k.Fallback
}

var exact = map[string]string{
	"apple":        "Produce",
	"apples":       "Produce",
	"bananas":      "Produce",
	"avocado":      "Produce",
	"garlic":       "Produce",
	"broccoli":     "Produce",
	"cucumber":     "Produce",
	"mushrooms":    "Produce",
	"grapes":       "Produce",
	"strawberries": "Produce",
	"blueberries":  "Produce",
	"cilantro":     "Produce",
	"ginger":       "Produce",
	"zucchini":     "Produce",
	"asparagus":    "Produce",
	"green beans":  "Produce",

	"milk":           "Dairy",
	"eggs":           "Dairy",
	"butter":         "Dairy",
	"cheese":         "Dairy",
	"yogurt":         "Dairy",
	"half and half":  "Dairy",
	"cottage cheese": "Dairy",

	"chicken": "Meat & Seafood",
	"beef":    "Meat & Seafood",
	"pork":    "Meat & Seafood",
	"turkey":  "Meat & Seafood",
	"bacon":   "Meat & Seafood",
	"sausage": "Meat & Seafood",
	"ham":     "Meat & Seafood",
	"steak":   "Meat & Seafood", // exact match keeps "steak" out of the "tea" substring
	"salmon":  "Meat & Seafood",
	"shrimp":  "Meat & Seafood",
	"tuna":    "Meat & Seafood",

	"bread":     "Bakery",
	"bagels":    "Bakery",
	"tortillas": "Bakery",
	"pita":      "Bakery",

	"rice":          "Pantry",
	"pasta":         "Pantry",
	"flour":         "Pantry",
	"sugar":         "Pantry",
	"salt":          "Pantry",
	"olive oil":     "Pantry",
	"ketchup":       "Pantry",
	"mustard":       "Pantry",
	"honey":         "Pantry",
	"peanut butter": "Pantry",
	"cereal":        "Pantry",
	"oatmeal":       "Pantry",
	"broth":         "Pantry",
	"salsa":         "Pantry",

	"ice cream":    "Frozen",
	"frozen pizza": "Frozen",
	"popsicles":    "Frozen",

	"water":           "Beverages",
	"coffee":          "Beverages",
	"tea":             "Beverages",
	"beer":            "Beverages",
	"wine":            "Beverages",
	"sparkling water": "Beverages",

	"chips":     "Snacks",
	"crackers":  "Snacks",
	"popcorn":   "Snacks",
	"candy":     "Snacks",
	"chocolate": "Snacks",

	"paper towels":      "Household",
	"toilet paper":      "Household",
	"trash bags":        "Household",
	"dish soap":         "Household",
	"laundry detergent": "Household",
	"aluminum foil":     "Household",
	"batteries":         "Household",

	"shampoo":    "Personal Care",
	"soap":       "Personal Care",
	"toothpaste": "Personal Care",
	"deodorant":  "Personal Care",
	"sunscreen":  "Personal Care",
	"floss":      "Personal Care",
}

type substringEntry struct {
	keyword  string
	category string
}

// Ordered with the longer, more specific keywords first so "cream cheese"
// lands in Dairy before "cheese" gets a chance to.
var substrings = []substringEntry{
	{"chicken breast", "Meat & Seafood"},
	{"ground beef", "Meat & Seafood"},
	{"ground turkey", "Meat & Seafood"},
	{"deli meat", "Meat & Seafood"},
	{"pork chop", "Meat & Seafood"},
	{"hot dog", "Meat & Seafood"},
	{"chicken", "Meat & Seafood"},
	{"turkey", "Meat & Seafood"},
	{"steak", "Meat & Seafood"},

	{"cream cheese", "Dairy"},
	{"sour cream", "Dairy"},
	{"heavy cream", "Dairy"},
	{"greek yogurt", "Dairy"},
	{"almond milk", "Dairy"},
	{"oat milk", "Dairy"},
	{"yogurt", "Dairy"},
	{"cheese", "Dairy"},
	{"milk", "Dairy"},
	{"butter", "Dairy"},
	{"cream", "Dairy"},
	{"egg", "Dairy"},

	{"sweet potato", "Produce"},
	{"bell pepper", "Produce"},
	{"cherry tomato", "Produce"},
	{"green onion", "Produce"},
	{"berries", "Produce"},
	{"lettuce", "Produce"},
	{"spinach", "Produce"},
	{"kale", "Produce"},
	{"apple", "Produce"},
	{"banana", "Produce"},
	{"tomato", "Produce"},
	{"potato", "Produce"},
	{"onion", "Produce"},
	{"pepper", "Produce"},
	{"carrot", "Produce"},
	{"celery", "Produce"},
	{"fruit", "Produce"},
	{"herb", "Produce"},

	{"sourdough", "Bakery"},
	{"bread", "Bakery"},
	{"bagel", "Bakery"},
	{"tortilla", "Bakery"},
	{"bun", "Bakery"},
	{"roll", "Bakery"},
	{"muffin", "Bakery"},

	{"peanut butter", "Pantry"},
	{"olive oil", "Pantry"},
	{"maple syrup", "Pantry"},
	{"hot sauce", "Pantry"},
	{"soy sauce", "Pantry"},
	{"pasta sauce", "Pantry"},
	{"canned", "Pantry"},
	{"cereal", "Pantry"},
	{"granola", "Pantry"},
	{"rice", "Pantry"},
	{"pasta", "Pantry"},
	{"noodle", "Pantry"},
	{"flour", "Pantry"},
	{"sugar", "Pantry"},
	{"spice", "Pantry"},
	{"seasoning", "Pantry"},
	{"sauce", "Pantry"},
	{"broth", "Pantry"},
	{"stock", "Pantry"},
	{"soup", "Pantry"},
	{"bean", "Pantry"},
	{"lentil", "Pantry"},

	{"ice cream", "Frozen"},
	{"frozen", "Frozen"},
	{"popsicle", "Frozen"},

	{"sparkling water", "Beverages"},
	{"orange juice", "Beverages"},
	{"coffee", "Beverages"},
	{"juice", "Beverages"},
	{"soda", "Beverages"},
	{"water", "Beverages"},
	{"beer", "Beverages"},
	{"wine", "Beverages"},
	{"tea", "Beverages"},

	{"granola bar", "Snacks"},
	{"trail mix", "Snacks"},
	{"chip", "Snacks"},
	{"cracker", "Snacks"},
	{"cookie", "Snacks"},
	{"pretzel", "Snacks"},
	{"candy", "Snacks"},
	{"chocolate", "Snacks"},
	{"snack", "Snacks"},

	{"paper towel", "Household"},
	{"toilet paper", "Household"},
	{"trash bag", "Household"},
	{"garbage bag", "Household"},
	{"laundry", "Household"},
	{"detergent", "Household"},
	{"cleaner", "Household"},
	{"cleaning", "Household"},
	{"sponge", "Household"},
	{"foil", "Household"},
	{"battery", "Household"},

	{"body wash", "Personal Care"},
	{"shampoo", "Personal Care"},
	{"conditioner", "Personal Care"},
	{"toothpaste", "Personal Care"},
	{"toothbrush", "Personal Care"},
	{"deodorant", "Personal Care"},
	{"lotion", "Personal Care"},
	{"razor", "Personal Care"},
	{"tissue", "Personal Care"},
}
