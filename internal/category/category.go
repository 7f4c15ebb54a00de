// Package category holds the category catalogue for each ledger and
// suggests a category from a free-text title.
package category

import (
	"slices"
	"strings"
)

// Kind selects a catalogue.
type Kind string

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
	KindBill    Kind = "bill"
)

// Other is the fallback in every catalogue.
const Other = "Other"

type Category struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

var catalogues = map[Kind][]Category{
	KindExpense: {
		{"Food", "🍔"},
		{"Transport", "🚗"},
		{"Shopping", "🛍️"},
		{"Entertainment", "🎬"},
		{"Bills", "📄"},
		{"Health", "💊"},
		{"Education", "📚"},
		{"Housing", "🏠"},
		{"Travel", "✈️"},
		{Other, "💸"},
	},
	KindIncome: {
		{"Salary", "💼"},
		{"Freelance", "💻"},
		{"Investment", "📈"},
		{"Business", "🏢"},
		{"Rental", "🏠"},
		{Other, "💰"},
	},
	KindBill: {
		{"Bills", "📄"},
		{"Rent", "🏠"},
		{"Insurance", "🛡️"},
		{"Subscriptions", "📺"},
		{"Loan", "🏦"},
		{"Utilities", "💡"},
		{"Internet", "🌐"},
		{"Phone", "📱"},
		{Other, "💸"},
	},
}

// ParseKind accepts the catalogue names, defaulting to expense when s is empty.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" {
		return KindExpense, true
	}
	_, ok := catalogues[k]
	return k, ok
}

// List returns a copy of the catalogue for k.
func List(k Kind) []Category {
	return slices.Clone(catalogues[k])
}

// Known reports whether name is in the catalogue for k.
func Known(k Kind, name string) bool {
	return slices.ContainsFunc(catalogues[k], func(c Category) bool { return c.Name == name })
}

type keyword struct {
	word     string
	category string
}

// Suggest guesses a category for title: exact match first, then the first
// keyword contained in the title. Falls back to Other.
func Suggest(k Kind, title string) string {
	name := strings.ToLower(strings.TrimSpace(title))
	if name == "" {
		return Other
	}

	if cat, ok := exactMatch[k][name]; ok {
		return cat
	}
	for _, kw := range substringMatches[k] {
		if strings.Contains(name, kw.word) {
			return kw.category
		}
	}
	return Other
}

var exactMatch = map[Kind]map[string]string{
	KindExpense: {
		"lunch":     "Food",
		"dinner":    "Food",
		"breakfast": "Food",
		"coffee":    "Food",
		"groceries": "Food",
		"taxi":      "Transport",
		"uber":      "Transport",
		"fuel":      "Transport",
		"gas":       "Transport",
		"parking":   "Transport",
		"movie":     "Entertainment",
		"movies":    "Entertainment",
		"concert":   "Entertainment",
		"rent":      "Housing",
		"pharmacy":  "Health",
		"doctor":    "Health",
		"dentist":   "Health",
		"tuition":   "Education",
		"books":     "Education",
		"hotel":     "Travel",
		"flight":    "Travel",
	},
	KindIncome: {
		"salary":    "Salary",
		"paycheck":  "Salary",
		"wages":     "Salary",
		"bonus":     "Salary",
		"dividend":  "Investment",
		"dividends": "Investment",
		"interest":  "Investment",
		"rent":      "Rental",
	},
	KindBill: {
		"rent":        "Rent",
		"mortgage":    "Rent",
		"electricity": "Utilities",
		"water":       "Utilities",
		"gas":         "Utilities",
		"internet":    "Internet",
		"wifi":        "Internet",
		"broadband":   "Internet",
		"phone":       "Phone",
		"netflix":     "Subscriptions",
		"spotify":     "Subscriptions",
	},
}

// Ordered so longer, more specific keywords win.
var substringMatches = map[Kind][]keyword{
	KindExpense: {
		{"restaurant", "Food"},
		{"grocer", "Food"},
		{"supermarket", "Food"},
		{"pizza", "Food"},
		{"coffee", "Food"},
		{"lunch", "Food"},
		{"dinner", "Food"},
		{"train", "Transport"},
		{"bus ", "Transport"},
		{"metro", "Transport"},
		{"petrol", "Transport"},
		{"fuel", "Transport"},
		{"taxi", "Transport"},
		{"cinema", "Entertainment"},
		{"ticket", "Entertainment"},
		{"game", "Entertainment"},
		{"clothes", "Shopping"},
		{"shoes", "Shopping"},
		{"amazon", "Shopping"},
		{"electric", "Bills"},
		{"internet", "Bills"},
		{"phone", "Bills"},
		{"pharmacy", "Health"},
		{"medicine", "Health"},
		{"doctor", "Health"},
		{"gym", "Health"},
		{"course", "Education"},
		{"school", "Education"},
		{"book", "Education"},
		{"rent", "Housing"},
		{"furniture", "Housing"},
		{"airbnb", "Travel"},
		{"flight", "Travel"},
		{"hotel", "Travel"},
	},
	KindIncome: {
		{"salary", "Salary"},
		{"payroll", "Salary"},
		{"freelance", "Freelance"},
		{"invoice", "Freelance"},
		{"client", "Freelance"},
		{"dividend", "Investment"},
		{"stock", "Investment"},
		{"crypto", "Investment"},
		{"sales", "Business"},
		{"shop", "Business"},
		{"tenant", "Rental"},
		{"rent", "Rental"},
	},
	KindBill: {
		{"insurance", "Insurance"},
		{"subscription", "Subscriptions"},
		{"netflix", "Subscriptions"},
		{"spotify", "Subscriptions"},
		{"prime", "Subscriptions"},
		{"loan", "Loan"},
		{"credit card", "Loan"},
		{"mortgage", "Rent"},
		{"rent", "Rent"},
		{"electric", "Utilities"},
		{"water", "Utilities"},
		{"gas", "Utilities"},
		{"broadband", "Internet"},
		{"internet", "Internet"},
		{"fiber", "Internet"},
		{"mobile", "Phone"},
		{"phone", "Phone"},
	},
}
