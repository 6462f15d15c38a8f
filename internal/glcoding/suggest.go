// Package glcoding suggests general ledger accounts for invoice lines by
// keyword category.
package glcoding

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/odyssey-erp/invoiceguard/internal/normalize"
)

var (
	// ErrNoCategory is returned when no keyword matches the description.
	ErrNoCategory = errors.New("glcoding: no matching category")
	// ErrNoAccount is returned when the category has no configured account.
	ErrNoAccount = errors.New("glcoding: no account for category")
)

// Category groups keywords under a ledger category.
type Category struct {
	Name     string
	Keywords []string
}

// DefaultCategories is the built-in keyword table. Order breaks ties.
var DefaultCategories = []Category{
	{"office_supplies", []string{"paper", "pen", "stapler", "folder", "envelope", "office"}},
	{"computer_equipment", []string{"laptop", "desktop", "monitor", "keyboard", "mouse", "computer"}},
	{"software", []string{"license", "subscription", "saas", "software", "adobe", "microsoft"}},
	{"utilities", []string{"electric", "water", "gas", "internet", "phone", "utility"}},
	{"travel", []string{"hotel", "flight", "airline", "uber", "taxi", "rental car"}},
	{"meals", []string{"restaurant", "lunch", "dinner", "catering", "food"}},
	{"professional_services", []string{"consulting", "legal", "accounting", "audit", "advisory"}},
	{"marketing", []string{"advertising", "marketing", "social media", "campaign", "promotion"}},
	{"rent", []string{"rent", "lease", "facility"}},
	{"insurance", []string{"insurance", "premium", "coverage"}},
	{"maintenance", []string{"repair", "maintenance", "service", "cleaning"}},
	{"shipping", []string{"shipping", "freight", "delivery", "courier", "fedex", "ups"}},
}

// Account is a chart-of-accounts entry supplied by the caller.
type Account struct {
	Code     string `json:"accountCode" validate:"required"`
	Name     string `json:"accountName"`
	Category string `json:"category" validate:"required"`
}

// Suggestion is the proposed coding for one line.
type Suggestion struct {
	Account      Account   `json:"account"`
	Category     string    `json:"category"`
	Confidence   float64   `json:"confidence"`
	Method       string    `json:"method"`
	Alternatives []Account `json:"alternatives"`
}

// Suggester matches descriptions against a category table.
type Suggester struct {
	categories []Category
}

// New builds a suggester; nil categories use DefaultCategories.
func New(categories []Category) *Suggester {
	if categories == nil {
		categories = DefaultCategories
	}
	return &Suggester{categories: categories}
}

// Category returns the best category for the description and its keyword
// hit count.
func (s *Suggester) Category(description string) (string, int) {
	text := normalize.Text(description)
	best, bestHits := "", 0
	for _, c := range s.categories {
		hits := 0
		for _, kw := range c.Keywords {
			if strings.Contains(text, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = c.Name, hits
		}
	}
	return best, bestHits
}

// Suggest picks the first account of the best category. Confidence is
// min(hits/3, 1) and up to two further accounts are offered.
func (s *Suggester) Suggest(description string, accounts []Account) (Suggestion, error) {
	category, hits := s.Category(description)
	if hits == 0 {
		return Suggestion{}, ErrNoCategory
	}
	var matching []Account
	for _, acc := range accounts {
		if strings.Contains(strings.ToLower(acc.Category), category) {
			matching = append(matching, acc)
		}
	}
	if len(matching) == 0 {
		return Suggestion{Category: category}, fmt.Errorf("%s: %w", category, ErrNoAccount)
	}
	alternatives := []Account{}
	if len(matching) > 1 {
		alternatives = matching[1:min(len(matching), 3)]
	}
	return Suggestion{
		Account:      matching[0],
		Category:     category,
		Confidence:   math.Min(float64(hits)/3, 1),
		Method:       "keyword_matching",
		Alternatives: alternatives,
	}, nil
}
