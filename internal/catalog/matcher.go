// Package catalog pairs invoice lines with catalog items by token-set
// similarity.
package catalog

import (
	"strings"

	"github.com/odyssey-erp/invoiceguard/internal/fuzzy"
)

// SuggestionLimit bounds the alternatives offered when nothing matched.
const SuggestionLimit = 3

// MethodTokenSet names the similarity used for a match.
const MethodTokenSet = "token_set"

// Item is one entry of the buyer's catalog.
type Item struct {
	SKU         string `json:"sku"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// Line is the invoice line to place in the catalog.
type Line struct {
	Description string `json:"description" validate:"required"`
	SKU         string `json:"sku"`
}

// Suggestion is a ranked candidate below the match threshold.
type Suggestion struct {
	Item  Item    `json:"item"`
	Score float64 `json:"score"`
}

// Result is the outcome for one line. Item is set only when Matched.
type Result struct {
	Matched     bool         `json:"matched"`
	Item        *Item        `json:"item,omitempty"`
	Confidence  float64      `json:"confidence"`
	Method      string       `json:"method,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
}

// Match returns the most similar item when its similarity clears
// fuzzy.DefaultThreshold, otherwise the top candidates as suggestions.
// Equal scores keep catalog order.
func Match(line Line, items []Item) Result {
	if len(items) == 0 {
		return Result{Reason: "no catalog items provided"}
	}
	query := join(line.Description, line.SKU)
	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = join(it.Name, it.Description, it.SKU)
	}
	ranked := fuzzy.Top(query, texts, SuggestionLimit)
	best := ranked[0]
	if best.Similarity > fuzzy.DefaultThreshold {
		item := items[best.Index]
		return Result{
			Matched:    true,
			Item:       &item,
			Confidence: best.Similarity,
			Method:     MethodTokenSet,
		}
	}
	out := Result{Reason: "low confidence match", Suggestions: make([]Suggestion, 0, len(ranked))}
	for _, r := range ranked {
		out.Suggestions = append(out.Suggestions, Suggestion{Item: items[r.Index], Score: r.Similarity})
	}
	return out
}

func join(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
