// Package upsell proposes extra menu items while an order is composed.
package upsell

import (
	"sort"

	"github.com/mmynk/tableside/internal/models"
)

// DefaultLimit is the number of suggestions returned when Engine.Limit is 0.
const DefaultLimit = 3

// Suggestion is a recommended item with a rationale and a confidence
// between 0 and 100.
type Suggestion struct {
	Item       models.MenuItem
	Reason     string
	Confidence int
}

// Scorer rates how well candidate fits a cart. A zero score means the
// item should not be suggested.
type Scorer interface {
	Score(candidate models.MenuItem, cart []models.MenuItem) (confidence int, reason string)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(candidate models.MenuItem, cart []models.MenuItem) (int, string)

// Score calls f.
func (f ScorerFunc) Score(candidate models.MenuItem, cart []models.MenuItem) (int, string) {
	return f(candidate, cart)
}

// Engine ranks catalog items against the current cart.
type Engine struct {
	Scorer Scorer
	// Limit caps the number of suggestions. Zero means DefaultLimit,
	// negative means no cap.
	Limit int
}

// NewEngine returns an Engine using PairingScorer.
func NewEngine() *Engine {
	return &Engine{Scorer: NewPairingScorer()}
}

// Suggest returns items from catalog that are available and not already in
// the cart, by descending confidence. Ties keep catalog order.
// An empty catalog or cart yields no suggestions.
func (e *Engine) Suggest(catalog []*models.MenuItem, cart []models.MenuItem) []Suggestion {
	suggestions := []Suggestion{}
	if len(catalog) == 0 || len(cart) == 0 {
		return suggestions
	}

	inCart := make(map[string]bool, len(cart))
	for _, item := range cart {
		inCart[item.ID] = true
	}

	scorer := e.Scorer
	if scorer == nil {
		scorer = NewPairingScorer()
	}

	for _, candidate := range catalog {
		if candidate == nil || !candidate.IsAvailable || inCart[candidate.ID] {
			continue
		}
		confidence, reason := scorer.Score(*candidate, cart)
		if confidence <= 0 {
			continue
		}
		if confidence > 100 {
			confidence = 100
		}
		suggestions = append(suggestions, Suggestion{Item: *candidate, Reason: reason, Confidence: confidence})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})

	limit := e.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}
