package upsell

import (
	"fmt"
	"strings"

	"github.com/mmynk/tableside/internal/models"
)

const (
	pairingWeight     = 50
	popularWeight     = 25
	newCategoryWeight = 10
	quickPrepWeight   = 5
	quickPrepMinutes  = 10
)

// defaultPairings maps a category in the cart to the categories that
// complement it. Keys and values are lower case.
var defaultPairings = map[string][]string{
	"starters":    {"main course", "beverages"},
	"main course": {"desserts", "beverages", "breads"},
	"breads":      {"main course"},
	"desserts":    {"beverages"},
	"beverages":   {"starters", "desserts"},
}

// PairingScorer scores candidates by category complementarity and
// popularity.
type PairingScorer struct {
	// Pairings maps a cart category to complementary categories.
	Pairings map[string][]string
}

// NewPairingScorer returns a PairingScorer with the default pairings.
func NewPairingScorer() *PairingScorer {
	return &PairingScorer{Pairings: defaultPairings}
}

// Score implements Scorer.
func (p *PairingScorer) Score(candidate models.MenuItem, cart []models.MenuItem) (int, string) {
	candidateCategory := strings.ToLower(candidate.Category)

	var score int
	var reasons []string

	if pairedWith, ok := p.pairedWith(candidateCategory, cart); ok {
		score += pairingWeight
		reasons = append(reasons, fmt.Sprintf("pairs well with %s", pairedWith))
	}
	if candidate.IsPopular {
		score += popularWeight
		reasons = append(reasons, "popular choice")
	}
	if score == 0 {
		return 0, ""
	}

	if candidateCategory != "" && !hasCategory(cart, candidateCategory) {
		score += newCategoryWeight
	}
	if candidate.PreparationTime > 0 && candidate.PreparationTime <= quickPrepMinutes {
		score += quickPrepWeight
		reasons = append(reasons, "quick to prepare")
	}

	if score > 100 {
		score = 100
	}
	reason := strings.Join(reasons, ", ")
	return score, strings.ToUpper(reason[:1]) + reason[1:]
}

// pairedWith returns the name of the first cart item whose category
// pairs with category.
func (p *PairingScorer) pairedWith(category string, cart []models.MenuItem) (string, bool) {
	if category == "" {
		return "", false
	}
	for _, item := range cart {
		for _, complement := range p.Pairings[strings.ToLower(item.Category)] {
			if complement == category {
				return item.Name, true
			}
		}
	}
	return "", false
}

func hasCategory(cart []models.MenuItem, category string) bool {
	for _, item := range cart {
		if strings.ToLower(item.Category) == category {
			return true
		}
	}
	return false
}
