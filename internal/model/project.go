package model

import (
	"fmt"
	"strings"
)

// FinishQuality is the client-selected finish tier used to pick benchmark ranges.
type FinishQuality string

// Finish tiers.
const (
	FinishEconomique  FinishQuality = "economique"
	FinishStandard    FinishQuality = "standard"
	FinishHautDeGamme FinishQuality = "haut-de-gamme"
)

// FinishQualities lists the tiers from cheapest to most expensive.
var FinishQualities = []FinishQuality{FinishEconomique, FinishStandard, FinishHautDeGamme}

// ParseFinishQuality accepts French and English spellings. An empty string
// yields the standard tier.
func ParseFinishQuality(s string) (FinishQuality, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("é", "e", "è", "e", "_", "-", " ", "-").Replace(key)

	switch key {
	case "", "standard", "moyen", "mid", "medium":
		return FinishStandard, nil
	case "economique", "economic", "economy", "budget", "entree-de-gamme":
		return FinishEconomique, nil
	case "haut-de-gamme", "haute-gamme", "high-end", "highend", "premium", "luxe":
		return FinishHautDeGamme, nil
	default:
		return "", fmt.Errorf("unknown finish quality %q (valid: economique, standard, haut-de-gamme)", s)
	}
}

// Trade keys accepted in MaterialChoices.
const (
	TradeExteriorSiding = "exteriorSiding"
	TradeRoofing        = "roofingType"
	TradeWindows        = "windows"
	TradeInsulation     = "insulation"
	TradeHeating        = "heating"
	TradeFlooring       = "flooring"
	TradeCabinets       = "cabinets"
	TradeCountertops    = "countertops"
)

// MaterialChoices maps a trade key to the material the client selected.
type MaterialChoices map[string]string

// ProjectContext carries what the client told us about the project.
type ProjectContext struct {
	MaterialChoices MaterialChoices `json:"materialChoices,omitempty"`
	ProjectType     string          `json:"projectType,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Quality         FinishQuality   `json:"finishQuality,omitempty"`
	FloorArea       float64         `json:"floorArea,omitempty"`
	FoundationArea  float64         `json:"foundationArea,omitempty"`
	FloorCount      int             `json:"floorCount,omitempty"`
	BathroomCount   int             `json:"bathroomCount,omitempty"`
	HasGarage       bool            `json:"hasGarage,omitempty"`
}

// Bathrooms returns the bathroom count, assuming one when unspecified.
func (p ProjectContext) Bathrooms() int {
	if p.BathroomCount <= 0 {
		return 1
	}
	return p.BathroomCount
}

// Tier returns the selected finish quality, defaulting to standard.
func (p ProjectContext) Tier() FinishQuality {
	if p.Quality == "" {
		return FinishStandard
	}
	return p.Quality
}
