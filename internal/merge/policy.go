// Package merge combines per-page extraction results into one category list
// without double counting elements that appear on several pages.
package merge

// Strategy decides how numeric fields of two versions of a category combine.
type Strategy int

// Merge strategies.
const (
	// StrategyMax keeps the largest value. Pages showing the same element
	// from different views never add up.
	StrategyMax Strategy = iota
	// StrategySum adds values, for categories known to be split across
	// pages (one floor per page, for instance).
	StrategySum
)

func (s Strategy) String() string {
	switch s {
	case StrategyMax:
		return "max"
	case StrategySum:
		return "sum"
	default:
		return "unknown"
	}
}

// Policy selects the strategy for a category given how many pages reported
// a positive total for it.
type Policy interface {
	Strategy(categoryKey string, pagesSeen int) Strategy
}

// MaxPolicy always takes the maximum.
type MaxPolicy struct{}

// Strategy implements Policy.
func (MaxPolicy) Strategy(string, int) Strategy { return StrategyMax }

// AdditivePolicy sums the listed category keys and takes the maximum for
// everything else.
type AdditivePolicy struct {
	keys map[string]struct{}
}

// NewAdditivePolicy builds an AdditivePolicy from category names, keyed the
// same way the merger keys categories.
func NewAdditivePolicy(keyFn func(string) string, names ...string) AdditivePolicy {
	keys := make(map[string]struct{}, len(names))
	for _, n := range names {
		keys[keyFn(n)] = struct{}{}
	}
	return AdditivePolicy{keys: keys}
}

// Strategy implements Policy.
func (p AdditivePolicy) Strategy(key string, pagesSeen int) Strategy {
	if _, ok := p.keys[key]; ok && pagesSeen > 1 {
		return StrategySum
	}
	return StrategyMax
}
