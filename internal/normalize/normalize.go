// Package normalize turns free-form category names, item descriptions and
// units from plan extractions into stable comparison keys.
package normalize

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fallbackKeyLength is how many runes of cleaned text identify an item when
// no vocabulary concept matches.
const fallbackKeyLength = 30

var (
	ligatures = strings.NewReplacer(
		"œ", "oe", "Œ", "oe",
		"æ", "ae", "Æ", "ae",
		"’", "'", "‘", "'", "`", "'",
	)

	pageRefPattern       = regexp.MustCompile(`\b(?:page|pg|p\.)\s*#?\s*\d+\b`)
	parentheticalPattern = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	stopWordPattern      = regexp.MustCompile(`\b(?:pour les|pour le|pour la|de la|de l'|d'|l'|du|des|et)\b`)
)

// Key lower-cases text, strips diacritics and collapses whitespace.
func Key(text string) string {
	text = ligatures.Replace(text)

	// transform chains carry state, so build one per call.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, text)
	if err != nil {
		stripped = text
	}

	return strings.Join(strings.Fields(strings.ToLower(stripped)), " ")
}

// Tokens splits the normalized text into alphanumeric words.
func Tokens(text string) []string {
	return strings.FieldsFunc(Key(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Fold reduces a French or English plural token to its singular form.
func Fold(token string) string {
	if len(token) <= 3 {
		return token
	}
	switch {
	case strings.HasSuffix(token, "aux") && len(token) > 4:
		// poteaux, travaux, chevaux
		return strings.TrimSuffix(token, "x")
	case strings.HasSuffix(token, "s"), strings.HasSuffix(token, "x"):
		return token[:len(token)-1]
	}
	return token
}

// ItemDescription derives the comparison signature of a line item
// description: the sorted set of every vocabulary concept it names, so
// wording, page references and notes do not matter but the work does.
// "Béton des semelles" and "Coffrage des semelles" stay distinct.
func ItemDescription(text string) string {
	cleaned := cleanDescription(text)
	if cleaned == "" {
		return ""
	}

	words := strings.Fields(cleaned)
	concepts := make(map[string]struct{})
	for _, word := range words {
		if concept, ok := lookupConcept(Fold(word)); ok {
			concepts[concept.Name] = struct{}{}
		}
	}

	if len(concepts) == 0 {
		return truncateRunes(strings.Join(words, " "), fallbackKeyLength)
	}
	return joinSorted(concepts)
}

// ItemKey identifies a line item inside a category: the description
// signature plus the canonical unit.
func ItemKey(description, unit string) string {
	return ItemDescription(description) + "#" + Unit(unit)
}

// CategoryKey normalizes a category name for matching across pages.
// Connectors are dropped and plurals folded so "Portes et fenêtres" and
// "Porte & fenêtre" collide.
func CategoryKey(name string) string {
	tokens := Tokens(name)
	out := tokens[:0]
	for _, tok := range tokens {
		if _, skip := categoryConnectors[tok]; skip {
			continue
		}
		out = append(out, Fold(tok))
	}
	return strings.Join(out, " ")
}

var categoryConnectors = map[string]struct{}{
	"et": {}, "de": {}, "du": {}, "des": {}, "la": {}, "le": {}, "les": {},
	"l": {}, "d": {}, "and": {}, "the": {}, "of": {},
}

func cleanDescription(text string) string {
	s := Key(text)
	s = pageRefPattern.ReplaceAllString(s, " ")
	s = parentheticalPattern.ReplaceAllString(s, " ")
	s = stopWordPattern.ReplaceAllString(s, " ")
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func joinSorted(set map[string]struct{}) string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
