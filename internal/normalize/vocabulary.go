package normalize

// Concept is one entry of the core construction vocabulary.
type Concept struct {
	Name  string
	Terms []string
}

// CoreVocabulary lists the concepts used to build item signatures. Terms are
// normalized (lower-case, unaccented, singular).
var CoreVocabulary = []Concept{
	{Name: "footing", Terms: []string{"semelle", "footing", "empattement"}},
	{Name: "wall", Terms: []string{"mur", "muret", "wall"}},
	{Name: "foundation", Terms: []string{"fondation", "foundation"}},
	{Name: "slab", Terms: []string{"dalle", "slab"}},
	{Name: "floor", Terms: []string{"plancher", "floor"}},
	{Name: "beam", Terms: []string{"poutre", "linteau", "beam"}},
	{Name: "column", Terms: []string{"colonne", "poteau", "column"}},
	{Name: "pier", Terms: []string{"pilier", "pieu", "pier", "pile"}},
	{Name: "drain", Terms: []string{"drain", "drainage"}},
	{Name: "anchor", Terms: []string{"ancrage", "anchor", "tige"}},
	{Name: "concrete", Terms: []string{"beton", "concrete", "ciment"}},
	{Name: "formwork", Terms: []string{"coffrage", "formwork", "forme"}},
	{Name: "rebar", Terms: []string{"armature", "rebar", "barre"}},
	{Name: "excavation", Terms: []string{"excavation", "creusage", "terrassement"}},
	{Name: "backfill", Terms: []string{"remblai", "remblayage", "backfill"}},
	{Name: "waterproofing", Terms: []string{"impermeabilisation", "waterproofing", "goudronnage"}},
	{Name: "insulation", Terms: []string{"isolation", "isolant", "insulation"}},
	{Name: "soil", Terms: []string{"sol", "soil", "terre"}},
	{Name: "gravel", Terms: []string{"gravier", "gravel", "granulat", "concasse"}},
}

var termIndex = buildTermIndex(CoreVocabulary)

func buildTermIndex(vocab []Concept) map[string]Concept {
	index := make(map[string]Concept)
	for _, c := range vocab {
		for _, term := range c.Terms {
			index[term] = c
		}
	}
	return index
}

func lookupConcept(token string) (Concept, bool) {
	c, ok := termIndex[token]
	return c, ok
}
