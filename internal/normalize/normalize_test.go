package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Béton   Coulé ", "beton coule"},
		{"Main-d’œuvre", "main-d'oeuvre"},
		{"RevÊtement ExtÉrieur", "revetement exterieur"},
		{"Superficie 1 500 pi²", "superficie 1 500 pi2"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.in))
		})
	}
}

func TestItemDescription(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		same bool
	}{
		{
			name: "same wall with and without page note",
			a:    "Mur de fondation",
			b:    "mur de fondation (page 2)",
			same: true,
		},
		{
			name: "formwork of a wall is not the wall",
			a:    "coffrage du mur de fondation",
			b:    "mur de fondation (page 2)",
			same: false,
		},
		{
			name: "page suffix ignored",
			a:    "Semelles",
			b:    "Semelles (Page 2)",
			same: true,
		},
		{
			name: "plural and accents",
			a:    "Dalle de béton",
			b:    "dalles en beton",
			same: true,
		},
		{
			name: "page reference without parentheses",
			a:    "Drain français page 3",
			b:    "drain francais",
			same: true,
		},
		{
			name: "different work on the same element differs",
			a:    "Béton des semelles",
			b:    "Coffrage des semelles",
			same: false,
		},
		{
			name: "different elements differ",
			a:    "Semelles",
			b:    "Mur de fondation",
			same: false,
		},
		{
			name: "concept order does not matter",
			a:    "Excavation et remblai",
			b:    "remblai, excavation",
			same: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka, kb := ItemDescription(tt.a), ItemDescription(tt.b)
			if tt.same {
				assert.Equal(t, ka, kb)
			} else {
				assert.NotEqual(t, ka, kb)
			}
		})
	}
}

func TestItemDescriptionSignatures(t *testing.T) {
	assert.Equal(t, "formwork|foundation|wall", ItemDescription("coffrage du mur de fondation"))
	assert.Equal(t, "foundation|wall", ItemDescription("mur de fondation (page 2)"))
	assert.Equal(t, "concrete|footing", ItemDescription("Béton des semelles"))
	assert.Equal(t, "footing|formwork", ItemDescription("Coffrage des semelles"))
	assert.Equal(t, "footing|rebar", ItemDescription("Armature des semelles"))
	assert.Equal(t, "footing", ItemDescription("Semelles (Page 2)"))
	assert.Equal(t, "backfill|excavation", ItemDescription("Excavation et remblai"))
}

func TestItemDescriptionFallback(t *testing.T) {
	got := ItemDescription("Fenêtres à battant triple vitrage argon Low-E (p. 4)")
	assert.Equal(t, "fenetres a battant triple vitr", got)
	assert.LessOrEqual(t, len([]rune(got)), fallbackKeyLength)

	assert.Equal(t, "", ItemDescription("   "))
	assert.Equal(t, "thermopompe murale", ItemDescription("Thermopompe murale"))
}

func TestUnit(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"pi²", UnitSquareFoot},
		{"Pi.Ca.", UnitSquareFoot},
		{"sq ft", UnitSquareFoot},
		{"pi lin", UnitLinearFoot},
		{"m³", UnitCubicM},
		{"verges cubes", UnitCubicYard},
		{"Forfait", UnitLumpSum},
		{"unité", UnitEach},
		{"ch.", UnitEach},
		{"", ""},
		{"Palette", "palette"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Unit(tt.in))
		})
	}
}

func TestItemKey(t *testing.T) {
	assert.Equal(t, ItemKey("Semelles", "pi lin"), ItemKey("Semelles (Page 2)", "PL"))
	assert.NotEqual(t, ItemKey("Semelles", "pi lin"), ItemKey("Semelles", "m3"))
}

func TestCategoryKey(t *testing.T) {
	assert.Equal(t, CategoryKey("Portes et fenêtres"), CategoryKey("Porte & Fenêtre"))
	assert.Equal(t, "fondation", CategoryKey("Fondations"))
	assert.Equal(t, "salle bain", CategoryKey("Salle de bain"))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "semelle", Fold("semelles"))
	assert.Equal(t, "poteau", Fold("poteaux"))
	assert.Equal(t, "mur", Fold("murs"))
	assert.Equal(t, "sol", Fold("sol"))
}
