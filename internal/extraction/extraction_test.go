package extraction

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/Veraticus/plancost/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepair(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "already valid",
			input: `{"a":1}`,
			want:  `{"a":1}`,
		},
		{
			name:  "markdown fence and prose",
			input: "Voici l'analyse:\n```json\n{\"a\": [1, 2]}\n```\nBonne journée",
			want:  `{"a": [1, 2]}`,
		},
		{
			name:  "trailing commas",
			input: `{"a": [1, 2,], "b": {"c": 3,},}`,
			want:  `{"a": [1, 2], "b": {"c": 3}}`,
		},
		{
			name:  "raw newline in string",
			input: "{\"a\": \"ligne 1\nligne 2\"}",
			want:  `{"a": "ligne 1\nligne 2"}`,
		},
		{
			name:  "truncated inside string",
			input: `{"categories": [{"nom": "Fondation", "items": [{"description": "Semel`,
			want:  `{"categories": [{"nom": "Fondation", "items": [{"description": "Semel"}]}]}`,
		},
		{
			name:  "truncated after key",
			input: `{"a": 1, "b":`,
			want:  `{"a": 1, "b":null}`,
		},
		{
			name:  "truncated inside key falls back to last comma",
			input: `{"a": 1, "bc`,
			want:  `{"a": 1}`,
		},
		{
			name:  "truncated number falls back",
			input: `{"a": [1, 2, 3.`,
			want:  `{"a": [1, 2]}`,
		},
		{
			name:  "text after object ignored",
			input: `{"a": "}"} and {"b": 2}`,
			want:  `{"a": "}"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Repair(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, json.Valid([]byte(got)))
		})
	}
}

func TestRepairFailures(t *testing.T) {
	for _, input := range []string{"", "pas de JSON ici", "[1, 2, 3]"} {
		_, err := Repair(input)
		assert.ErrorIs(t, err, ErrUnparseable, input)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1800", 1800},
		{"1 800,50 $", 1800.50},
		{"1 800,50 $", 1800.50},
		{"$1,800.50", 1800.50},
		{"1.800,50", 1800.50},
		{"12,500", 12500},
		{"2,5", 2.5},
		{"1,234,567", 1234567},
		{"1200 pi2", 1200},
		{"15 $/pi²", 15},
		{"-250", -250},
		{"n/d", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseAmount(tt.in), 1e-9)
		})
	}
}

const sampleReply = "```json\n" + `{
  "type_projet": "Agrandissement",
  "superficie_nouvelle_pi2": "640",
  "nombre_etages": 1,
  "resume_projet": "Agrandissement arrière sur fondation",
  "categories": [
    {
      "nom": "Fondation",
      "description": "Semelles et murs",
      "sous_total_materiaux": null,
      "heures_main_oeuvre": "",
      "taux_horaire": 65,
      "sous_total_main_oeuvre": 0,
      "total_categorie": "1 800 $",
      "items": [
        {"description": "Semelles", "quantite": "120", "unite": "pi lin", "prix_unitaire": 15, "total": 1800, "confiance": "haute"},
        {"description": "Mur de fondation", "quantite": 80, "unite": "pi lin", "prix_unitaire": "45,50", "total": null, "source": "Page 3", "confiance": "inconnue"},
      ]
    }
  ],
  "elements_manquants": ["Plan de drainage"],
  "ambiguites": "Hauteur du sous-sol",
  "incoherences": [{"description": "Cotes différentes"}, 42]
}` + "\n```"

func TestParse(t *testing.T) {
	page, err := Parse(sampleReply, "Page 2")
	require.NoError(t, err)

	assert.Equal(t, "Page 2", page.Label)
	assert.Equal(t, "Agrandissement", page.ProjectTypeHint)
	assert.InDelta(t, 640.0, page.NewFloorAreaHint, 1e-9)
	assert.Equal(t, 1, page.FloorCountHint)
	assert.Equal(t, "Agrandissement arrière sur fondation", page.Summary)
	assert.Equal(t, []string{"Plan de drainage"}, page.MissingElements)
	assert.Equal(t, []string{"Hauteur du sous-sol"}, page.Ambiguities)
	assert.Equal(t, []string{"Cotes différentes", "42"}, page.Inconsistencies)

	require.Len(t, page.Categories, 1)
	cat := page.Categories[0]
	assert.Equal(t, "Fondation", cat.Name)
	assert.Zero(t, cat.MaterialsSubtotal)
	assert.Zero(t, cat.LaborHours)
	assert.InDelta(t, 65.0, cat.LaborRate, 1e-9)
	assert.InDelta(t, 1800.0, cat.CategoryTotal, 1e-9)

	require.Len(t, cat.Items, 2)
	assert.Equal(t, "Page 2", cat.Items[0].Source)
	assert.Equal(t, model.ConfidenceHigh, cat.Items[0].Confidence)
	assert.InDelta(t, 120.0, cat.Items[0].Quantity, 1e-9)
	assert.Equal(t, "Page 3", cat.Items[1].Source)
	assert.Equal(t, model.ConfidenceMedium, cat.Items[1].Confidence)
	assert.InDelta(t, 45.5, cat.Items[1].UnitPrice, 1e-9)
	assert.Zero(t, cat.Items[1].Total)
}

func TestParseUnparseable(t *testing.T) {
	_, err := Parse("Je ne peux pas analyser cette image.", "Page 1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnparseable))

	_, err = Parse(`{"categories": "aucune"}`, "Page 1")
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestFromModelRoundTrip(t *testing.T) {
	original, err := Parse(sampleReply, "Page 2")
	require.NoError(t, err)

	data, err := json.Marshal(FromModel(original))
	require.NoError(t, err)

	again, err := Parse(string(data), "Page 2")
	require.NoError(t, err)
	assert.Equal(t, original, again)
}

func TestErrorContext(t *testing.T) {
	data := []byte("{\n  \"a\": ,\n}")
	var v any
	err := json.Unmarshal(data, &v)
	require.Error(t, err)

	line, col, excerpt := ErrorContext(data, err)
	assert.Equal(t, 2, line)
	assert.Positive(t, col)
	assert.NotEmpty(t, excerpt)

	line, _, _ = ErrorContext(data, errors.New("other"))
	assert.Zero(t, line)
}
