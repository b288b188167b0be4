package pricing

import "github.com/Veraticus/plancost/internal/model"

func tiers(eco, std, high Range) map[model.FinishQuality]Range {
	return map[model.FinishQuality]Range{
		model.FinishEconomique:  eco,
		model.FinishStandard:    std,
		model.FinishHautDeGamme: high,
	}
}

// Quebec2025 returns the default table for residential work in Quebec, 2025
// dollars. Per-square-foot ranges apply to the new floor area.
func Quebec2025() *Table {
	return &Table{
		Region:            "QC",
		Year:              2025,
		Currency:          "CAD",
		DefaultLaborShare: 0.42,
		DefaultLaborRate:  65,
		Taxes: TaxRates{
			Contingency: 0.05,
			Federal:     0.05,
			Provincial:  0.09975,
		},
		RatioBand: RatioBand{Min: 0.35, Max: 0.50},
		Benchmarks: []Benchmark{
			{
				ID: "foundation", Name: "Fondation", Kind: KindPerSquareFoot, Unit: "pi²",
				Description: "Excavation, semelles, murs de fondation, drain et remblai",
				Aliases:     []string{"fondation", "foundation", "semelle", "excavation"},
				Ranges:      tiers(Range{15, 22}, Range{20, 30}, Range{28, 40}),
			},
			{
				ID: "structure", Name: "Structure", Kind: KindPerSquareFoot, Unit: "pi²",
				Description: "Charpente, planchers, murs porteurs et poutres",
				Aliases:     []string{"structure", "charpente", "ossature", "framing"},
				Ranges:      tiers(Range{20, 28}, Range{25, 35}, Range{35, 50}),
			},
			{
				ID: "roofing", Name: "Toiture", Kind: KindPerSquareFoot, Unit: "pi²",
				Description: "Couverture, membrane, solins et gouttières",
				Aliases:     []string{"toiture", "toit", "couverture", "roofing", "roof"},
				Ranges:      tiers(Range{8, 12}, Range{10, 15}, Range{15, 25}),
			},
			{
				ID: "siding", Name: "Revêtement extérieur", Kind: KindPerSquareFoot, Unit: "pi²",
				Description: "Parement, fascias et soffites",
				Aliases:     []string{"revetement exterieur", "parement", "siding", "facade"},
				Ranges:      tiers(Range{10, 15}, Range{15, 22}, Range{22, 35}),
			},
			{
				ID: "windows", Name: "Portes et fenêtres", Kind: KindPerSquareFoot, Unit: "pi²",
				Description: "Fenêtres, portes extérieures et porte de garage",
				Aliases:     []string{"fenetre", "porte exterieure", "porte entree", "porte patio", "ouverture", "window", "exterior door"},
				Ranges:      tiers(Range{12, 18}, Range{18, 28}, Range{28, 45}),
			},
			{
				ID: "insulation", Name: "Isolation et pare-vapeur", Kind: KindPerSquareFoot, Unit: "pi²",
				Description: "Isolation des murs, du toit et pare-vapeur",
				Aliases:     []string{"isolation", "isolant", "pare vapeur", "insulation"},
				Ranges:      tiers(Range{4, 6}, Range{5, 8}, Range{8, 12}),
			},
			{
				ID: "electrical", Name: "Électricité", Kind: KindPerSquareFoot, Unit: "pi²",
				Description: "Entrée électrique, filage, prises et luminaires",
				Aliases:     []string{"electricite", "electrique", "electrical", "electricity"},
				Ranges:      tiers(Range{10, 14}, Range{12, 18}, Range{18, 28}),
			},
			{
				ID: "plumbing", Name: "Plomberie", Kind: KindPerSquareFoot, Unit: "pi²",
				Description: "Alimentation, drainage et appareils sanitaires",
				Aliases:     []string{"plomberie", "plumbing"},
				Ranges:      tiers(Range{8, 12}, Range{10, 16}, Range{16, 25}),
			},
			{
				ID: "heating", Name: "Chauffage et ventilation", Kind: KindPerSquareFoot, Unit: "pi²",
				Description: "Chauffage, ventilation et climatisation",
				Aliases:     []string{"chauffage", "cvac", "ventilation", "climatisation", "hvac", "heating"},
				Ranges:      tiers(Range{8, 12}, Range{12, 18}, Range{18, 30}),
			},
			{
				ID: "interior", Name: "Finition intérieure", Kind: KindPerSquareFoot, Unit: "pi²",
				Description: "Gypse, peinture, planchers, moulures et portes intérieures",
				Aliases:     []string{"finition interieure", "finition", "gypse", "interior finishing", "interior"},
				Ranges:      tiers(Range{25, 35}, Range{35, 50}, Range{50, 80}),
			},
			{
				ID: "kitchen", Name: "Cuisine", Kind: KindFixed, Unit: "forfait",
				Description: "Armoires, comptoirs et installation",
				Aliases:     []string{"cuisine", "kitchen"},
				Ranges:      tiers(Range{15000, 25000}, Range{25000, 45000}, Range{45000, 90000}),
			},
			{
				ID: "bathroom", Name: "Salle de bain", Kind: KindFixed, Unit: "unité",
				Description: "Appareils, céramique et vanité, par salle de bain",
				Aliases:     []string{"salle bain", "salle eau", "bathroom"},
				Ranges:      tiers(Range{10000, 18000}, Range{18000, 30000}, Range{30000, 60000}),
			},
		},
		Trades: []Trade{
			{
				Key:             model.TradeExteriorSiding,
				CategoryAliases: []string{"revetement exterieur", "parement", "siding", "facade"},
				Materials: []Material{
					{ID: "vinyl", Keywords: []string{"vinyle", "vinyl"}},
					{ID: "wood", Keywords: []string{"bois", "cedre", "canexel"}},
					{ID: "fiber-cement", Keywords: []string{"fibrociment", "fibre de ciment", "hardie"}},
					{ID: "brick", Keywords: []string{"brique", "brick"}},
					{ID: "stone", Keywords: []string{"pierre", "stone"}},
					{ID: "metal", Keywords: []string{"acier", "aluminium", "metal"}},
				},
			},
			{
				Key:             model.TradeRoofing,
				CategoryAliases: []string{"toiture", "toit", "couverture", "roofing", "roof"},
				Materials: []Material{
					{ID: "asphalt", Keywords: []string{"bardeau", "asphalte", "shingle"}},
					{ID: "metal", Keywords: []string{"tole", "toiture metallique", "toit metallique", "joint debout", "metal roof"}},
					{ID: "elastomer", Keywords: []string{"elastomere", "bicouche"}},
					{ID: "cedar", Keywords: []string{"cedre"}},
				},
			},
			{
				Key:             model.TradeWindows,
				CategoryAliases: []string{"fenetre", "porte exterieure", "porte entree", "porte patio", "window", "exterior door"},
				Materials: []Material{
					{ID: "pvc", Keywords: []string{"pvc"}},
					{ID: "hybrid", Keywords: []string{"hybride"}},
					{ID: "aluminum", Keywords: []string{"aluminium"}},
					{ID: "wood", Keywords: []string{"bois"}},
					{ID: "fiberglass", Keywords: []string{"fibre de verre"}},
				},
			},
			{
				Key:             model.TradeInsulation,
				CategoryAliases: []string{"isolation", "isolant", "pare vapeur", "insulation"},
				Materials: []Material{
					{ID: "fiberglass", Keywords: []string{"laine de verre", "fibre de verre", "laine minerale", "roxul"}},
					{ID: "cellulose", Keywords: []string{"cellulose"}},
					{ID: "spray-foam", Keywords: []string{"polyurethane", "giclee", "mousse"}},
					{ID: "rigid", Keywords: []string{"polystyrene", "styromousse", "panneau rigide"}},
				},
			},
			{
				Key:             model.TradeHeating,
				CategoryAliases: []string{"chauffage", "cvac", "hvac", "climatisation", "heating"},
				Materials: []Material{
					{ID: "baseboard", Keywords: []string{"plinthe"}},
					{ID: "heat-pump", Keywords: []string{"thermopompe", "pompe a chaleur", "heat pump"}},
					{ID: "radiant", Keywords: []string{"radiant", "plancher chauffant"}},
					{ID: "forced-air", Keywords: []string{"air pulse", "fournaise", "forced air"}},
					{ID: "geothermal", Keywords: []string{"geotherm"}},
				},
			},
			{
				Key:             model.TradeFlooring,
				CategoryAliases: []string{"finition interieure", "plancher", "revetement sol", "couvre plancher", "flooring"},
				Materials: []Material{
					{ID: "hardwood", Keywords: []string{"bois franc", "merisier", "chene", "erable"}},
					{ID: "engineered", Keywords: []string{"ingenierie"}},
					{ID: "laminate", Keywords: []string{"stratifie", "flottant"}},
					{ID: "vinyl", Keywords: []string{"vinyle", "lvp"}},
					{ID: "ceramic", Keywords: []string{"ceramique", "carrelage", "tuile"}},
				},
			},
			{
				Key:             model.TradeCabinets,
				CategoryAliases: []string{"cuisine", "armoire", "kitchen", "cabinet"},
				Materials: []Material{
					{ID: "melamine", Keywords: []string{"melamine"}},
					{ID: "thermoplastic", Keywords: []string{"thermoplastique", "polyester"}},
					{ID: "lacquer", Keywords: []string{"laque"}},
					{ID: "wood", Keywords: []string{"bois massif", "merisier", "erable"}},
				},
			},
			{
				Key:             model.TradeCountertops,
				CategoryAliases: []string{"cuisine", "comptoir", "kitchen", "countertop"},
				Materials: []Material{
					{ID: "laminate", Keywords: []string{"stratifie", "postforme"}},
					{ID: "quartz", Keywords: []string{"quartz"}},
					{ID: "granite", Keywords: []string{"granit"}},
					{ID: "butcher-block", Keywords: []string{"bloc de boucher", "comptoir de bois"}},
				},
			},
		},
	}
}
