package normalize

import "strings"

// Canonical units.
const (
	UnitSquareFoot = "pi2"
	UnitLinearFoot = "pi_lin"
	UnitLinearM    = "ml"
	UnitSquareM    = "m2"
	UnitCubicM     = "m3"
	UnitCubicYard  = "vg3"
	UnitLumpSum    = "forfait"
	UnitEach       = "unite"
	UnitHour       = "h"
)

var unitAliases = map[string]string{
	"pi2": UnitSquareFoot, "pica": UnitSquareFoot, "pc": UnitSquareFoot, "sqft": UnitSquareFoot,
	"ft2": UnitSquareFoot, "sf": UnitSquareFoot, "pieds2": UnitSquareFoot, "piedcarre": UnitSquareFoot,
	"piedscarres": UnitSquareFoot, "picarre": UnitSquareFoot,

	"pilin": UnitLinearFoot, "pl": UnitLinearFoot, "linft": UnitLinearFoot, "lf": UnitLinearFoot,
	"piedlineaire": UnitLinearFoot, "piedslineaires": UnitLinearFoot, "pi": UnitLinearFoot,

	"ml": UnitLinearM, "mlin": UnitLinearM, "metrelineaire": UnitLinearM, "metreslineaires": UnitLinearM,

	"m2": UnitSquareM, "mc": UnitSquareM, "metrecarre": UnitSquareM, "metrescarres": UnitSquareM,

	"m3": UnitCubicM, "metrecube": UnitCubicM, "metrescubes": UnitCubicM,

	"vg3": UnitCubicYard, "v3": UnitCubicYard, "vc": UnitCubicYard, "verge3": UnitCubicYard,
	"vergecube": UnitCubicYard, "vergescubes": UnitCubicYard, "yd3": UnitCubicYard, "cuyd": UnitCubicYard,

	"forfait": UnitLumpSum, "forfaitaire": UnitLumpSum, "lot": UnitLumpSum, "global": UnitLumpSum,
	"ls": UnitLumpSum, "lumpsum": UnitLumpSum,

	"u": UnitEach, "un": UnitEach, "unite": UnitEach, "unites": UnitEach, "ch": UnitEach,
	"chaque": UnitEach, "ea": UnitEach, "each": UnitEach, "pce": UnitEach, "piece": UnitEach,
	"pieces": UnitEach, "unit": UnitEach, "units": UnitEach,

	"h": UnitHour, "hr": UnitHour, "hre": UnitHour, "hrs": UnitHour, "heure": UnitHour, "heures": UnitHour,
}

// Unit returns the canonical spelling of a unit of measure. Unknown units are
// returned compacted so equal spellings still compare equal.
func Unit(unit string) string {
	compact := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '.', '-', '_', '\'', '/':
			return -1
		}
		return r
	}, Key(unit))

	if canonical, ok := unitAliases[compact]; ok {
		return canonical
	}
	return compact
}
