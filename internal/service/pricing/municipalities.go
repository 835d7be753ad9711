package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// OtherMunicipality marks a destination outside the fee table
const OtherMunicipality = "OTRO"

// municipalityFees фиксированная надбавка за муниципалитет (COP).
// Муниципалитеты вне таблицы требуют ручного расчёта цены
var municipalityFees = map[string]int64{
	"MEDELLIN":    0,
	"ENVIGADO":    10000,
	"ITAGUI":      10000,
	"SABANETA":    15000,
	"BELLO":       15000,
	"LA_ESTRELLA": 20000,
	"CALDAS":      25000,
	"COPACABANA":  25000,
	"GIRARDOTA":   30000,
	"GUARNE":      40000,
	"RIONEGRO":    60000,
	"MARINILLA":   60000,
	"EL_RETIRO":   60000,
	"LA_CEJA":     70000,
}

// NormalizeMunicipality приводит название к ключу таблицы ("La Estrella" -> "LA_ESTRELLA")
func NormalizeMunicipality(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	return strings.Join(strings.Fields(n), "_")
}

// MunicipalityFee возвращает надбавку и признак того, что муниципалитет известен
func MunicipalityFee(name string) (decimal.Decimal, bool) {
	key := NormalizeMunicipality(name)
	if key == OtherMunicipality {
		return decimal.Zero, false
	}
	fee, ok := municipalityFees[key]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(fee), true
}
