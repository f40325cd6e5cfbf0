package annotate

import (
	"math"
	"strconv"

	"github.com/WessleyAI/gridlink/engine/domain"
)

// VoltageColor grades a bus voltage magnitude in per-unit, rounded to two
// decimals: [0.95, 1.05] is good, [0.90, 0.95) and (1.05, 1.10) warn,
// anything else is danger.
func VoltageColor(vm float64) string {
	n := math.Round(vm * 100)
	switch {
	case n < 90 || n >= 110:
		return domain.ColorDanger
	case n < 95 || n > 105:
		return domain.ColorWarning
	}
	return domain.ColorGood
}

// LoadingColor grades a branch loading in percent, rounded to one decimal.
// Zero or negative loading is not colored.
func LoadingColor(pct float64) string {
	n := math.Round(pct * 10)
	switch {
	case n > 1000:
		return domain.ColorDanger
	case n > 800:
		return domain.ColorWarning
	case n > 0:
		return domain.ColorGood
	}
	return ""
}

// Format renders v with prec decimals, "n/a" for nil.
func Format(v *float64, prec int) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}
