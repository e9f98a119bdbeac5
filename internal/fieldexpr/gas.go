package fieldexpr

import (
	"fmt"
	"math"
)

// Breathing gas fractions within this tolerance of air count as air.
const gasTolerance = 0.005

// GasName renders the conventional short label for a breathing gas
// mix: "AIR" for 21% oxygen without helium, "EANxx" for other
// helium-free nitrox mixes, and "xx/yy" for trimix.
func GasName(fractionO2, fractionHe float64) string {
	o2 := int(math.Round(fractionO2 * 100))
	he := int(math.Round(fractionHe * 100))
	if math.Abs(fractionHe) < gasTolerance {
		if math.Abs(fractionO2-0.21) < gasTolerance {
			return "AIR"
		}
		return fmt.Sprintf("EAN%02d", o2)
	}
	return fmt.Sprintf("%02d/%02d", o2, he)
}
