package cmd

import (
	"math"

	"github.com/ensemble-sim/ensemble-sim/comms"
)

// SixHumpCamel evaluates the six-hump camel test objective over fields
// x0, x1 and reports the value as field "f". Its global minima sit near
// (0.0898, -0.7126) and (-0.0898, 0.7126) with value about -1.0316.
func SixHumpCamel(in comms.Record) (comms.Record, error) {
	x, y := in["x0"], in["x1"]
	term1 := (4 - 2.1*x*x + math.Pow(x, 4)/3) * x * x
	term2 := x * y
	term3 := (-4 + 4*y*y) * y * y
	return comms.Record{"f": term1 + term2 + term3}, nil
}
