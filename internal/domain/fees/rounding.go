package fees

// Rate is a fee rate in basis points (1/100 of a percent): 0.25 == 2500 bp.
// Rates stay integral so rate application is pure integer math.
type Rate int64

const rateScale = 10000

// FromFloat converts a configured decimal rate (e.g. 0.15) to basis points.
func FromFloat(f float64) Rate {
	if f < 0 {
		return 0
	}
	return Rate(f*rateScale + 0.5)
}

// Apply multiplies an amount in minor units by the rate, rounding half to
// even. Banker's rounding keeps repeated rate application from drifting in
// one direction.
func (r Rate) Apply(amountCents int64) int64 {
	return roundHalfEvenDiv(amountCents*int64(r), rateScale)
}

// roundHalfEvenDiv divides p by q (q > 0) rounding half to even.
func roundHalfEvenDiv(p, q int64) int64 {
	neg := p < 0
	if neg {
		p = -p
	}

	quo := p / q
	rem := p % q

	switch {
	case rem*2 > q:
		quo++
	case rem*2 == q && quo%2 == 1:
		quo++
	}

	if neg {
		return -quo
	}
	return quo
}
