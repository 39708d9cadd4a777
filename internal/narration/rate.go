package narration

// rateSteps are the user-facing base rate presets.
var rateSteps = []float64{
	0.5,
	0.75,
	1.0,
	1.25,
	1.5,
	1.75,
	2.0,
}

// FasterRate returns the next preset above rate, or the maximum.
func FasterRate(rate float64) float64 {
	for _, r := range rateSteps {
		if r > rate+1e-9 {
			return r
		}
	}
	return rateSteps[len(rateSteps)-1]
}

// SlowerRate returns the next preset below rate, or the minimum.
func SlowerRate(rate float64) float64 {
	for i := len(rateSteps) - 1; i >= 0; i-- {
		if rateSteps[i] < rate-1e-9 {
			return rateSteps[i]
		}
	}
	return rateSteps[0]
}

// ClampRate bounds a user-supplied base rate.
func ClampRate(rate float64) float64 {
	if rate == 0 {
		return 1
	}
	return clamp(rate, MinRate, MaxRate)
}
