package rules

// Rand is the random source the simulation draws from. *math/rand.Rand
// satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// WeightedIndex maps a uniform roll in [0,1) onto weights, returning the
// chosen index or -1 when no weight is positive.
func WeightedIndex(weights []float64, roll float64) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	target := roll * total
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		if target < w {
			return i
		}
		target -= w
	}
	return last
}

// RandRange returns a value in [min, max] rounded down to a whole number.
func RandRange(r Rand, min, max float64) float64 {
	if max <= min {
		return min
	}
	span := int(max-min) + 1
	return min + float64(r.Intn(span))
}
