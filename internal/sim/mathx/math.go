package mathx

// Mod returns a mod b in [0, b). b > 0.
func Mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// SeedFor derives the seed of replicate run from a base seed.
// Run 0 keeps the base seed so a single run is reproducible from the flag value.
func SeedFor(base int64, run int) int64 {
	if run == 0 {
		return base
	}
	v := uint64(base) ^ (uint64(uint32(int32(run))) * 0x9e3779b97f4a7c15)
	return int64(mix64(v) >> 1)
}
