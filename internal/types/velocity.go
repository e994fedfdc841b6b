package types

// Velocity derivation parameters: the trend compares the mean of the most
// recent trendWindow samples against the overall mean, with a +/- trendBand
// dead zone so sampling noise reads as stable.
const (
	trendWindow = 3
	trendBand   = 0.05
)

// DeriveVelocity builds a VelocityHistory from raw per-cycle point samples,
// oldest first. Confidence grades on sample depth (>=6 high, >=3 medium,
// otherwise low). An empty sample set yields a zero history with low
// confidence, which downstream reads as exhausted capacity.
func DeriveVelocity(samples []float64, cycleDays int) VelocityHistory {
	if cycleDays <= 0 {
		cycleDays = DefaultCycleDays
	}

	h := VelocityHistory{
		Samples:    samples,
		Trend:      TrendStable,
		Confidence: ConfidenceLow,
	}
	if len(samples) == 0 {
		return h
	}

	var sum float64
	for _, s := range samples {
		sum += s
	}
	mean := sum / float64(len(samples))
	h.AvgPerDay = mean / float64(cycleDays)

	switch {
	case len(samples) >= 6:
		h.Confidence = ConfidenceHigh
	case len(samples) >= 3:
		h.Confidence = ConfidenceMedium
	}

	window := trendWindow
	if window > len(samples) {
		window = len(samples)
	}
	var recent float64
	for _, s := range samples[len(samples)-window:] {
		recent += s
	}
	recent /= float64(window)

	switch {
	case mean > 0 && recent > mean*(1+trendBand):
		h.Trend = TrendIncreasing
	case mean > 0 && recent < mean*(1-trendBand):
		h.Trend = TrendDecreasing
	}

	return h
}
