package domain

import "math"

// AggregateOccupancy returns the representative occupancy percentage of a
// record: the rounded mean of its sub-units when it has any, otherwise its
// scalar rate truncated to an integer, otherwise 0.
//
// The result is not clamped to [0,100]; out-of-range feed values are kept for
// display and only the marker color clamps.
func AggregateOccupancy(rec SensorRecord) int {
	if rec.HasSubUnits() {
		return int(math.Round(mean(rec.OccupancySubUnits)))
	}
	if rec.OccupancyScalar != nil && !math.IsNaN(*rec.OccupancyScalar) {
		return int(*rec.OccupancyScalar)
	}
	return 0
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
