package explorer

import (
	"math"

	"github.com/ekaya-inc/datadoc-engine/pkg/models"
)

// ComputeMetrics derives data-quality metrics from a table descriptor.
// A descriptor with no recorded values yields 0% for both percentages.
func ComputeMetrics(d models.TableDescriptor) models.QualityMetrics {
	metrics := models.QualityMetrics{DuplicateKeyCount: d.DuplicateKeyCount}
	if d.TotalValues <= 0 {
		return metrics
	}

	total := float64(d.TotalValues)
	nulls := float64(d.NullValues)
	metrics.CompletenessPct = roundHalfUp(100*(total-nulls)/total, 2)
	metrics.NullRatioPct = roundHalfUp(100*nulls/total, 2)
	return metrics
}

// roundHalfUp rounds a non-negative v half-up to the given number of decimal places.
// The epsilon absorbs representation error such as 0.125 stored as 0.12499999.
func roundHalfUp(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Floor(v*scale+0.5+1e-9) / scale
}
