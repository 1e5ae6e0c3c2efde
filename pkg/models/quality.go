package models

// QualityMetrics are derived from a TableDescriptor and never stored.
// Percentages are rounded half-up to two decimals.
type QualityMetrics struct {
	CompletenessPct   float64 `json:"completeness"`
	NullRatioPct      float64 `json:"null_ratio"`
	DuplicateKeyCount int64   `json:"duplicate_keys"`
}

// HasDuplicateKeys reports whether primary key integrity needs review.
func (m QualityMetrics) HasDuplicateKeys() bool {
	return m.DuplicateKeyCount > 0
}
