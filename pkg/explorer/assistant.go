package explorer

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/datadoc-engine/pkg/models"
)

const (
	// NoTableResponse is returned for every query while no table is selected.
	NoTableResponse = "Please select a table first."
	// FallbackResponse is returned when no rule keyword matches.
	FallbackResponse = "Ask about rows, duplicates, or null ratio."
)

// queryRule answers a query when its keyword appears in the lowercased input.
type queryRule struct {
	keyword string
	answer  func(metrics models.QualityMetrics, rowCount int64) string
}

// queryRules are evaluated top to bottom; the first match wins.
var queryRules = []queryRule{
	{
		keyword: "row",
		answer: func(_ models.QualityMetrics, rowCount int64) string {
			return fmt.Sprintf("%s rows available.", FormatCount(rowCount))
		},
	},
	{
		keyword: "duplicate",
		answer: func(m models.QualityMetrics, _ int64) string {
			return fmt.Sprintf("Duplicate keys: %d", m.DuplicateKeyCount)
		},
	},
	{
		keyword: "null",
		answer: func(m models.QualityMetrics, _ int64) string {
			return fmt.Sprintf("Null ratio: %s%%", FormatPercent(m.NullRatioPct))
		},
	},
}

// RespondToQuery answers a free-text assistant query about the selected table.
// A nil metrics value means no table is selected.
func RespondToQuery(query string, metrics *models.QualityMetrics, rowCount int64) string {
	if metrics == nil {
		return NoTableResponse
	}

	q := strings.ToLower(query)
	for _, rule := range queryRules {
		if strings.Contains(q, rule.keyword) {
			return rule.answer(*metrics, rowCount)
		}
	}
	return FallbackResponse
}
