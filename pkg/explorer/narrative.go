package explorer

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ekaya-inc/datadoc-engine/pkg/models"
)

// usageRecommendations is the fixed bullet list rendered in every table document.
var usageRecommendations = []string{
	"Join with related tables for KPI dashboards",
	"Use created_at for growth analysis",
	"Monitor status distribution trends",
}

// GenerateDocumentation renders the documentation text for a table.
// Output depends only on the arguments.
func GenerateDocumentation(org, tableName string, metrics models.QualityMetrics, rowCount int64) string {
	var b strings.Builder

	fmt.Fprintf(&b, "AI Documentation for %s:\n", tableName)
	b.WriteString("\n")

	b.WriteString("• Business Context:\n")
	fmt.Fprintf(&b, "  Core entity table used in %s workflows.\n", org)
	fmt.Fprintf(&b, "  Each record represents one %s.\n", entityName(tableName))
	b.WriteString("\n")

	b.WriteString("• Usage Recommendations:\n")
	for _, rec := range usageRecommendations {
		fmt.Fprintf(&b, "  - %s\n", rec)
	}
	b.WriteString("\n")

	b.WriteString("• Data Quality Notes:\n")
	fmt.Fprintf(&b, "  Records: %s\n", FormatCount(rowCount))
	fmt.Fprintf(&b, "  Completeness: %s%%\n", FormatPercent(metrics.CompletenessPct))
	fmt.Fprintf(&b, "  Null Ratio: %s%%\n", FormatPercent(metrics.NullRatioPct))
	fmt.Fprintf(&b, "  Duplicate Keys: %d\n", metrics.DuplicateKeyCount)

	return b.String()
}

// GenerateSummary renders the short business summary included in exports.
func GenerateSummary(org, tableName string, metrics models.QualityMetrics, rowCount int64) string {
	integrity := "healthy"
	if metrics.HasDuplicateKeys() {
		integrity = "needs review"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The %s table contains %s records.\n", tableName, FormatCount(rowCount))
	fmt.Fprintf(&b, "It supports operational and analytical reporting within %s.\n", org)
	fmt.Fprintf(&b, "Primary key integrity is %s.\n", integrity)
	b.WriteString("Recommended joins: related transactional and reference tables.\n")
	return b.String()
}

// FormatCount renders n with English thousands separators, e.g. 12500 as "12,500".
func FormatCount(n int64) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

// FormatPercent renders a rounded percentage with exactly two decimals.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.2f", p)
}

// entityName turns a table name into the singular noun for one of its rows.
func entityName(tableName string) string {
	return strings.ReplaceAll(inflection.Singular(tableName), "_", " ")
}
