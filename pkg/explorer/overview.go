package explorer

import (
	"math"

	"github.com/ekaya-inc/datadoc-engine/pkg/models"
)

// ComputeOverview derives the dashboard totals from the fixtures.
func ComputeOverview(catalog *models.DatabaseCatalog, orgs []models.OrganizationProfile) models.OverviewStats {
	stats := models.OverviewStats{TotalOrganizations: len(orgs)}
	if catalog != nil {
		stats.TotalDatabases = len(catalog.Databases)
		stats.TotalTables = catalog.TableCount()
	}
	if len(orgs) == 0 {
		return stats
	}

	sum := 0
	for _, org := range orgs {
		sum += org.HealthScore
	}
	stats.AvgHealthScore = int(math.Round(float64(sum) / float64(len(orgs))))
	return stats
}
