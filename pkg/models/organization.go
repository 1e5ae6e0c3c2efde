package models

// OrganizationProfile is a connected organization shown on the overview page.
type OrganizationProfile struct {
	Name            string `json:"name" yaml:"name"`
	DefaultDatabase string `json:"default_database" yaml:"default_database"`
	TableCount      int    `json:"table_count" yaml:"table_count"`
	LastSync        string `json:"last_sync" yaml:"last_sync"`
	HealthScore     int    `json:"health_score" yaml:"health_score"` // 0-100
}

// OverviewStats are the global totals shown above the organization cards.
type OverviewStats struct {
	TotalOrganizations int `json:"total_organizations"`
	TotalDatabases     int `json:"total_databases"`
	TotalTables        int `json:"total_tables"`
	AvgHealthScore     int `json:"avg_health_score"`
}
