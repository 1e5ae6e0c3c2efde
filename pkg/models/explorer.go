package models

// SelectionState tracks the organization -> database -> table selection of one
// explorer session. Empty strings mean unset.
type SelectionState struct {
	Organization string `json:"organization,omitempty"`
	Database     string `json:"database,omitempty"`
	Table        string `json:"table,omitempty"`
}

// HasOrganization reports whether an organization is selected.
func (s SelectionState) HasOrganization() bool {
	return s.Organization != ""
}

// HasTable reports whether a table is selected.
func (s SelectionState) HasTable() bool {
	return s.Table != ""
}

// ExplorerSnapshot is a point-in-time copy of everything the explorer view renders.
type ExplorerSnapshot struct {
	Selection     SelectionState  `json:"selection"`
	Databases     []string        `json:"databases"`
	Tables        []string        `json:"tables"`
	Columns       []Column        `json:"columns,omitempty"`
	RowCount      int64           `json:"row_count"`
	LastUpdated   string          `json:"last_updated,omitempty"`
	Quality       *QualityMetrics `json:"quality,omitempty"`
	Documentation string          `json:"documentation,omitempty"`
	Messages      []ChatMessage   `json:"messages"`
}
