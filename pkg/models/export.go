package models

// ExportContentType is the media type of a serialized ExportDocument.
const ExportContentType = "application/json"

// ExportDocument is the one-shot JSON document produced by the explorer export.
type ExportDocument struct {
	Organization string         `json:"organization"`
	Database     string         `json:"database"`
	Table        string         `json:"table"`
	Columns      []Column       `json:"columns"`
	Quality      QualityMetrics `json:"quality"`
	Summary      string         `json:"summary"`
	Docs         string         `json:"docs"`
}
