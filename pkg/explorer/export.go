package explorer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ekaya-inc/datadoc-engine/pkg/models"
)

// FileSaver delivers a serialized export to the user, e.g. as a browser download
// or a file on disk.
type FileSaver interface {
	Save(filename, contentType string, data []byte) error
}

// BuildExportPayload assembles the export document for a table.
func BuildExportPayload(org, db, tableName string, descriptor models.TableDescriptor, metrics models.QualityMetrics) models.ExportDocument {
	return models.ExportDocument{
		Organization: org,
		Database:     db,
		Table:        tableName,
		Columns:      append([]models.Column{}, descriptor.Columns...),
		Quality:      metrics,
		Summary:      GenerateSummary(org, tableName, metrics, descriptor.RowCount),
		Docs:         GenerateDocumentation(org, tableName, metrics, descriptor.RowCount),
	}
}

// MarshalExport serializes a document as indented JSON.
func MarshalExport(doc *models.ExportDocument) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return data, nil
}

// DefaultExportFilename is the download name used when the caller gives none.
func DefaultExportFilename(tableName string) string {
	return tableName + ".json"
}

// ExportAsFile serializes doc and hands it to saver. A nil doc (no table
// selected) is a no-op: it reports false and never calls saver.
func ExportAsFile(doc *models.ExportDocument, filename string, saver FileSaver) (bool, error) {
	if doc == nil {
		return false, nil
	}
	if filename == "" {
		filename = DefaultExportFilename(doc.Table)
	}

	data, err := MarshalExport(doc)
	if err != nil {
		return false, err
	}
	if err := saver.Save(filename, models.ExportContentType, data); err != nil {
		return false, fmt.Errorf("failed to save export %q: %w", filename, err)
	}
	return true, nil
}

// DirSaver writes exports into a directory.
type DirSaver struct {
	Dir string
}

// Path returns where Save writes filename. Only the base name of filename is used.
func (d DirSaver) Path(filename string) string {
	return filepath.Join(d.Dir, filepath.Base(filename))
}

// Save writes data to Path(filename), creating Dir if needed.
func (d DirSaver) Save(filename, _ string, data []byte) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(d.Path(filename), data, 0o644)
}

var _ FileSaver = DirSaver{}
