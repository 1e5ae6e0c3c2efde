// Package fixtures holds the static catalog and organization list served by the
// explorer. Fixtures are loaded once at startup and are read-only afterwards.
package fixtures

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/datadoc-engine/pkg/apperrors"
	"github.com/ekaya-inc/datadoc-engine/pkg/models"
)

//go:embed default.yaml
var defaultFixtures []byte

// fixtureFile is the on-disk YAML layout.
type fixtureFile struct {
	Databases     []models.Database            `yaml:"databases"`
	Organizations []models.OrganizationProfile `yaml:"organizations"`
}

// Store provides read-only access to the fixture catalog.
type Store struct {
	catalog       *models.DatabaseCatalog
	organizations []models.OrganizationProfile
}

// Default returns the store built from the embedded fixtures.
func Default() (*Store, error) {
	return Parse(defaultFixtures)
}

// Load reads fixtures from path. An empty path loads the embedded defaults.
func Load(path string) (*Store, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures file: %w", err)
	}
	return Parse(data)
}

// Parse builds a store from YAML and validates it.
func Parse(data []byte) (*Store, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}

	s := &Store{
		catalog:       &models.DatabaseCatalog{Databases: file.Databases},
		organizations: file.Organizations,
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Catalog returns the static database catalog.
func (s *Store) Catalog() *models.DatabaseCatalog {
	return s.catalog
}

// Organizations returns the organization list in fixture order.
func (s *Store) Organizations() []models.OrganizationProfile {
	out := make([]models.OrganizationProfile, len(s.organizations))
	copy(out, s.organizations)
	return out
}

// Organization looks up an organization by name.
func (s *Store) Organization(name string) (models.OrganizationProfile, bool) {
	for _, org := range s.organizations {
		if org.Name == name {
			return org, true
		}
	}
	return models.OrganizationProfile{}, false
}

func (s *Store) validate() error {
	seenDB := make(map[string]bool, len(s.catalog.Databases))
	for _, db := range s.catalog.Databases {
		if db.Name == "" {
			return fmt.Errorf("%w: database without a name", apperrors.ErrInvalidFixture)
		}
		if seenDB[db.Name] {
			return fmt.Errorf("%w: duplicate database %q", apperrors.ErrInvalidFixture, db.Name)
		}
		seenDB[db.Name] = true

		seenTable := make(map[string]bool, len(db.Tables))
		for _, t := range db.Tables {
			if t.Name == "" {
				return fmt.Errorf("%w: table without a name in %q", apperrors.ErrInvalidFixture, db.Name)
			}
			if seenTable[t.Name] {
				return fmt.Errorf("%w: duplicate table %q in %q", apperrors.ErrInvalidFixture, t.Name, db.Name)
			}
			seenTable[t.Name] = true

			if err := validateDescriptor(t.Descriptor); err != nil {
				return fmt.Errorf("%w: %s.%s: %s", apperrors.ErrInvalidFixture, db.Name, t.Name, err)
			}
		}
	}

	for _, org := range s.organizations {
		if org.Name == "" {
			return fmt.Errorf("%w: organization without a name", apperrors.ErrInvalidFixture)
		}
		if !seenDB[org.DefaultDatabase] {
			return fmt.Errorf("%w: organization %q references unknown database %q",
				apperrors.ErrInvalidFixture, org.Name, org.DefaultDatabase)
		}
		if org.HealthScore < 0 || org.HealthScore > 100 {
			return fmt.Errorf("%w: organization %q health score %d out of range",
				apperrors.ErrInvalidFixture, org.Name, org.HealthScore)
		}
	}
	return nil
}

func validateDescriptor(d models.TableDescriptor) error {
	if d.RowCount < 0 || d.NullValues < 0 || d.TotalValues < 0 || d.DuplicateKeyCount < 0 {
		return fmt.Errorf("negative count")
	}
	if d.NullValues > d.TotalValues {
		return fmt.Errorf("null values %d exceed total values %d", d.NullValues, d.TotalValues)
	}
	for _, c := range d.Columns {
		if !models.IsValidKeyRole(c.Key) {
			return fmt.Errorf("column %q has invalid key role %q", c.Name, c.Key)
		}
	}
	return nil
}
