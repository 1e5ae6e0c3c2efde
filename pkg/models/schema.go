package models

// KeyRole marks whether a column participates in a key.
type KeyRole string

const (
	KeyRoleNone    KeyRole = ""
	KeyRolePrimary KeyRole = "PK"
	KeyRoleForeign KeyRole = "FK"
)

// ValidKeyRoles contains all valid key role values.
var ValidKeyRoles = []KeyRole{
	KeyRoleNone,
	KeyRolePrimary,
	KeyRoleForeign,
}

// IsValidKeyRole checks if the given key role is valid.
func IsValidKeyRole(k KeyRole) bool {
	for _, v := range ValidKeyRoles {
		if v == k {
			return true
		}
	}
	return false
}

// Column describes one column of a fixture table.
type Column struct {
	Name     string  `json:"name" yaml:"name"`
	Type     string  `json:"type" yaml:"type"`
	Key      KeyRole `json:"key" yaml:"key"`
	Nullable bool    `json:"nullable" yaml:"nullable"`
}

// TableDescriptor is the metadata record describing a table's shape and its
// fixture-derived statistics. Descriptors are never mutated after load.
type TableDescriptor struct {
	Columns           []Column `json:"columns" yaml:"columns"`
	RowCount          int64    `json:"row_count" yaml:"row_count"`
	NullValues        int64    `json:"null_values" yaml:"null_values"`
	TotalValues       int64    `json:"total_values" yaml:"total_values"`
	DuplicateKeyCount int64    `json:"duplicate_keys" yaml:"duplicate_keys"`
	LastUpdated       string   `json:"last_updated,omitempty" yaml:"last_updated"`
}

// Table is a named descriptor inside a database.
type Table struct {
	Name       string          `json:"name" yaml:"name"`
	Descriptor TableDescriptor `json:"descriptor" yaml:",inline"`
}

// Database is an ordered set of tables. Order is the fixture order and decides
// which table is selected by default.
type Database struct {
	Name   string  `json:"name" yaml:"name"`
	Tables []Table `json:"tables" yaml:"tables"`
}

// Table returns the descriptor for the named table.
func (d *Database) Table(name string) (*TableDescriptor, bool) {
	for i := range d.Tables {
		if d.Tables[i].Name == name {
			return &d.Tables[i].Descriptor, true
		}
	}
	return nil, false
}

// FirstTable returns the name of the first table, or "" if the database is empty.
func (d *Database) FirstTable() string {
	if len(d.Tables) == 0 {
		return ""
	}
	return d.Tables[0].Name
}

// TableNames returns table names in fixture order.
func (d *Database) TableNames() []string {
	names := make([]string, 0, len(d.Tables))
	for _, t := range d.Tables {
		names = append(names, t.Name)
	}
	return names
}

// DatabaseCatalog maps database names to their tables.
type DatabaseCatalog struct {
	Databases []Database `json:"databases" yaml:"databases"`
}

// Database returns the named database.
func (c *DatabaseCatalog) Database(name string) (*Database, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Databases {
		if c.Databases[i].Name == name {
			return &c.Databases[i], true
		}
	}
	return nil, false
}

// DatabaseNames returns database names in fixture order.
func (c *DatabaseCatalog) DatabaseNames() []string {
	names := make([]string, 0, len(c.Databases))
	for _, db := range c.Databases {
		names = append(names, db.Name)
	}
	return names
}

// TableCount returns the number of tables across all databases.
func (c *DatabaseCatalog) TableCount() int {
	n := 0
	for _, db := range c.Databases {
		n += len(db.Tables)
	}
	return n
}
