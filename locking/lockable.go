package locking

import "fmt"

// Lockable describes the table an entity lives in.
type Lockable struct {
	EntityName    string
	Table         string
	IDColumn      string
	VersionColumn string // empty for unversioned entities
}

// Versioned reports whether the entity has a version column.
func (l Lockable) Versioned() bool { return l.VersionColumn != "" }

func (l Lockable) validate() error {
	switch {
	case l.Table == "":
		return fmt.Errorf("locking: %q: table is required", l.EntityName)
	case l.IDColumn == "":
		return fmt.Errorf("locking: %q: id column is required", l.EntityName)
	}
	return nil
}

func (l Lockable) name() string {
	if l.EntityName != "" {
		return l.EntityName
	}
	return l.Table
}
