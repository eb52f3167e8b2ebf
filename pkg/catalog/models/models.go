// Package models defines the persistent entities of the building catalogue.
package models

// AllModels returns all GORM models for auto-migration.
func AllModels() []any {
	return []any{
		&IfcFile{},
		&Building{},
	}
}
