package models

import (
	"time"
)

// ModelFormat is the delivery format of an extracted 3D asset.
type ModelFormat string

const (
	ModelFormatGLB  ModelFormat = "glb"
	ModelFormatGLTF ModelFormat = "gltf"
)

// Valid reports whether f is a known model format.
func (f ModelFormat) Valid() bool {
	return f == ModelFormatGLB || f == ModelFormatGLTF
}

// Building is one geolocated structure extracted from an IFC file.
//
// Longitude/Latitude hold the WGS84 anchor in decimal degrees and are the
// read path for all queries. On PostgreSQL an additional
// location geography(Point,4326) column (created by migration, GiST-indexed)
// mirrors them for ST_Within bounding-box predicates; SQLite test databases
// fall back to plain range comparisons on the coordinate columns.
type Building struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	IfcFileID string `gorm:"not null;size:36;index" json:"ifc_file_id"`

	Name    *string `gorm:"size:255" json:"name,omitempty"`
	Address *string `gorm:"size:512" json:"address,omitempty"`
	City    *string `gorm:"size:255" json:"city,omitempty"`
	Country *string `gorm:"size:255" json:"country,omitempty"`

	Height     *float64 `json:"height,omitempty"` // metres
	FloorCount *int     `json:"floor_count,omitempty"`

	Longitude float64 `gorm:"not null;index:idx_buildings_lon_lat" json:"longitude"` // [-180, 180]
	Latitude  float64 `gorm:"not null;index:idx_buildings_lon_lat" json:"latitude"`  // [-90, 90]

	// Optional 3D asset metadata written by the extraction worker.
	ModelURL         *string      `gorm:"size:512" json:"model_url,omitempty"`
	ModelFormat      *ModelFormat `gorm:"size:10" json:"model_format,omitempty"`
	ModelSizeMB      *float64     `json:"model_size_mb,omitempty"`
	ModelGeneratedAt *time.Time   `json:"model_generated_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationship
	IfcFile IfcFile `gorm:"foreignKey:IfcFileID" json:"ifc_file,omitempty"`
}

// TableName returns the table name for Building.
func (Building) TableName() string {
	return "buildings"
}
