package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/geobim/geobim/pkg/catalog/models"
	"github.com/geobim/geobim/pkg/geo"
)

// ListBuildingsQuery describes a catalogue listing.
type ListBuildingsQuery struct {
	// BBox restricts results to a bounding box; nil disables the spatial
	// predicate entirely.
	BBox *geo.BBox

	// Limit caps the number of rows (1..1000).
	Limit int

	// Cursor resumes after the given building ID (strictly greater than,
	// ascending ID order). Empty starts from the beginning.
	Cursor string
}

// ListBuildings returns catalogue rows ordered by ascending ID.
//
// On PostgreSQL the bounding box is answered by the GiST-indexed PostGIS
// location column; the SQLite backend compares the coordinate columns, which
// is equivalent for point geometries.
func (s *Store) ListBuildings(ctx context.Context, q ListBuildingsQuery) ([]models.Building, error) {
	db := s.db.WithContext(ctx).Model(&models.Building{})

	if q.BBox != nil {
		if s.postgres {
			db = db.Where(
				"ST_Within(location::geometry, ST_MakeEnvelope(?, ?, ?, ?, 4326))",
				q.BBox.MinLon, q.BBox.MinLat, q.BBox.MaxLon, q.BBox.MaxLat,
			)
		} else {
			db = db.Where(
				"longitude >= ? AND longitude <= ? AND latitude >= ? AND latitude <= ?",
				q.BBox.MinLon, q.BBox.MaxLon, q.BBox.MinLat, q.BBox.MaxLat,
			)
		}
	}
	if q.Cursor != "" {
		db = db.Where("id > ?", q.Cursor)
	}

	var buildings []models.Building
	if err := db.Order("id ASC").Limit(q.Limit).Find(&buildings).Error; err != nil {
		return nil, fmt.Errorf("failed to list buildings: %w", err)
	}
	return buildings, nil
}

// GetBuilding loads a building by ID.
func (s *Store) GetBuilding(ctx context.Context, id string) (*models.Building, error) {
	var b models.Building
	if err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrBuildingNotFound)
	}
	return &b, nil
}

// CreateBuilding inserts a building row. On PostgreSQL the PostGIS location
// column is populated from the coordinates in the same transaction.
func (s *Store) CreateBuilding(ctx context.Context, b *models.Building) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(b).Error; err != nil {
			return fmt.Errorf("failed to create building: %w", err)
		}
		if s.postgres {
			if err := tx.Exec(
				"UPDATE buildings SET location = ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography WHERE id = ?",
				b.Longitude, b.Latitude, b.ID,
			).Error; err != nil {
				return fmt.Errorf("failed to set building location: %w", err)
			}
		}
		return nil
	})
}

// DeleteBuildingCascade removes a building and marks its linked IFC file
// record deleted, returning the object-storage keys the caller should remove.
//
// Object deletion is intentionally outside the transaction: storage DELETEs
// are best-effort compensating actions and must not roll back the row
// removal.
func (s *Store) DeleteBuildingCascade(ctx context.Context, id string) ([]string, error) {
	var keys []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var b models.Building
		if err := tx.First(&b, "id = ?", id).Error; err != nil {
			return convertNotFoundError(err, models.ErrBuildingNotFound)
		}

		if err := tx.Delete(&models.Building{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete building: %w", err)
		}

		if b.IfcFileID != "" {
			var file models.IfcFile
			err := tx.First(&file, "id = ?", b.IfcFileID).Error
			switch {
			case err == nil:
				if file.UploadStatus != models.UploadDeleted {
					if err := tx.Model(&file).
						Update("upload_status", models.UploadDeleted).Error; err != nil {
						return fmt.Errorf("failed to mark ifc file deleted: %w", err)
					}
				}
				keys = append(keys, file.S3Key)
			case convertNotFoundError(err, models.ErrIfcFileNotFound) == models.ErrIfcFileNotFound:
				// Building without a surviving file record; nothing to sweep.
			default:
				return fmt.Errorf("failed to load linked ifc file: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}
