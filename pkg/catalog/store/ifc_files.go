package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/geobim/geobim/pkg/catalog/models"
)

// CreateIfcFile inserts a new upload record, optionally sweeping every
// previously non-deleted record first (single-file replacement policy).
//
// Sweep and insert run in one transaction so the fresh row can never be
// caught by its own sweep. The returned slice holds the object-storage keys
// of the swept records; deleting those objects is the caller's (best-effort)
// responsibility after commit.
func (s *Store) CreateIfcFile(ctx context.Context, file *models.IfcFile, sweep bool) ([]string, error) {
	var sweptKeys []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if sweep {
			if err := tx.Model(&models.IfcFile{}).
				Where("upload_status <> ?", models.UploadDeleted).
				Pluck("s3_key", &sweptKeys).Error; err != nil {
				return fmt.Errorf("failed to list active uploads: %w", err)
			}
			if len(sweptKeys) > 0 {
				if err := tx.Model(&models.IfcFile{}).
					Where("upload_status <> ?", models.UploadDeleted).
					Update("upload_status", models.UploadDeleted).Error; err != nil {
					return fmt.Errorf("failed to sweep previous uploads: %w", err)
				}
			}
		}

		if err := tx.Create(file).Error; err != nil {
			if isUniqueConstraintError(err) {
				return models.ErrDuplicateS3Key
			}
			return fmt.Errorf("failed to create ifc file record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sweptKeys, nil
}

// GetIfcFile loads an upload record by ID.
func (s *Store) GetIfcFile(ctx context.Context, id string) (*models.IfcFile, error) {
	var file models.IfcFile
	if err := s.db.WithContext(ctx).First(&file, "id = ?", id).Error; err != nil {
		return nil, convertNotFoundError(err, models.ErrIfcFileNotFound)
	}
	return &file, nil
}

// CompleteIfcFile transitions a pending record to (completed, processing)
// and stamps uploaded_at.
//
// The returned bool reports whether the record had already left not_started:
// in that case no state is changed and the row is returned as-is, letting the
// caller answer idempotently without dispatching a second extraction task.
// Deleted records are terminal and yield ErrIfcFileDeleted.
func (s *Store) CompleteIfcFile(ctx context.Context, id string) (*models.IfcFile, bool, error) {
	var file models.IfcFile
	var already bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if s.postgres {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.First(&file, "id = ?", id).Error; err != nil {
			return convertNotFoundError(err, models.ErrIfcFileNotFound)
		}

		if file.UploadStatus == models.UploadDeleted {
			return models.ErrIfcFileDeleted
		}
		if file.ProcessingStatus != models.ProcessingNotStarted {
			already = true
			return nil
		}

		now := time.Now().UTC()
		file.UploadStatus = models.UploadCompleted
		file.ProcessingStatus = models.ProcessingActive
		file.UploadedAt = &now

		if err := tx.Model(&file).Updates(map[string]any{
			"upload_status":     file.UploadStatus,
			"processing_status": file.ProcessingStatus,
			"uploaded_at":       file.UploadedAt,
		}).Error; err != nil {
			return fmt.Errorf("failed to mark upload completed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return &file, already, nil
}

// SweepAbandonedUploads marks pending records older than ttl as deleted and
// returns their object-storage keys. A pending row past the presign TTL can
// never be completed and only wastes bucket space.
func (s *Store) SweepAbandonedUploads(ctx context.Context, ttl time.Duration) ([]string, error) {
	cutoff := time.Now().UTC().Add(-ttl)
	var keys []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.IfcFile{}).
			Where("upload_status = ? AND created_at < ?", models.UploadPending, cutoff).
			Pluck("s3_key", &keys).Error; err != nil {
			return fmt.Errorf("failed to list abandoned uploads: %w", err)
		}
		if len(keys) == 0 {
			return nil
		}
		if err := tx.Model(&models.IfcFile{}).
			Where("upload_status = ? AND created_at < ?", models.UploadPending, cutoff).
			Update("upload_status", models.UploadDeleted).Error; err != nil {
			return fmt.Errorf("failed to sweep abandoned uploads: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return keys, nil
}
