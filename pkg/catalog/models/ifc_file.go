package models

import (
	"time"
)

// UploadStatus tracks the object-storage lifecycle of an IFC file.
type UploadStatus string

const (
	// UploadPending means a presigned URL was issued but the upload has not
	// been confirmed yet.
	UploadPending UploadStatus = "pending"

	// UploadCompleted means the client confirmed the upload and the object
	// was verified to exist in storage.
	UploadCompleted UploadStatus = "completed"

	// UploadDeleted is terminal: the record was swept by the replacement
	// policy or removed by a cascade delete. No further transitions happen.
	UploadDeleted UploadStatus = "deleted"
)

// ProcessingStatus tracks the extraction pipeline state of an IFC file.
// It only ever advances along not_started -> processing -> (completed | failed).
type ProcessingStatus string

const (
	ProcessingNotStarted ProcessingStatus = "not_started"
	ProcessingActive     ProcessingStatus = "processing"
	ProcessingCompleted  ProcessingStatus = "completed"
	ProcessingFailed     ProcessingStatus = "failed"
)

// CanAdvanceTo reports whether the monotonic processing chain allows moving
// from s to next.
func (s ProcessingStatus) CanAdvanceTo(next ProcessingStatus) bool {
	switch s {
	case ProcessingNotStarted:
		return next == ProcessingActive
	case ProcessingActive:
		return next == ProcessingCompleted || next == ProcessingFailed
	default:
		return false
	}
}

// IfcFile records one upload attempt of an IFC model file.
//
// A row is born (pending, not_started) when a presigned URL is issued and
// transitions to (completed, processing) when the client confirms the upload.
// Rows marked deleted are terminal. A pending row older than the presign TTL
// is implicitly abandoned and eligible for sweeping.
type IfcFile struct {
	ID               string           `gorm:"primaryKey;size:36" json:"id"`
	FileName         string           `gorm:"not null;size:255" json:"file_name"`
	FileSize         int64            `gorm:"not null" json:"file_size"`
	S3Key            string           `gorm:"uniqueIndex;not null;size:512" json:"s3_key"`
	UploadStatus     UploadStatus     `gorm:"not null;default:pending;size:20;index" json:"upload_status"`
	ProcessingStatus ProcessingStatus `gorm:"not null;default:not_started;size:20" json:"processing_status"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	UploadedAt       *time.Time       `json:"uploaded_at,omitempty"`
}

// TableName returns the table name for IfcFile.
func (IfcFile) TableName() string {
	return "ifc_files"
}
