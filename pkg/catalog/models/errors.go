package models

import "errors"

// Common errors for catalogue operations.
var (
	// IFC file errors
	ErrIfcFileNotFound = errors.New("ifc file not found")
	ErrDuplicateS3Key  = errors.New("s3 key already exists")
	ErrIfcFileDeleted  = errors.New("ifc file is deleted")

	// Building errors
	ErrBuildingNotFound = errors.New("building not found")
)
