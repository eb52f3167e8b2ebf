package logger

// Standard field keys for structured logging. Use these consistently across
// log statements so that aggregated logs can be queried by field.
const (
	// HTTP request handling
	KeyRequestID = "request_id" // chi request ID for correlation
	KeyMethod    = "method"     // HTTP method
	KeyPath      = "path"       // request path
	KeyStatus    = "status"     // response status code
	KeyRemote    = "remote_addr"
	KeyDuration  = "duration"

	// Ingestion pipeline
	KeyFileID   = "file_id"   // IFC file record UUID
	KeyFileName = "file_name" // uploaded file name
	KeyFileSize = "file_size" // declared size in bytes
	KeyS3Key    = "s3_key"    // object storage key
	KeyTaskID   = "task_id"   // extraction task UUID
	KeyTaskName = "task_name" // worker task name

	// Catalogue
	KeyBuildingID = "building_id"
	KeyBBox       = "bbox"
	KeyCount      = "count"

	// Infrastructure
	KeyBucket = "bucket"
	KeyQueue  = "queue"
	KeyError  = "error"
)
