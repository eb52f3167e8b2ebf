package handlers

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/geobim/geobim/internal/logger"
	"github.com/geobim/geobim/pkg/broker/celery"
	"github.com/geobim/geobim/pkg/catalog/models"
	"github.com/geobim/geobim/pkg/metrics"
	"github.com/geobim/geobim/pkg/storage/s3"
)

// UploadConfig contains upload-orchestration configuration.
type UploadConfig struct {
	// MaxFileSizeMB is the largest accepted IFC file in MiB. Default: 100
	MaxFileSizeMB int64 `mapstructure:"max_file_size_mb" validate:"omitempty,min=1" yaml:"max_file_size_mb"`

	// SingleFileMode sweeps all prior uploads when a new presigned URL is
	// issued, keeping the catalogue at one model. Default: true
	SingleFileMode *bool `mapstructure:"single_file_mode" yaml:"single_file_mode"`
}

// ApplyDefaults fills in missing configuration with default values.
func (c *UploadConfig) ApplyDefaults() {
	if c.MaxFileSizeMB == 0 {
		c.MaxFileSizeMB = 100
	}
	if c.SingleFileMode == nil {
		enabled := true
		c.SingleFileMode = &enabled
	}
}

// allowedContentTypes are the MIME types IFC files arrive under.
var allowedContentTypes = map[string]bool{
	"application/x-step": true,
	"application/ifc":    true,
	"text/plain":         true,
}

var mimePattern = regexp.MustCompile(`^[\w-]+/[\w-+.]+$`)

// UploadStore is the slice of the catalogue store the orchestrator needs.
type UploadStore interface {
	CreateIfcFile(ctx context.Context, file *models.IfcFile, sweep bool) ([]string, error)
	GetIfcFile(ctx context.Context, id string) (*models.IfcFile, error)
	CompleteIfcFile(ctx context.Context, id string) (*models.IfcFile, bool, error)
}

// ObjectStorage is the object-store contract the orchestrator consumes.
type ObjectStorage interface {
	PresignPut(ctx context.Context, key, contentType string) (*s3.PresignedUpload, error)
	Head(ctx context.Context, key string) (*s3.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// TaskDispatcher hands completed uploads to the worker fleet.
type TaskDispatcher interface {
	Dispatch(ctx context.Context, taskName string, args ...any) (string, error)
	GetResult(ctx context.Context, taskID string) (*celery.TaskResult, error)
}

// UploadHandler mediates the three-step upload protocol: presign, direct PUT
// by the browser, completion confirmation. The server never touches the file
// bytes.
type UploadHandler struct {
	store     UploadStore
	storage   ObjectStorage
	broker    TaskDispatcher
	config    UploadConfig
	ingestion *metrics.IngestionMetrics
	validate  *validator.Validate
}

// NewUploadHandler creates the upload orchestrator handler.
func NewUploadHandler(store UploadStore, storage ObjectStorage, broker TaskDispatcher, config UploadConfig, ingestion *metrics.IngestionMetrics) *UploadHandler {
	config.ApplyDefaults()
	return &UploadHandler{
		store:     store,
		storage:   storage,
		broker:    broker,
		config:    config,
		ingestion: ingestion,
		validate:  validator.New(),
	}
}

type uploadRequest struct {
	FileName    string `json:"fileName" validate:"required,min=1,max=255"`
	FileSize    int64  `json:"fileSize" validate:"required,gt=0"`
	ContentType string `json:"contentType" validate:"required"`
}

type uploadRequestResponse struct {
	FileID       string `json:"fileId"`
	PresignedURL string `json:"presignedUrl"`
	S3Key        string `json:"s3Key"`
	ExpiresIn    int    `json:"expiresIn"`
}

// Request handles POST /upload/request: validates the announced file, sweeps
// prior uploads when single-file mode is on, and issues a presigned PUT.
func (h *UploadHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if details := h.validateUploadRequest(&req); len(details) > 0 {
		ValidationError(w, details)
		return
	}

	key, err := generateObjectKey(req.FileName)
	if err != nil {
		logger.Error("failed to generate object key", logger.KeyError, err)
		InternalError(w)
		return
	}

	// Presign before touching the database so a storage failure leaves no
	// row behind.
	presigned, err := h.storage.PresignPut(r.Context(), key, req.ContentType)
	if err != nil {
		logger.Error("failed to presign upload",
			logger.KeyS3Key, key,
			logger.KeyError, err,
		)
		InternalError(w)
		return
	}

	file := &models.IfcFile{
		ID:               uuid.NewString(),
		FileName:         req.FileName,
		FileSize:         req.FileSize,
		S3Key:            key,
		UploadStatus:     models.UploadPending,
		ProcessingStatus: models.ProcessingNotStarted,
	}

	sweptKeys, err := h.store.CreateIfcFile(r.Context(), file, *h.config.SingleFileMode)
	if err != nil {
		logger.Error("failed to record upload",
			logger.KeyFileName, req.FileName,
			logger.KeyError, err,
		)
		InternalError(w)
		return
	}

	// The swept rows are already committed as deleted; removing their
	// objects is best-effort cleanup.
	h.deleteObjects(r.Context(), sweptKeys)
	h.ingestion.RecordSweptUploads(len(sweptKeys))
	h.ingestion.RecordUploadRequest()

	logger.Info("presigned upload issued",
		logger.KeyFileID, file.ID,
		logger.KeyFileName, file.FileName,
		logger.KeyFileSize, file.FileSize,
		logger.KeyS3Key, key,
	)

	WriteJSON(w, http.StatusOK, uploadRequestResponse{
		FileID:       file.ID,
		PresignedURL: presigned.URL,
		S3Key:        key,
		ExpiresIn:    presigned.ExpiresIn,
	})
}

func (h *UploadHandler) validateUploadRequest(req *uploadRequest) []ValidationDetail {
	var details []ValidationDetail

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details = append(details, ValidationDetail{
					Field:   fe.Field(),
					Message: validationMessage(fe),
				})
			}
		} else {
			details = append(details, ValidationDetail{Field: "body", Message: "Invalid request"})
		}
		return details
	}

	if !strings.HasSuffix(strings.ToLower(req.FileName), ".ifc") {
		details = append(details, ValidationDetail{
			Field:   "fileName",
			Message: "Only .ifc files are supported",
		})
	}
	if !mimePattern.MatchString(req.ContentType) || !allowedContentTypes[req.ContentType] {
		details = append(details, ValidationDetail{
			Field:   "contentType",
			Message: "Unsupported content type",
		})
	}
	if maxBytes := h.config.MaxFileSizeMB * 1024 * 1024; req.FileSize > maxBytes {
		details = append(details, ValidationDetail{
			Field:   "fileSize",
			Message: fmt.Sprintf("File exceeds maximum size of %d MB", h.config.MaxFileSizeMB),
		})
	}
	return details
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Field is required"
	case "min", "max":
		return "Field length out of range"
	case "gt":
		return "Value must be positive"
	default:
		return "Invalid value"
	}
}

type uploadCompleteRequest struct {
	FileID string `json:"fileId"`
	S3Key  string `json:"s3Key"`
}

type uploadCompleteResponse struct {
	Success          bool   `json:"success"`
	FileID           string `json:"fileId"`
	FileName         string `json:"fileName"`
	UploadStatus     string `json:"uploadStatus"`
	ProcessingStatus string `json:"processingStatus"`
	TaskID           string `json:"taskId,omitempty"`
}

// Complete handles POST /upload/complete: verifies the object landed in
// storage, commits the status transition, then enqueues the extraction task.
// The commit happens strictly before the enqueue so a rollback can never
// orphan a dispatched task.
func (h *UploadHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req uploadCompleteRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.FileID == "" || req.S3Key == "" {
		ValidationError(w, []ValidationDetail{
			{Field: "fileId", Message: "fileId and s3Key are required"},
		})
		return
	}

	file, err := h.store.GetIfcFile(r.Context(), req.FileID)
	if err != nil {
		if errors.Is(err, models.ErrIfcFileNotFound) {
			NotFound(w, "File not found")
			return
		}
		logger.Error("failed to load upload record", logger.KeyFileID, req.FileID, logger.KeyError, err)
		InternalError(w)
		return
	}

	if file.S3Key != req.S3Key {
		h.ingestion.RecordUploadCompletion("rejected")
		BadRequest(w, "S3 key mismatch")
		return
	}

	if _, err := h.storage.Head(r.Context(), req.S3Key); err != nil {
		if errors.Is(err, s3.ErrObjectNotFound) {
			h.ingestion.RecordUploadCompletion("rejected")
			BadRequest(w, "File not found in storage")
			return
		}
		logger.Error("storage check failed", logger.KeyS3Key, req.S3Key, logger.KeyError, err)
		InternalError(w)
		return
	}

	file, already, err := h.store.CompleteIfcFile(r.Context(), req.FileID)
	if err != nil {
		if errors.Is(err, models.ErrIfcFileDeleted) {
			BadRequest(w, "File has been deleted")
			return
		}
		logger.Error("failed to complete upload", logger.KeyFileID, req.FileID, logger.KeyError, err)
		InternalError(w)
		return
	}

	resp := uploadCompleteResponse{
		Success:          true,
		FileID:           file.ID,
		FileName:         file.FileName,
		UploadStatus:     string(file.UploadStatus),
		ProcessingStatus: string(file.ProcessingStatus),
	}

	// A row that already advanced past not_started was completed by an
	// earlier call; answer idempotently without enqueueing a second task.
	if already {
		h.ingestion.RecordUploadCompletion("duplicate")
		WriteJSON(w, http.StatusOK, resp)
		return
	}

	taskID, err := h.broker.Dispatch(r.Context(), celery.TaskProcessIFCFile, file.ID, file.S3Key)
	if err != nil {
		// The row is committed as processing; the operator has to retry
		// or clean up. The status endpoint will report PENDING.
		logger.Error("failed to dispatch extraction task",
			logger.KeyFileID, file.ID,
			logger.KeyS3Key, file.S3Key,
			logger.KeyError, err,
		)
		InternalError(w)
		return
	}

	h.ingestion.RecordUploadCompletion("accepted")
	h.ingestion.RecordTaskDispatched(celery.TaskProcessIFCFile)

	logger.Info("upload completed",
		logger.KeyFileID, file.ID,
		logger.KeyFileName, file.FileName,
		logger.KeyTaskID, taskID,
	)

	resp.TaskID = taskID
	WriteJSON(w, http.StatusOK, resp)
}

type taskStatusResponse struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
	Result any    `json:"result"`
	Error  string `json:"error,omitempty"`
}

// Status handles GET /upload/status/{taskId}: proxies the worker's result
// store entry, synthesizing PENDING for unknown tasks.
func (h *UploadHandler) Status(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	if _, err := uuid.Parse(taskID); err != nil {
		BadRequest(w, "Invalid task ID")
		return
	}

	result, err := h.broker.GetResult(r.Context(), taskID)
	if err != nil {
		logger.Error("failed to read task result", logger.KeyTaskID, taskID, logger.KeyError, err)
		InternalError(w)
		return
	}

	WriteJSON(w, http.StatusOK, taskStatusResponse{
		TaskID: taskID,
		Status: string(result.Status),
		Result: result.Result,
		Error:  result.UserError(),
	})
}

// deleteObjects removes swept objects from storage, best-effort.
func (h *UploadHandler) deleteObjects(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := h.storage.Delete(ctx, key); err != nil {
			logger.Warn("failed to delete swept object",
				logger.KeyS3Key, key,
				logger.KeyError, err,
			)
		}
	}
}

const keyRandLen = 8

// generateObjectKey builds the opaque storage key {unix_ms}-{rand}-{name}.
func generateObjectKey(fileName string) (string, error) {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffix := make([]byte, keyRandLen)
	for i := range suffix {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		suffix[i] = alphabet[n.Int64()]
	}
	return fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), suffix, fileName), nil
}
