package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/geobim/geobim/internal/logger"
	"github.com/geobim/geobim/pkg/storage/s3"
)

// modelFilenamePattern restricts model names to the worker's output scheme:
// lowercase hex/dash stems with a glTF extension.
var modelFilenamePattern = regexp.MustCompile(`^[a-f0-9-]+\.(glb|gltf)$`)

// modelKeyPrefix is the object-store namespace the worker writes models to.
const modelKeyPrefix = "models/"

// ModelStreamer reads model objects from storage.
type ModelStreamer interface {
	Head(ctx context.Context, key string) (*s3.ObjectInfo, error)
	Get(ctx context.Context, key string) (io.ReadCloser, int64, error)
}

// ModelsHandler streams glTF/glB assets from object storage to the globe
// client. The client may live on a different origin, so CORS is permissive
// here regardless of the API-wide policy.
type ModelsHandler struct {
	storage ModelStreamer
}

// NewModelsHandler creates the model streaming handler.
func NewModelsHandler(storage ModelStreamer) *ModelsHandler {
	return &ModelsHandler{storage: storage}
}

// Stream handles GET /models/{filename}.
func (h *ModelsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	setModelCORSHeaders(w)

	if !modelFilenamePattern.MatchString(filename) {
		BadRequest(w, "Invalid filename")
		return
	}
	key := modelKeyPrefix + filename

	info, err := h.storage.Head(r.Context(), key)
	if err != nil {
		if errors.Is(err, s3.ErrObjectNotFound) {
			NotFound(w, "Model not found")
			return
		}
		logger.Error("model lookup failed", logger.KeyS3Key, key, logger.KeyError, err)
		InternalError(w)
		return
	}

	body, size, err := h.storage.Get(r.Context(), key)
	if err != nil {
		logger.Error("model read failed", logger.KeyS3Key, key, logger.KeyError, err)
		InternalError(w)
		return
	}
	defer body.Close()

	if size <= 0 {
		size = info.Size
	}

	w.Header().Set("Content-Type", modelContentType(filename))
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	w.Header().Set("Content-Disposition", `inline; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)

	cw := &countingWriter{w: w}
	if _, err := io.Copy(cw, body); err != nil {
		// Headers are already on the wire; aborting the connection is the
		// only honest signal left.
		logger.Warn("model stream interrupted",
			logger.KeyS3Key, key,
			"bytes_sent", cw.n,
			logger.KeyError, err,
		)
		panic(http.ErrAbortHandler)
	}
}

// Preflight handles OPTIONS /models/{filename}.
func (h *ModelsHandler) Preflight(w http.ResponseWriter, r *http.Request) {
	setModelCORSHeaders(w)
	w.WriteHeader(http.StatusNoContent)
}

func setModelCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
}

func modelContentType(filename string) string {
	if strings.HasSuffix(filename, ".glb") {
		return "model/gltf-binary"
	}
	return "model/gltf+json"
}

type countingWriter struct {
	w http.ResponseWriter
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
