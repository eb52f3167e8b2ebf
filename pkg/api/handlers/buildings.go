package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/geobim/geobim/internal/logger"
	"github.com/geobim/geobim/pkg/cache"
	"github.com/geobim/geobim/pkg/catalog/models"
	"github.com/geobim/geobim/pkg/catalog/store"
	"github.com/geobim/geobim/pkg/geo"
	"github.com/geobim/geobim/pkg/metrics"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000

	// catalogueCacheControl keeps responses fresh for five minutes and
	// forces revalidation through the weak ETag afterwards.
	catalogueCacheControl = "public, max-age=300, must-revalidate"
)

// CatalogStore is the slice of the catalogue store the query API needs.
type CatalogStore interface {
	ListBuildings(ctx context.Context, q store.ListBuildingsQuery) ([]models.Building, error)
	GetBuilding(ctx context.Context, id string) (*models.Building, error)
	DeleteBuildingCascade(ctx context.Context, id string) ([]string, error)
}

// BuildingsHandler serves the spatial catalogue as GeoJSON.
type BuildingsHandler struct {
	store     CatalogStore
	storage   ObjectStorage
	cache     *cache.QueryCache
	ingestion *metrics.IngestionMetrics
}

// NewBuildingsHandler creates the catalogue handler. cache may be nil to
// disable the advisory query cache.
func NewBuildingsHandler(st CatalogStore, storage ObjectStorage, qc *cache.QueryCache, ingestion *metrics.IngestionMetrics) *BuildingsHandler {
	return &BuildingsHandler{store: st, storage: storage, cache: qc, ingestion: ingestion}
}

// List handles GET /buildings with bbox filtering, cursor pagination and
// ETag revalidation.
func (h *BuildingsHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var details []ValidationDetail

	var bbox *geo.BBox
	if raw := query.Get("bbox"); raw != "" {
		parsed, err := geo.ParseBBox(raw)
		if err != nil {
			details = append(details, ValidationDetail{Field: "bbox", Message: err.Error()})
		} else {
			bbox = parsed
		}
	}

	limit := defaultListLimit
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxListLimit {
			details = append(details, ValidationDetail{
				Field:   "limit",
				Message: fmt.Sprintf("limit must be an integer between 1 and %d", maxListLimit),
			})
		} else {
			limit = parsed
		}
	}

	cursor := query.Get("cursor")
	if cursor != "" {
		if _, err := uuid.Parse(cursor); err != nil {
			details = append(details, ValidationDetail{Field: "cursor", Message: "cursor must be a UUID"})
		}
	}

	if len(details) > 0 {
		ValidationError(w, details)
		return
	}

	cacheKey := fmt.Sprintf("%s:%d:%s", query.Get("bbox"), limit, cursor)
	if body := h.cache.Get(r.Context(), cacheKey); body != nil {
		h.ingestion.RecordCacheLookup(true)
		h.writeCollection(w, r, body)
		return
	}
	h.ingestion.RecordCacheLookup(false)

	start := time.Now()
	buildings, err := h.store.ListBuildings(r.Context(), store.ListBuildingsQuery{
		BBox:   bbox,
		Limit:  limit,
		Cursor: cursor,
	})
	if err != nil {
		logger.Error("catalogue query failed", logger.KeyBBox, query.Get("bbox"), logger.KeyError, err)
		InternalError(w)
		return
	}
	h.ingestion.RecordQueryDuration(time.Since(start))

	collection := geo.BuildingCollection(buildings, bbox, limit)
	body, err := json.Marshal(collection)
	if err != nil {
		logger.Error("failed to encode feature collection", logger.KeyError, err)
		InternalError(w)
		return
	}

	h.cache.Set(r.Context(), cacheKey, body)
	h.writeCollection(w, r, body)
}

// writeCollection emits the serialized collection with caching headers,
// answering 304 when the client's validator still matches.
func (h *BuildingsHandler) writeCollection(w http.ResponseWriter, r *http.Request, body []byte) {
	etag := geo.ETag(body)

	w.Header().Set("Cache-Control", catalogueCacheControl)
	w.Header().Set("ETag", etag)

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Get handles GET /buildings/{id} with a single GeoJSON feature.
func (h *BuildingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	building, err := h.store.GetBuilding(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrBuildingNotFound) {
			NotFound(w, "Building not found")
			return
		}
		logger.Error("failed to load building", logger.KeyBuildingID, id, logger.KeyError, err)
		InternalError(w)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(geo.BuildingFeature(building))
}

// Delete handles DELETE /buildings/{id}: removes the row, marks the linked
// IFC file deleted and best-effort deletes its stored objects.
func (h *BuildingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	keys, err := h.store.DeleteBuildingCascade(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrBuildingNotFound) {
			NotFound(w, "Building not found")
			return
		}
		logger.Error("failed to delete building", logger.KeyBuildingID, id, logger.KeyError, err)
		InternalError(w)
		return
	}

	for _, key := range keys {
		if err := h.storage.Delete(r.Context(), key); err != nil {
			logger.Warn("failed to delete stored object",
				logger.KeyS3Key, key,
				logger.KeyError, err,
			)
		}
	}

	h.cache.Invalidate(r.Context())

	logger.Info("building deleted", logger.KeyBuildingID, id)
	NoContent(w)
}
