package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/geobim/geobim/pkg/catalog/models"
	"github.com/geobim/geobim/pkg/catalog/store"
	"github.com/geobim/geobim/pkg/geo"
)

type fakeCatalogStore struct {
	buildings map[string]*models.Building
	cascaded  []string
}

func newFakeCatalogStore() *fakeCatalogStore {
	return &fakeCatalogStore{buildings: make(map[string]*models.Building)}
}

func (s *fakeCatalogStore) ListBuildings(ctx context.Context, q store.ListBuildingsQuery) ([]models.Building, error) {
	ids := make([]string, 0, len(s.buildings))
	for id := range s.buildings {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []models.Building
	for _, id := range ids {
		b := s.buildings[id]
		if q.BBox != nil && !q.BBox.Contains(b.Longitude, b.Latitude) {
			continue
		}
		if q.Cursor != "" && id <= q.Cursor {
			continue
		}
		out = append(out, *b)
		if len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (s *fakeCatalogStore) GetBuilding(ctx context.Context, id string) (*models.Building, error) {
	b, ok := s.buildings[id]
	if !ok {
		return nil, models.ErrBuildingNotFound
	}
	copied := *b
	return &copied, nil
}

func (s *fakeCatalogStore) DeleteBuildingCascade(ctx context.Context, id string) ([]string, error) {
	b, ok := s.buildings[id]
	if !ok {
		return nil, models.ErrBuildingNotFound
	}
	delete(s.buildings, id)
	s.cascaded = append(s.cascaded, id)
	return []string{b.IfcFileID + ".ifc"}, nil
}

func seedBuilding(s *fakeCatalogStore, id string, lon, lat float64) {
	s.buildings[id] = &models.Building{
		ID:        id,
		IfcFileID: "file-" + id,
		Longitude: lon,
		Latitude:  lat,
	}
}

func buildingsRouter(h *BuildingsHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/buildings", h.List)
	r.Get("/buildings/{id}", h.Get)
	r.Delete("/buildings/{id}", h.Delete)
	return r
}

func newTestBuildingsHandler() (*BuildingsHandler, *fakeCatalogStore, *fakeStorage) {
	st := newFakeCatalogStore()
	storage := newFakeStorage()
	return NewBuildingsHandler(st, storage, nil, nil), st, storage
}

func TestBuildingsList_BBoxHappyPath(t *testing.T) {
	h, st, _ := newTestBuildingsHandler()
	seedBuilding(st, "b1", 12.4924, 41.8902)
	seedBuilding(st, "b2", 2.2945, 48.8584) // outside the bbox

	req := httptest.NewRequest(http.MethodGet, "/buildings?bbox=12.4,41.8,12.6,42.0", nil)
	rec := httptest.NewRecorder()
	buildingsRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
	}

	var fc geo.FeatureCollection
	if err := json.Unmarshal(rec.Body.Bytes(), &fc); err != nil {
		t.Fatalf("Failed to decode collection: %v", err)
	}
	if fc.Metadata.Count != 1 || len(fc.Features) != 1 {
		t.Fatalf("Expected 1 feature, got %d", len(fc.Features))
	}
	coords := fc.Features[0].Geometry.Coordinates
	if coords[0] != 12.4924 || coords[1] != 41.8902 {
		t.Errorf("Expected [lon, lat] order, got %v", coords)
	}
	if fc.Metadata.NextCursor != "" {
		t.Errorf("Expected no cursor below the limit, got %q", fc.Metadata.NextCursor)
	}
}

func TestBuildingsList_InvalidInput(t *testing.T) {
	h, _, _ := newTestBuildingsHandler()

	tests := []struct {
		name  string
		query string
		field string
	}{
		{"inverted bbox", "?bbox=12.6,41.8,12.4,42.0", "bbox"},
		{"out of range", "?bbox=-190,41.8,12.6,42.0", "bbox"},
		{"malformed bbox", "?bbox=a,b,c,d", "bbox"},
		{"limit too large", "?limit=5000", "limit"},
		{"limit zero", "?limit=0", "limit"},
		{"bad cursor", "?cursor=nope", "cursor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/buildings"+tt.query, nil)
			rec := httptest.NewRecorder()
			buildingsRouter(h).ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d", rec.Code)
			}
			var resp ValidationErrorResponse
			_ = json.Unmarshal(rec.Body.Bytes(), &resp)
			found := false
			for _, d := range resp.Details {
				if d.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("Expected a detail for %s, got %v", tt.field, resp.Details)
			}
		})
	}
}

func TestBuildingsList_CursorPagination(t *testing.T) {
	h, st, _ := newTestBuildingsHandler()
	for i := range 3 {
		id := fmt.Sprintf("0000000%d-0000-0000-0000-000000000000", i+1)
		seedBuilding(st, id, 10, 10)
	}

	req := httptest.NewRequest(http.MethodGet, "/buildings?limit=2", nil)
	rec := httptest.NewRecorder()
	buildingsRouter(h).ServeHTTP(rec, req)

	var first geo.FeatureCollection
	if err := json.Unmarshal(rec.Body.Bytes(), &first); err != nil {
		t.Fatalf("Failed to decode first page: %v", err)
	}
	if len(first.Features) != 2 {
		t.Fatalf("Expected 2 features on the first page, got %d", len(first.Features))
	}
	if first.Metadata.NextCursor != first.Features[1].ID {
		t.Errorf("Expected nextCursor %s, got %s", first.Features[1].ID, first.Metadata.NextCursor)
	}

	req = httptest.NewRequest(http.MethodGet, "/buildings?limit=2&cursor="+first.Metadata.NextCursor, nil)
	rec = httptest.NewRecorder()
	buildingsRouter(h).ServeHTTP(rec, req)

	var second geo.FeatureCollection
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatalf("Failed to decode second page: %v", err)
	}
	if len(second.Features) != 1 {
		t.Fatalf("Expected 1 feature on the second page, got %d", len(second.Features))
	}
	if second.Metadata.NextCursor != "" {
		t.Errorf("Expected no cursor on the last page, got %q", second.Metadata.NextCursor)
	}
}

func TestBuildingsList_ETagRevalidation(t *testing.T) {
	h, st, _ := newTestBuildingsHandler()
	seedBuilding(st, "b1", 12.5, 41.9)

	req := httptest.NewRequest(http.MethodGet, "/buildings", nil)
	rec := httptest.NewRecorder()
	buildingsRouter(h).ServeHTTP(rec, req)

	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("Expected an ETag header")
	}
	if cc := rec.Header().Get("Cache-Control"); cc != catalogueCacheControl {
		t.Errorf("Unexpected Cache-Control: %s", cc)
	}

	req = httptest.NewRequest(http.MethodGet, "/buildings", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	buildingsRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotModified {
		t.Fatalf("Expected 304, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("Expected empty 304 body, got %d bytes", rec.Body.Len())
	}
	if rec.Header().Get("ETag") != etag {
		t.Error("Expected a stable ETag across identical responses")
	}
}

func TestBuildingsGet(t *testing.T) {
	h, st, _ := newTestBuildingsHandler()
	seedBuilding(st, "b1", 12.5, 41.9)

	req := httptest.NewRequest(http.MethodGet, "/buildings/b1", nil)
	rec := httptest.NewRecorder()
	buildingsRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var f geo.Feature
	if err := json.Unmarshal(rec.Body.Bytes(), &f); err != nil {
		t.Fatalf("Failed to decode feature: %v", err)
	}
	if f.Type != "Feature" || f.ID != "b1" {
		t.Errorf("Unexpected feature: %+v", f)
	}

	req = httptest.NewRequest(http.MethodGet, "/buildings/missing", nil)
	rec = httptest.NewRecorder()
	buildingsRouter(h).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown building, got %d", rec.Code)
	}
}

func TestBuildingsDelete_Cascade(t *testing.T) {
	h, st, storage := newTestBuildingsHandler()
	seedBuilding(st, "b1", 12.5, 41.9)
	storage.objects["file-b1.ifc"] = 100

	req := httptest.NewRequest(http.MethodDelete, "/buildings/b1", nil)
	rec := httptest.NewRecorder()
	buildingsRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}
	if len(storage.deletedKeys) != 1 || storage.deletedKeys[0] != "file-b1.ifc" {
		t.Errorf("Expected the linked object deleted, got %v", storage.deletedKeys)
	}

	req = httptest.NewRequest(http.MethodGet, "/buildings/b1", nil)
	rec = httptest.NewRecorder()
	buildingsRouter(h).ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}

func TestBuildingsDelete_NotFound(t *testing.T) {
	h, _, _ := newTestBuildingsHandler()

	req := httptest.NewRequest(http.MethodDelete, "/buildings/missing", nil)
	rec := httptest.NewRecorder()
	buildingsRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rec.Code)
	}
}
