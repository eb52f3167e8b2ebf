package geo

import (
	"time"

	"github.com/geobim/geobim/pkg/catalog/models"
)

// PointGeometry is a GeoJSON Point with [longitude, latitude] coordinates.
type PointGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// FeatureProperties carries the building metadata of a catalogue feature.
// Nullable fields are emitted as JSON null rather than omitted; the feature
// shape is a fixed contract with the globe client.
type FeatureProperties struct {
	Name             *string             `json:"name"`
	Address          *string             `json:"address"`
	City             *string             `json:"city"`
	Country          *string             `json:"country"`
	Height           *float64            `json:"height"`
	FloorCount       *int                `json:"floorCount"`
	IfcFileID        string              `json:"ifcFileId"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
	ModelURL         *string             `json:"modelUrl"`
	ModelFormat      *models.ModelFormat `json:"modelFormat"`
	ModelSizeMB      *float64            `json:"modelSizeMb"`
	ModelGeneratedAt *time.Time          `json:"modelGeneratedAt"`
}

// Feature is a GeoJSON Feature for a single building.
type Feature struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Geometry   PointGeometry     `json:"geometry"`
	Properties FeatureProperties `json:"properties"`
}

// CollectionMetadata augments a FeatureCollection with paging information.
type CollectionMetadata struct {
	Count      int         `json:"count"`
	BBox       *[4]float64 `json:"bbox,omitempty"`
	NextCursor string      `json:"nextCursor,omitempty"`
}

// FeatureCollection is the response shape of the catalogue listing.
type FeatureCollection struct {
	Type     string             `json:"type"`
	Features []Feature          `json:"features"`
	Metadata CollectionMetadata `json:"metadata"`
}

// BuildingFeature shapes a catalogue row into its GeoJSON feature.
func BuildingFeature(b *models.Building) Feature {
	return Feature{
		Type: "Feature",
		ID:   b.ID,
		Geometry: PointGeometry{
			Type:        "Point",
			Coordinates: [2]float64{b.Longitude, b.Latitude},
		},
		Properties: FeatureProperties{
			Name:             b.Name,
			Address:          b.Address,
			City:             b.City,
			Country:          b.Country,
			Height:           b.Height,
			FloorCount:       b.FloorCount,
			IfcFileID:        b.IfcFileID,
			CreatedAt:        b.CreatedAt.UTC(),
			UpdatedAt:        b.UpdatedAt.UTC(),
			ModelURL:         b.ModelURL,
			ModelFormat:      b.ModelFormat,
			ModelSizeMB:      b.ModelSizeMB,
			ModelGeneratedAt: b.ModelGeneratedAt,
		},
	}
}

// BuildingCollection shapes catalogue rows into a FeatureCollection.
//
// When the number of rows equals limit, the last feature's id is exposed as
// the next cursor; otherwise the cursor is omitted and the listing is
// exhausted.
func BuildingCollection(buildings []models.Building, bbox *BBox, limit int) FeatureCollection {
	features := make([]Feature, 0, len(buildings))
	for i := range buildings {
		features = append(features, BuildingFeature(&buildings[i]))
	}

	meta := CollectionMetadata{Count: len(features)}
	if bbox != nil {
		s := bbox.Slice()
		meta.BBox = &s
	}
	if limit > 0 && len(features) == limit {
		meta.NextCursor = features[len(features)-1].ID
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
		Metadata: meta,
	}
}
