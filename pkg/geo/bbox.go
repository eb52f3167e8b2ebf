// Package geo implements the wire-level geospatial contracts of the
// catalogue: bounding-box parsing, GeoJSON feature shaping, and the
// cache-validator ETag for catalogue responses.
package geo

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// bboxPattern matches four comma-separated signed decimals, longitude first.
var bboxPattern = regexp.MustCompile(`^-?\d+(\.\d+)?,-?\d+(\.\d+)?,-?\d+(\.\d+)?,-?\d+(\.\d+)?$`)

// BBox is a WGS84 bounding box with longitude-first ordering.
type BBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// ParseBBox parses and validates a "minLon,minLat,maxLon,maxLat" string.
//
// Validation: longitudes in [-180, 180], latitudes in [-90, 90], and the
// strict inequalities minLon < maxLon, minLat < maxLat.
func ParseBBox(s string) (*BBox, error) {
	if !bboxPattern.MatchString(s) {
		return nil, fmt.Errorf("bbox must be four comma-separated decimals: minLon,minLat,maxLon,maxLat")
	}

	parts := strings.Split(s, ",")
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("bbox component %d is not a number", i+1)
		}
		vals[i] = v
	}

	b := &BBox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}

	if b.MinLon < -180 || b.MinLon > 180 || b.MaxLon < -180 || b.MaxLon > 180 {
		return nil, fmt.Errorf("bbox longitudes must be within [-180, 180]")
	}
	if b.MinLat < -90 || b.MinLat > 90 || b.MaxLat < -90 || b.MaxLat > 90 {
		return nil, fmt.Errorf("bbox latitudes must be within [-90, 90]")
	}
	if b.MinLon >= b.MaxLon {
		return nil, fmt.Errorf("bbox minLon must be strictly less than maxLon")
	}
	if b.MinLat >= b.MaxLat {
		return nil, fmt.Errorf("bbox minLat must be strictly less than maxLat")
	}

	return b, nil
}

// Contains reports whether the point (lon, lat) lies within the box.
func (b *BBox) Contains(lon, lat float64) bool {
	return lon >= b.MinLon && lon <= b.MaxLon && lat >= b.MinLat && lat <= b.MaxLat
}

// Slice returns the box as [minLon, minLat, maxLon, maxLat].
func (b *BBox) Slice() [4]float64 {
	return [4]float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat}
}

// String returns the canonical comma-separated form.
func (b *BBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}
