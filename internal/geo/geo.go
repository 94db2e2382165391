// Package geo implements the Geospatial Translator (spec.md §4.5): it
// parses WKT geometries and emits the Cypher point/bounding-box
// fragments the Pattern Compiler splices into a FILTER's WHERE clause
// (spec.md §4.4.f). No example repo in the pack parses WKT, so this
// leans on a real ecosystem library (go-geom) rather than a hand-rolled
// scanner — see SPEC_FULL.md §2.
package geo

import (
	"fmt"

	"github.com/falkordb/go-sparql-adapter/internal/errs"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// Point is a WGS-84 {latitude, longitude} pair in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// BBox is the bounding box computed for a non-point geometry, with a
// representative center point (spec.md §4.4.f: "POLYGON / LINESTRING
// / MULTIPOINT resolve to their bounding box with the center point as
// the representative").
type BBox struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64
	CenterLat      float64
	CenterLon      float64
}

// Geometry is the parsed result of ParseWKT: exactly one of Point or
// BBox is non-nil.
type Geometry struct {
	Point *Point
	BBox  *BBox
}

// ParseWKT parses wkt assuming WGS-84 coordinates in "lon lat" order
// (spec.md §4.5). POINT becomes a Point; POLYGON, LINESTRING, and
// MULTIPOINT become a BBox. Anything else is InvalidWKT.
func ParseWKT(wktStr string) (*Geometry, error) {
	g, err := wkt.Unmarshal(wktStr)
	if err != nil {
		return nil, &errs.InvalidWKT{Input: wktStr, Err: err}
	}

	switch t := g.(type) {
	case *geom.Point:
		coords := t.Coords()
		if len(coords) < 2 {
			return nil, &errs.InvalidWKT{Input: wktStr, Err: fmt.Errorf("point has fewer than 2 coordinates")}
		}
		point := Point{Lat: coords[1], Lon: coords[0]}
		return &Geometry{Point: &point}, nil
	case *geom.Polygon, *geom.LineString, *geom.MultiPoint:
		bounds := g.Bounds()
		if bounds == nil {
			return nil, &errs.InvalidWKT{Input: wktStr, Err: fmt.Errorf("geometry has no bounds")}
		}
		min, max := bounds.Min(), bounds.Max()
		bbox := &BBox{
			MinLon: min.X(), MinLat: min.Y(),
			MaxLon: max.X(), MaxLat: max.Y(),
		}
		bbox.CenterLat = (bbox.MinLat + bbox.MaxLat) / 2
		bbox.CenterLon = (bbox.MinLon + bbox.MaxLon) / 2
		return &Geometry{BBox: bbox}, nil
	default:
		return nil, &errs.InvalidWKT{Input: wktStr, Err: fmt.Errorf("unsupported geometry type %T", g)}
	}
}

// RepresentativePoint returns the geometry's {lat, lon}: the point
// itself, or a bounding box's center.
func (g *Geometry) RepresentativePoint() Point {
	if g.Point != nil {
		return *g.Point
	}
	return Point{Lat: g.BBox.CenterLat, Lon: g.BBox.CenterLon}
}

// PointCypher emits a `point({latitude:$<prefix>Lat,
// longitude:$<prefix>Lon})` fragment and its parameters.
func PointCypher(paramPrefix string, p Point) (fragment string, params map[string]any) {
	latParam := paramPrefix + "Lat"
	lonParam := paramPrefix + "Lon"
	fragment = fmt.Sprintf("point({latitude:$%s, longitude:$%s})", latParam, lonParam)
	params = map[string]any{latParam: p.Lat, lonParam: p.Lon}
	return fragment, params
}

// DistanceCypher emits `distance(<pointExprA>, <pointExprB>) <op>
// <meters>`; the Expression Translator uses it for the two-point case
// of geof:sfWithin/sfContains/sfIntersects (op "=", 0 meters).
func DistanceCypher(pointExprA, pointExprB, op string, meters float64, paramName string) (fragment string, params map[string]any) {
	fragment = fmt.Sprintf("distance(%s, %s) %s $%s", pointExprA, pointExprB, op, paramName)
	return fragment, map[string]any{paramName: meters}
}

// BoundingBoxCypher emits a conjunction of four comparisons testing
// that nodeExpr's latitude/longitude properties fall within bbox, used
// when a sfWithin/sfContains/sfIntersects argument resolves to a
// bounding box rather than a point.
func BoundingBoxCypher(latProp, lonProp, paramPrefix string, bbox BBox) (fragment string, params map[string]any) {
	minLat, maxLat := paramPrefix+"MinLat", paramPrefix+"MaxLat"
	minLon, maxLon := paramPrefix+"MinLon", paramPrefix+"MaxLon"
	fragment = fmt.Sprintf(
		"%s >= $%s AND %s <= $%s AND %s >= $%s AND %s <= $%s",
		latProp, minLat, latProp, maxLat, lonProp, minLon, lonProp, maxLon,
	)
	params = map[string]any{
		minLat: bbox.MinLat, maxLat: bbox.MaxLat,
		minLon: bbox.MinLon, maxLon: bbox.MaxLon,
	}
	return fragment, params
}
