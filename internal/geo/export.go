package geo

import (
	"encoding/json"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Map renderers work in web mercator; paths are kept in EPSG:4326.
var toMercator = wgs84.EPSG().Transform(4326, 3857)

// WebMercator projects p into EPSG:3857 metres.
func WebMercator(p Point) (x, y float64) {
	x, y, _ = toMercator(p.Lon, p.Lat, 0)
	return x, y
}

// LineString converts the path into a simplefeatures line string (lon/lat axes).
func (p Path) LineString() (geom.LineString, error) {
	flat := make([]float64, 0, len(p)*2)
	for _, pt := range p {
		flat = append(flat, pt.Lon, pt.Lat)
	}
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.LineString{}, fmt.Errorf("%w: line string: %v", ErrInvalidArgument, err)
	}
	return ls, nil
}

// GeoJSON renders the path as a GeoJSON Feature carrying the given properties.
func (p Path) GeoJSON(id string, props map[string]interface{}) ([]byte, error) {
	ls, err := p.LineString()
	if err != nil {
		return nil, err
	}
	f := geom.GeoJSONFeature{
		ID:         id,
		Geometry:   ls.AsGeometry(),
		Properties: props,
	}
	return json.Marshal(f)
}
