// Package planner finds terrain-aware flight routes over an elevation grid.
package planner

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"droneops-dispatch/internal/geo"
)

// Bounds is the geographic extent of a grid. Row 0 lies on LatMax and
// column 0 on LonMin.
type Bounds struct {
	LatMin float64 `yaml:"lat_min" json:"lat_min"`
	LatMax float64 `yaml:"lat_max" json:"lat_max"`
	LonMin float64 `yaml:"lon_min" json:"lon_min"`
	LonMax float64 `yaml:"lon_max" json:"lon_max"`
}

// Cell addresses one grid sample.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Grid is an elevation raster in metres.
type Grid struct {
	Bounds     Bounds      `yaml:"bounds"`
	Elevations [][]float64 `yaml:"elevations"`

	rows, cols int
	rowM, colM float64
}

// NewGrid validates elevations against b and derives the cell size.
func NewGrid(b Bounds, elevations [][]float64) (*Grid, error) {
	g := &Grid{Bounds: b, Elevations: elevations}
	if err := g.init(); err != nil {
		return nil, err
	}
	return g, nil
}

// LoadGrid reads a YAML grid file.
func LoadGrid(path string) (*Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grid: %w", err)
	}
	var g Grid
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse grid %s: %w", path, err)
	}
	if err := g.init(); err != nil {
		return nil, fmt.Errorf("grid %s: %w", path, err)
	}
	return &g, nil
}

func (g *Grid) init() error {
	b := g.Bounds
	if !(b.LatMax > b.LatMin) || !(b.LonMax > b.LonMin) ||
		!geo.Pt(b.LonMin, b.LatMin).Valid() || !geo.Pt(b.LonMax, b.LatMax).Valid() {
		return fmt.Errorf("%w: grid bounds %+v", geo.ErrInvalidArgument, b)
	}
	g.rows = len(g.Elevations)
	if g.rows == 0 {
		return fmt.Errorf("%w: empty grid", geo.ErrInvalidArgument)
	}
	g.cols = len(g.Elevations[0])
	if g.rows*g.cols < 2 {
		return fmt.Errorf("%w: grid needs at least 2 cells", geo.ErrInvalidArgument)
	}
	for i, row := range g.Elevations {
		if len(row) != g.cols {
			return fmt.Errorf("%w: grid row %d has %d columns, want %d", geo.ErrInvalidArgument, i, len(row), g.cols)
		}
		for j, e := range row {
			if math.IsNaN(e) || math.IsInf(e, 0) {
				return fmt.Errorf("%w: elevation at %d,%d", geo.ErrInvalidArgument, i, j)
			}
		}
	}
	midLat := (b.LatMin + b.LatMax) / 2
	latKm, _ := geo.DistanceKm(geo.Pt(b.LonMin, b.LatMin), geo.Pt(b.LonMin, b.LatMax))
	lonKm, _ := geo.DistanceKm(geo.Pt(b.LonMin, midLat), geo.Pt(b.LonMax, midLat))
	g.rowM = latKm * 1000 / float64(g.rows)
	g.colM = lonKm * 1000 / float64(g.cols)
	return nil
}

// Rows returns the number of grid rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of grid columns.
func (g *Grid) Cols() int { return g.cols }

// CellSize returns the north-south and east-west extent of a cell in metres.
func (g *Grid) CellSize() (rowM, colM float64) { return g.rowM, g.colM }

// Contains reports whether c lies on the grid.
func (g *Grid) Contains(c Cell) bool {
	return c.Row >= 0 && c.Row < g.rows && c.Col >= 0 && c.Col < g.cols
}

// Elevation returns the elevation of c. c must be on the grid.
func (g *Grid) Elevation(c Cell) float64 { return g.Elevations[c.Row][c.Col] }

// Point converts a cell to coordinates.
func (g *Grid) Point(c Cell) geo.Point {
	b := g.Bounds
	lat := b.LatMax - float64(c.Row)*(b.LatMax-b.LatMin)/float64(g.rows)
	lon := b.LonMin + float64(c.Col)*(b.LonMax-b.LonMin)/float64(g.cols)
	return geo.Pt(lon, lat)
}

// Cell converts coordinates to the cell containing them.
func (g *Grid) Cell(p geo.Point) (Cell, error) {
	if !p.Valid() {
		return Cell{}, fmt.Errorf("%w: point %s", geo.ErrInvalidArgument, p)
	}
	b := g.Bounds
	c := Cell{
		Row: int(math.Floor((b.LatMax - p.Lat) * float64(g.rows) / (b.LatMax - b.LatMin))),
		Col: int(math.Floor((p.Lon - b.LonMin) * float64(g.cols) / (b.LonMax - b.LonMin))),
	}
	if !g.Contains(c) {
		return Cell{}, fmt.Errorf("%w: point %s is outside the grid", geo.ErrInvalidArgument, p)
	}
	return c, nil
}
