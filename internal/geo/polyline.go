package geo

import (
	"fmt"

	"github.com/teammap/teammap/pkg/core"

	geom "github.com/peterstace/simplefeatures/geom"
)

// TerminatorLine builds a geom.LineString from the boundary points.
func TerminatorLine(points []core.LonLat) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, fmt.Errorf("terminator must have at least 2 points, got %d", len(points))
	}

	// Build coordinate sequence for LineString
	flatCoords := make([]float64, 0, len(points)*2)
	for _, p := range points {
		flatCoords = append(flatCoords, p.Lon, p.Lat)
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	return geom.NewLineString(seq), nil
}
