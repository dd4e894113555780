package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/teammap/teammap/internal/solar"
	"github.com/teammap/teammap/pkg/core"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// NIGHT REGION
// The terminator is sampled once per degree of longitude. The night ring is the
// sampled boundary closed through the pole on the dark side, so the fill never
// wraps across the antimeridian.

const (
	// SweepStep is the longitude spacing of terminator samples, degrees.
	SweepStep = 1.0

	// MercatorMaxLat is the latitude limit of EPSG:3857.
	MercatorMaxLat = 85.05112878

	singularCos = 1e-6
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// ErrEmptyTerminator is returned when no longitude produced a valid latitude.
var ErrEmptyTerminator = errors.New("terminator has no valid points")

// TerminatorLatitude returns the latitude at which the sun is on the horizon
// for the given longitude at instant t.
func TerminatorLatitude(lon float64, pos core.SolarPosition, t time.Time) float64 {
	t = t.UTC()
	minutes := float64(t.Hour())*60 + float64(t.Minute()) + (float64(t.Second())+float64(t.Nanosecond())/1e9)/60

	localSolarTime := minutes + pos.EquationOfTimeMin + 4*lon
	hourAngle := localSolarTime/4 - 180

	decl := pos.DeclinationDeg
	h := solar.Rad(hourAngle)
	if math.Abs(math.Cos(h)) < singularCos {
		if decl > 0 {
			return 90 - math.Abs(decl)
		}
		return -90 + math.Abs(decl)
	}

	return solar.Deg(math.Atan(-math.Cos(h) / math.Tan(solar.Rad(decl))))
}

// Terminator sweeps longitude from -180 to 180 and returns every valid
// boundary point in west to east order.
func Terminator(pos core.SolarPosition, t time.Time) []core.LonLat {
	points := make([]core.LonLat, 0, int(360/SweepStep)+1)
	for i := 0; ; i++ {
		lon := -180 + float64(i)*SweepStep
		if lon > 180 {
			break
		}
		lat := TerminatorLatitude(lon, pos, t)
		if math.IsNaN(lat) || lat < -90 || lat > 90 {
			continue
		}
		points = append(points, core.LonLat{Lon: lon, Lat: lat})
	}
	return points
}

// AfterSolarNoon reports whether t is at or past 12:00 on the reference
// (Greenwich) meridian.
func AfterSolarNoon(t time.Time) bool {
	t = t.UTC()
	noon := time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC)
	return !t.Before(noon)
}

// NightSide returns the hemisphere that lies beyond the terminator curve.
// With the sun north of the equator the dark cap is the southern side of the
// curve, and vice versa.
func NightSide(pos core.SolarPosition) core.Hemisphere {
	if pos.DeclinationDeg < 0 {
		return core.NightNorth
	}
	return core.NightSouth
}

// BuildNightPolygon computes the terminator for t and closes it into a ring
// through the night-side pole. Before noon the sweep runs east to west and the
// corners follow in the reversed order.
func BuildNightPolygon(pos core.SolarPosition, t time.Time) core.NightPolygon {
	points := Terminator(pos, t)
	after := AfterSolarNoon(t)
	if !after {
		reversed := make([]core.LonLat, len(points))
		for i, p := range points {
			reversed[len(points)-1-i] = p
		}
		points = reversed
	}

	side := NightSide(pos)
	np := core.NightPolygon{
		Terminator: points,
		NightSide:  side,
		AfterNoon:  after,
	}
	if len(points) == 0 {
		return np
	}

	first, last := points[0], points[len(points)-1]
	pole := side.PoleLat()

	ring := make([]core.LonLat, 0, len(points)+3)
	ring = append(ring, points...)
	ring = append(ring,
		core.LonLat{Lon: last.Lon, Lat: pole},
		core.LonLat{Lon: first.Lon, Lat: pole},
		first,
	)
	np.Ring = ring
	return np
}

// NightPolygonAt is a convenience for BuildNightPolygon(solar.Compute(t), t).
func NightPolygonAt(t time.Time) core.NightPolygon {
	return BuildNightPolygon(solar.Compute(t), t)
}

// ToPolygon converts the night ring to a validated simplefeatures polygon.
func ToPolygon(np core.NightPolygon) (geom.Polygon, error) {
	if len(np.Terminator) == 0 {
		return geom.Polygon{}, ErrEmptyTerminator
	}

	flat := make([]float64, 0, len(np.Ring)*2)
	for _, p := range np.Ring {
		flat = append(flat, p.Lon, p.Lat)
	}
	ring := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	poly := geom.NewPolygon([]geom.LineString{ring})
	if err := poly.Validate(); err != nil {
		return geom.Polygon{}, fmt.Errorf("invalid night polygon: %w", err)
	}
	return poly, nil
}

// Feature wraps the night polygon as the single GeoJSON feature used by the
// overlay source.
func Feature(np core.NightPolygon) (geom.GeoJSONFeature, error) {
	poly, err := ToPolygon(np)
	if err != nil {
		return geom.GeoJSONFeature{}, err
	}
	return geom.GeoJSONFeature{
		Geometry: poly.AsGeometry(),
		Properties: map[string]interface{}{
			"type":      "night",
			"nightSide": np.NightSide.String(),
		},
	}, nil
}

// GEO POINTS

// Position2DFromString parses a "long,lat" string into a coordinate.
func Position2DFromString(coords string) (core.LonLat, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return core.LonLat{}, ErrInvalidCoordinates
	}
	long, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.LonLat{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.LonLat{}, ErrInvalidCoordinates
	}
	if long < -180 || long > 180 || lat < -90 || lat > 90 {
		return core.LonLat{}, ErrInvalidCoordinates
	}
	return core.LonLat{Lon: long, Lat: lat}, nil
}

// Coords3857From4326 projects a longitude and latitude to web mercator.
// Latitudes beyond the projection limit are clamped.
func Coords3857From4326(longitude, latitude float64) geom.XY {
	latitude = math.Max(-MercatorMaxLat, math.Min(MercatorMaxLat, latitude))
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	return geom.XY{X: x, Y: y}
}

// ToMercator projects the night ring for surfaces that render in EPSG:3857.
func ToMercator(np core.NightPolygon) (geom.Polygon, error) {
	if len(np.Terminator) == 0 {
		return geom.Polygon{}, ErrEmptyTerminator
	}
	flat := make([]float64, 0, len(np.Ring)*2)
	for _, p := range np.Ring {
		xy := Coords3857From4326(p.Lon, p.Lat)
		flat = append(flat, xy.X, xy.Y)
	}
	ring := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	return geom.NewPolygon([]geom.LineString{ring}), nil
}

// MarkerPoint projects a person's position to web mercator.
func MarkerPoint(p core.Person) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   Coords3857From4326(p.Longitude, p.Latitude),
		Type: geom.DimXY,
	})
}
