// pkg/core/solar.go
package core

// SolarPosition is the sun's apparent position derived from a single instant.
type SolarPosition struct {
	DeclinationDeg    float64 `json:"declinationDeg"`
	EquationOfTimeMin float64 `json:"equationOfTimeMin"`
}

// LonLat is a geographic coordinate in degrees (EPSG:4326 axis order).
type LonLat struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Hemisphere names the side of the terminator that is in darkness.
type Hemisphere int

const (
	NightSouth Hemisphere = iota
	NightNorth
)

func (h Hemisphere) String() string {
	if h == NightNorth {
		return "north"
	}
	return "south"
}

// PoleLat returns the latitude of the pole on the night side.
func (h Hemisphere) PoleLat() float64 {
	if h == NightNorth {
		return 90
	}
	return -90
}

// NightPolygon is the closed ring covering the unlit part of the globe.
// Terminator holds the boundary points in sweep order; Ring is Terminator
// followed by the two pole-ward corners and the closing point.
type NightPolygon struct {
	Terminator []LonLat
	Ring       []LonLat
	NightSide  Hemisphere
	AfterNoon  bool
}
