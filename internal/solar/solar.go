// Package solar computes the sun's declination and the equation of time
// using the NOAA low-precision model (Meeus, Astronomical Algorithms ch. 25).
package solar

import (
	"math"
	"time"

	"github.com/teammap/teammap/pkg/core"
)

// J2000 is the Julian day of 2000-01-01 12:00 TT.
const J2000 = 2451545.0

// JulianDay converts an instant to a Julian day number with fractional day.
func JulianDay(t time.Time) float64 {
	t = t.UTC()
	month := int(t.Month())
	a := (14 - month) / 12
	y := t.Year() + 4800 - a
	m := month + 12*a - 3
	jdn := t.Day() + (153*m+2)/5 + 365*y + floorDiv(y, 4) - floorDiv(y, 100) + floorDiv(y, 400) - 32045

	dayFraction := (float64(t.Hour()) +
		float64(t.Minute())/60 +
		(float64(t.Second())+float64(t.Nanosecond())/1e9)/3600) / 24

	return float64(jdn) + dayFraction - 0.5
}

// JulianCentury returns the number of Julian centuries since J2000.
func JulianCentury(t time.Time) float64 {
	return (JulianDay(t) - J2000) / 36525.0
}

// Compute returns the solar position for the instant.
func Compute(t time.Time) core.SolarPosition {
	T := JulianCentury(t)

	// geometric mean longitude and anomaly of the sun, degrees
	l0 := mod(280.46646+T*(36000.76983+T*0.0003032), 360)
	m := 357.52911 + T*(35999.05029-0.0001537*T)

	// eccentricity of earth's orbit
	e := 0.016708634 - T*(0.000042037+0.0000001267*T)

	// equation of center
	c := math.Sin(Rad(m))*(1.914602-T*(0.004817+0.000014*T)) +
		math.Sin(Rad(2*m))*(0.019993-0.000101*T) +
		math.Sin(Rad(3*m))*0.000289

	trueLong := l0 + c

	meanObliq := 23 + (26+(21.448-T*(46.815+T*(0.00059-T*0.001813)))/60)/60
	obliqCorr := meanObliq + 0.00256*math.Cos(Rad(125.04-1934.136*T))

	decl := Deg(math.Asin(math.Sin(Rad(obliqCorr)) * math.Sin(Rad(trueLong))))

	y := math.Pow(math.Tan(Rad(obliqCorr/2)), 2)
	l0r := Rad(l0)
	mr := Rad(m)
	eqTime := 4 * Deg(y*math.Sin(2*l0r)-
		2*e*math.Sin(mr)+
		4*e*y*math.Sin(mr)*math.Cos(2*l0r)-
		0.5*y*y*math.Sin(4*l0r)-
		1.25*e*e*math.Sin(2*mr))

	return core.SolarPosition{
		DeclinationDeg:    decl,
		EquationOfTimeMin: eqTime,
	}
}

// Rad converts degrees to radians.
func Rad(d float64) float64 { return d * math.Pi / 180 }

// Deg converts radians to degrees.
func Deg(r float64) float64 { return r * 180 / math.Pi }

func mod(a, b float64) float64 {
	return math.Mod(math.Mod(a, b)+b, b)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
