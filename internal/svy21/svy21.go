// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

// Package svy21 converts between SVY21 (EPSG:3414) grid coordinates and
// WGS84 longitude/latitude.
//
// SVY21 is a transverse Mercator projection on the WGS84 ellipsoid with its
// origin at 1°22'N 103°50'E. Carpark and facility datasets publish
// x_coord/y_coord in this grid. The series expansions below are the
// Redfearn formulas and are accurate to well under a millimetre inside
// Singapore.
package svy21

import "math"

// Projection constants.
const (
	semiMajor      = 6378137.0
	flattening     = 1 / 298.257223563
	originLat      = 1 + 22.0/60 // degrees
	originLon      = 103 + 50.0/60
	falseNorthing  = 38744.572
	falseEasting   = 28001.642
	centralScale   = 1.0
	degreesPerRads = 180 / math.Pi
)

// GeoPoint is a geographic coordinate in decimal degrees.
type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// GridPoint is an SVY21 coordinate in metres.
type GridPoint struct {
	Easting  float64 `json:"easting"`
	Northing float64 `json:"northing"`
}

var (
	semiMinor = semiMajor * (1 - flattening)
	e2        = 2*flattening - flattening*flattening
	e4        = e2 * e2
	e6        = e4 * e2

	a0 = 1 - e2/4 - 3*e4/64 - 5*e6/256
	a2 = 3.0 / 8 * (e2 + e4/4 + 15*e6/128)
	a4 = 15.0 / 256 * (e4 + 3*e6/4)
	a6 = 35 * e6 / 3072

	originArc = meridianArc(originLat)
)

// meridianArc is the distance along the meridian from the equator to lat.
func meridianArc(lat float64) float64 {
	r := lat / degreesPerRads
	return semiMajor * (a0*r - a2*math.Sin(2*r) + a4*math.Sin(4*r) - a6*math.Sin(6*r))
}

// rho is the meridional radius of curvature.
func rho(sin2Lat float64) float64 {
	return semiMajor * (1 - e2) / math.Pow(1-e2*sin2Lat, 1.5)
}

// nu is the prime-vertical radius of curvature.
func nu(sin2Lat float64) float64 {
	return semiMajor / math.Sqrt(1-e2*sin2Lat)
}

// ToWGS84 converts an SVY21 easting/northing to longitude/latitude.
func ToWGS84(easting, northing float64) GeoPoint {
	n := (semiMajor - semiMinor) / (semiMajor + semiMinor)
	n2, n3, n4 := n*n, n*n*n, n*n*n*n

	// Footpoint latitude.
	g := semiMajor * (1 - n) * (1 - n2) * (1 + 9*n2/4 + 225*n4/64) / degreesPerRads
	arc := originArc + (northing-falseNorthing)/centralScale
	sigma := arc / (g * degreesPerRads)
	latP := sigma +
		(3*n/2-27*n3/32)*math.Sin(2*sigma) +
		(21*n2/16-55*n4/32)*math.Sin(4*sigma) +
		(151*n3/96)*math.Sin(6*sigma) +
		(1097*n4/512)*math.Sin(8*sigma)

	sinLatP := math.Sin(latP)
	sin2LatP := sinLatP * sinLatP
	rhoP := rho(sin2LatP)
	nuP := nu(sin2LatP)
	psi := nuP / rhoP
	psi2, psi3, psi4 := psi*psi, psi*psi*psi, psi*psi*psi*psi
	t := math.Tan(latP)
	t2, t4, t6 := t*t, t*t*t*t, t*t*t*t*t*t

	eP := easting - falseEasting
	x := eP / (centralScale * nuP)
	x3, x5, x7 := x*x*x, math.Pow(x, 5), math.Pow(x, 7)

	latFactor := t / (centralScale * rhoP)
	lat := latP -
		latFactor*(eP*x/2) +
		latFactor*(eP*x3/24)*(-4*psi2+9*psi*(1-t2)+12*t2) -
		latFactor*(eP*x5/720)*(8*psi4*(11-24*t2)-12*psi3*(21-71*t2)+15*psi2*(15-98*t2+15*t4)+180*psi*(5*t2-3*t4)+360*t4) +
		latFactor*(eP*x7/40320)*(1385-3633*t2+4095*t4+1575*t6)

	sec := 1 / math.Cos(latP)
	lon := originLon/degreesPerRads +
		x*sec -
		(x3*sec/6)*(psi+2*t2) +
		(x5*sec/120)*(-4*psi3*(1-6*t2)+psi2*(9-68*t2)+72*psi*t2+24*t4) -
		(x7*sec/5040)*(61+662*t2+1320*t4+720*t6)

	return GeoPoint{Lon: lon * degreesPerRads, Lat: lat * degreesPerRads}
}

// FromWGS84 converts latitude/longitude to an SVY21 grid point.
func FromWGS84(lat, lon float64) GridPoint {
	r := lat / degreesPerRads
	sinLat, cosLat := math.Sin(r), math.Cos(r)
	sin2Lat := sinLat * sinLat
	cos2, cos3, cos4 := cosLat*cosLat, math.Pow(cosLat, 3), math.Pow(cosLat, 4)
	cos5, cos6, cos7 := math.Pow(cosLat, 5), math.Pow(cosLat, 6), math.Pow(cosLat, 7)

	rh := rho(sin2Lat)
	v := nu(sin2Lat)
	psi := v / rh
	psi2, psi3, psi4 := psi*psi, psi*psi*psi, psi*psi*psi*psi
	t := math.Tan(r)
	t2, t4, t6 := t*t, t*t*t*t, t*t*t*t*t*t

	w := (lon - originLon) / degreesPerRads
	w2, w4, w6, w8 := w*w, math.Pow(w, 4), math.Pow(w, 6), math.Pow(w, 8)

	northing := falseNorthing + centralScale*(meridianArc(lat)-originArc+
		w2/2*v*sinLat*cosLat+
		w4/24*v*sinLat*cos3*(4*psi2+psi-t2)+
		w6/720*v*sinLat*cos5*(8*psi4*(11-24*t2)-28*psi3*(1-6*t2)+psi2*(1-32*t2)-psi*2*t2+t4)+
		w8/40320*v*sinLat*cos7*(1385-3111*t2+543*t4-t6))

	easting := falseEasting + centralScale*v*w*cosLat*(1+
		w2/6*cos2*(psi-t2)+
		w4/120*cos4*(4*psi3*(1-6*t2)+psi2*(1+8*t2)-psi*2*t2+t4)+
		w6/5040*cos6*(61-479*t2+179*t4-t6))

	return GridPoint{Easting: easting, Northing: northing}
}
