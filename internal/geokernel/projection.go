package geokernel

import "math"

// Mean Earth radius in meters (IUGG).
const earthRadiusM = 6371008.8

// DegreesPerKM is an approximate conversion factor for latitude degrees to
// kilometers. At mid-latitudes, 1 degree of latitude is approximately 111 km.
const DegreesPerKM = 1.0 / 111.0

// planeProjection is an equirectangular projection centered on a reference
// point. Distances computed on lon/lat inputs must go through a projection
// like this one, never naively through degrees: a degree of longitude shrinks
// with latitude.
type planeProjection struct {
	lon0, lat0 float64
	cosLat0    float64
}

func newPlaneProjection(lon0, lat0 float64) planeProjection {
	return planeProjection{lon0: lon0, lat0: lat0, cosLat0: math.Cos(lat0 * math.Pi / 180)}
}

// forward maps lon/lat degrees to meters east/north of the projection center.
func (p planeProjection) forward(lon, lat float64) (x, y float64) {
	x = earthRadiusM * (lon - p.lon0) * math.Pi / 180 * p.cosLat0
	y = earthRadiusM * (lat - p.lat0) * math.Pi / 180
	return x, y
}

// inverse maps meters east/north back to lon/lat degrees.
func (p planeProjection) inverse(x, y float64) (lon, lat float64) {
	lon = p.lon0 + x/(earthRadiusM*p.cosLat0)*180/math.Pi
	lat = p.lat0 + y/earthRadiusM*180/math.Pi
	return lon, lat
}

// Haversine returns the great-circle distance in meters between two lon/lat
// points.
func Haversine(lon1, lat1, lon2, lat2 float64) float64 {
	const degToRad = math.Pi / 180
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * earthRadiusM * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
