package geo

import "math"

const earthRadiusKm = 6371.0

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Haversine returns the great-circle distance between two points in kilometers.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// Distance returns the great-circle distance between two points in kilometers.
func Distance(a, b Point) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Bounds is an axis-aligned bounding box in decimal degrees.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// BoundsOf computes the bounding box of a point set. An empty set yields the
// zero Bounds.
func BoundsOf(points []Point) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	b := Bounds{
		MinLat: points[0].Lat,
		MaxLat: points[0].Lat,
		MinLon: points[0].Lon,
		MaxLon: points[0].Lon,
	}
	for _, p := range points[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
	}
	return b
}

// Area returns the box area in square degrees.
func (b Bounds) Area() float64 {
	return (b.MaxLat - b.MinLat) * (b.MaxLon - b.MinLon)
}

// IsZero reports whether the box is the zero value.
func (b Bounds) IsZero() bool {
	return b == Bounds{}
}

// OverlapRatio returns the intersection area of a and b divided by the area of
// the smaller box, in [0,1]. Degenerate (zero-area) boxes yield 0.
func OverlapRatio(a, b Bounds) float64 {
	interLat := math.Min(a.MaxLat, b.MaxLat) - math.Max(a.MinLat, b.MinLat)
	interLon := math.Min(a.MaxLon, b.MaxLon) - math.Max(a.MinLon, b.MinLon)
	if interLat <= 0 || interLon <= 0 {
		return 0
	}

	smaller := math.Min(a.Area(), b.Area())
	if smaller <= 0 {
		return 0
	}

	ratio := (interLat * interLon) / smaller
	return math.Min(ratio, 1)
}

// Centroid returns the arithmetic mean of the point set. This is a flat-earth
// approximation, fine at city scale. An empty set yields the zero Point.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var latSum, lonSum float64
	for _, p := range points {
		latSum += p.Lat
		lonSum += p.Lon
	}
	n := float64(len(points))
	return Point{Lat: latSum / n, Lon: lonSum / n}
}
