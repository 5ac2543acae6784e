package resolver

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/wroge/wgs84"

	"github.com/gazetteer-geocoder/app/config"
)

// Centroid computes the representative point of a multipolygon. The
// geometry is projected into the UTM zone covering it first, so the area
// centroid is computed in meters rather than degrees, then transformed back
// to lon/lat.
func Centroid(mp orb.MultiPolygon) (lon, lat float64, err error) {
	anchor, ok := firstPoint(mp)
	if !ok {
		return 0, 0, errors.New("empty geometry")
	}
	zone := utmZone(anchor[0])
	northern := anchor[1] >= 0

	forward := wgs84.Transform(wgs84.LonLat(), wgs84.UTM(float64(zone), northern))
	inverse := wgs84.Transform(wgs84.UTM(float64(zone), northern), wgs84.LonLat())

	projected := make(orb.MultiPolygon, len(mp))
	for i, poly := range mp {
		projected[i] = make(orb.Polygon, len(poly))
		for j, ring := range poly {
			projRing := make(orb.Ring, len(ring))
			for k, pt := range ring {
				x, y, _ := forward(pt[0], pt[1], 0)
				projRing[k] = orb.Point{x, y}
			}
			projected[i][j] = projRing
		}
	}

	center, area := planar.CentroidArea(projected)
	if area == 0 {
		return 0, 0, errors.New("degenerate geometry")
	}
	lon, lat, _ = inverse(center[0], center[1], 0)
	return lon, lat, nil
}

func utmZone(lon float64) int {
	if lon < -180 || lon > 180 {
		return config.C.Resolver.CentroidUTMZone
	}
	zone := int((lon+180)/6) + 1
	if zone > 60 {
		zone = 60
	}
	return zone
}

func firstPoint(mp orb.MultiPolygon) (orb.Point, bool) {
	for _, poly := range mp {
		for _, ring := range poly {
			if len(ring) > 0 {
				return ring[0], true
			}
		}
	}
	return orb.Point{}, false
}
