// Package geo places simulated runs on the globe. Local X is east, local Z
// is north and local Y is elevation; points are projected through Web
// Mercator (EPSG:3857) around a WGS84 origin.
package geo

import (
	"errors"
	"math"

	"github.com/cxd309/vds-engine/internal/model/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// maxMercatorLat is the latitude limit of EPSG:3857.
const maxMercatorLat = 85.05112878

var (
	// ErrInvalidOrigin is returned for an origin outside the Mercator domain.
	ErrInvalidOrigin = errors.New("invalid geo origin")
	// ErrShortTrajectory is returned for fewer than two trajectory points.
	ErrShortTrajectory = errors.New("trajectory needs at least 2 points")
)

// Referencer maps local metres to WGS84 longitude and latitude.
type Referencer struct {
	originX, originY float64 // EPSG:3857
	scale            float64 // Mercator units per ground metre at the origin
	toWGS            func(a, b, c float64) (float64, float64, float64)
}

// NewReferencer anchors local (0, 0) at the given WGS84 coordinate.
func NewReferencer(lat, lon float64) (*Referencer, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.Abs(lat) > maxMercatorLat || math.Abs(lon) > 180 {
		return nil, ErrInvalidOrigin
	}
	epsg := wgs84.EPSG()
	x, y, _ := epsg.Transform(4326, 3857)(lon, lat, 0)
	return &Referencer{
		originX: x,
		originY: y,
		scale:   1 / math.Cos(lat*math.Pi/180),
		toWGS:   epsg.Transform(3857, 4326),
	}, nil
}

// LonLat returns the WGS84 coordinate of local point (x, z).
func (r *Referencer) LonLat(x, z float64) (lon, lat float64) {
	lon, lat, _ = r.toWGS(r.originX+x*r.scale, r.originY+z*r.scale, 0)
	return lon, lat
}

// Trajectory builds a 3D line string from recorded positions. With a
// Referencer the result is in longitude, latitude and elevation; without
// one it stays in local metres (x, z, elevation).
func Trajectory(points []core.Position3D, ref *Referencer) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, ErrShortTrajectory
	}
	flat := make([]float64, 0, len(points)*3)
	for _, p := range points {
		a, b := p.X, p.Z
		if ref != nil {
			a, b = ref.LonLat(p.X, p.Z)
		}
		flat = append(flat, a, b, p.Y)
	}
	seq := geom.NewSequence(flat, geom.DimXYZ)
	return geom.NewLineString(seq)
}

// TrajectoryWKT is Trajectory rendered as WKT. It returns "" for fewer than
// two points.
func TrajectoryWKT(points []core.Position3D, ref *Referencer) string {
	ls, err := Trajectory(points, ref)
	if err != nil {
		return ""
	}
	return ls.AsText()
}
