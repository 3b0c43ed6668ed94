// Public domain.

// Package moc makes Multi-Order Coverage maps from probability sky maps.
//
// A coverage map is the list of NUNIQ cells of a confidence region, with
// no probability column.  It is written as a FITS binary table with the
// single column UNIQ, declared with TFORM1 = '1K'.  Some MOC readers reject
// the equivalent 'K' that FITS serializers emit by default, so Write
// finishes by rewriting that one header card in place; see
// FixColumnFormat.
package moc

import (
	"github.com/gkligo/gwmoc/contour"
	"github.com/gkligo/gwmoc/healpix"
	"github.com/gkligo/gwmoc/mocerr"
	"github.com/gkligo/gwmoc/skymap"
)

// Coverage is the cell set of one confidence region.
type Coverage struct {
	Uniq        []uint64 // in rank order, densest first
	Confidence  float64  // requested level
	Probability float64  // fraction of map probability actually enclosed
	AreaSqDeg   float64
	MaxOrder    int // deepest order present
}

// Extract computes the coverage map of m at level confidence.
func Extract(m *skymap.Map, confidence float64) (*Coverage, error) {
	r, err := contour.NewRanked(m)
	if err != nil {
		return nil, err
	}
	g, err := r.Region(confidence)
	if err != nil {
		return nil, err
	}
	return FromRegion(r, g)
}

// FromRegion projects a region of r to its UNIQ column.
//
// Use it with contour.Ranked.Region to extract several levels from one
// ranking.
func FromRegion(r *contour.Ranked, g contour.Region) (*Coverage, error) {
	if len(g.Cells) == 0 {
		return nil, mocerr.Errorf(mocerr.FormatError, "moc.FromRegion",
			"confidence %g selects no cells", g.Confidence)
	}
	c := &Coverage{
		Uniq:        make([]uint64, len(g.Cells)),
		Confidence:  g.Confidence,
		Probability: g.Probability,
		AreaSqDeg:   g.AreaSqDeg,
	}
	for i, x := range g.Cells {
		u := r.Map.Cells[x].Uniq
		c.Uniq[i] = u
		o, err := healpix.Order(u)
		if err != nil {
			return nil, err
		}
		if o > c.MaxOrder {
			c.MaxOrder = o
		}
	}
	return c, nil
}
