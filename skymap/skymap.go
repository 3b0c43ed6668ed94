// Public domain.

// Package skymap holds multi-order HEALPix probability sky maps, as
// distributed with gravitational wave alerts.
//
// A map is a list of cells at possibly mixed resolution, each identified by
// a NUNIQ index and carrying a probability density in sr⁻¹.  On disk a map
// is a FITS binary table with columns UNIQ and PROBDENSITY; other columns
// such as the distance layers DISTMU, DISTSIGMA, and DISTNORM are ignored.
package skymap

import (
	"math"

	"github.com/astrogo/fitsio"

	"github.com/gkligo/gwmoc/healpix"
	"github.com/gkligo/gwmoc/mocerr"
)

// Column names fixed by the map producers.
const (
	ColUniq        = "UNIQ"
	ColProbDensity = "PROBDENSITY"
)

// MetaKeys lists header keywords carried from an input map to the
// coverage maps made from it.
var MetaKeys = []string{"OBJECT", "DATE-OBS", "MJD-OBS", "INSTRUME", "ORIGIN"}

// Cell is one pixel of a multi-order map.
type Cell struct {
	Uniq        uint64
	ProbDensity float64 // probability per steradian
}

// Map is a multi-order probability sky map.
//
// Cells are in file order.  Nothing in this module reorders Cells; ranking
// is done on a separate index permutation, so one Map may back any number
// of extractions.
type Map struct {
	Cells []Cell
	Meta  []fitsio.Card // header cards named in MetaKeys, in that order
}

// Validate checks that m is usable for contour extraction:  it must have
// at least one cell, every UNIQ must decode, no density may be negative or
// NaN, and at least one density must be positive and finite.
func (m *Map) Validate() error {
	if m == nil || len(m.Cells) == 0 {
		return mocerr.Errorf(mocerr.InvalidInput, "skymap.Validate", "map has no cells")
	}
	positive := false
	for i, c := range m.Cells {
		if _, err := healpix.Order(c.Uniq); err != nil {
			return mocerr.New(mocerr.InvalidInput, "skymap.Validate", "bad uniq", err)
		}
		switch d := c.ProbDensity; {
		case math.IsNaN(d) || d < 0:
			return mocerr.Errorf(mocerr.InvalidInput, "skymap.Validate",
				"cell %d (uniq %d): invalid density %g", i, c.Uniq, d)
		case d > 0 && !math.IsInf(d, 1):
			positive = true
		}
	}
	if !positive {
		return mocerr.Errorf(mocerr.InvalidInput, "skymap.Validate",
			"map has no cell with positive density")
	}
	return nil
}

// Orders returns the shallowest and deepest resolution orders present.
// Cells with undecodable UNIQ are skipped.
func (m *Map) Orders() (lo, hi int) {
	lo = healpix.MaxOrder + 1
	hi = -1
	for _, c := range m.Cells {
		o, err := healpix.Order(c.Uniq)
		if err != nil {
			continue
		}
		if o < lo {
			lo = o
		}
		if o > hi {
			hi = o
		}
	}
	return
}

// MetaValue returns the value of header keyword key as carried in Meta,
// or nil if the key was not present.
func (m *Map) MetaValue(key string) interface{} {
	for _, c := range m.Meta {
		if c.Name == key {
			return c.Value
		}
	}
	return nil
}
