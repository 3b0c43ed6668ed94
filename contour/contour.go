// Public domain.

// Package contour finds confidence regions in multi-order probability
// sky maps.
//
// A confidence region at level c is the smallest set of cells which,
// taken in order of decreasing probability density, holds at least a
// fraction c of the map's total probability.  Total probability is what
// the map sums to, not an assumed 1.0.
//
// Ranking never reorders the map.  NewRanked computes an index
// permutation and the running sums once; Search and Prefix may then be
// called for any number of levels.
package contour

import (
	"math"
	"sort"

	"github.com/gkligo/gwmoc/healpix"
	"github.com/gkligo/gwmoc/mocerr"
	"github.com/gkligo/gwmoc/skymap"
)

// slack is the relative tolerance allowed when comparing a running sum
// against a target.  Summation order differs from the order targets are
// usually derived in, so an exact boundary such as 0.9 over densities
// .4, .3, .2, .1 may land an ulp short.
const slack = 1e-12

// Rank returns indexes of m.Cells ordered by decreasing probability
// density.  Equal densities are ordered by increasing UNIQ, so the result
// depends only on the set of cells, not on their order in m.
func Rank(m *skymap.Map) []int {
	cells := m.Cells
	idx := make([]int, len(cells))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		ca, cb := cells[idx[a]], cells[idx[b]]
		if ca.ProbDensity != cb.ProbDensity {
			return ca.ProbDensity > cb.ProbDensity
		}
		return ca.Uniq < cb.Uniq
	})
	return idx
}

// Ranked is a map's cells in rank order, with per-cell areas and the
// running probability.
type Ranked struct {
	Map        *skymap.Map
	Order      []int     // indexes into Map.Cells, see Rank
	Area       []float64 // Area[i], sr, of cell Order[i]
	Cumulative []float64 // probability of the first i+1 ranked cells
	Total      float64   // probability of the whole map
}

// NewRanked validates m and ranks its cells.
func NewRanked(m *skymap.Map) (*Ranked, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	r := &Ranked{
		Map:        m,
		Order:      Rank(m),
		Area:       make([]float64, len(m.Cells)),
		Cumulative: make([]float64, len(m.Cells)),
	}
	var sum float64
	for i, x := range r.Order {
		c := m.Cells[x]
		a, err := healpix.UniqPixelArea(c.Uniq)
		if err != nil {
			return nil, err
		}
		r.Area[i] = a
		sum += a * c.ProbDensity
		r.Cumulative[i] = sum
	}
	if math.IsInf(sum, 0) || math.IsNaN(sum) || sum <= 0 {
		return nil, mocerr.Errorf(mocerr.InvalidInput, "contour.NewRanked",
			"total probability %g", sum)
	}
	r.Total = sum
	return r, nil
}

// Search returns the length of the smallest ranked prefix holding at
// least fraction confidence of the total probability.
//
// The prefix ends at the leftmost cell where the running sum reaches
// confidence*Total.  If rounding keeps the sum short of a target at or
// near the total, the whole map is returned.
func (r *Ranked) Search(confidence float64) (int, error) {
	if !(confidence > 0 && confidence <= 1) {
		return 0, mocerr.Errorf(mocerr.InvalidInput, "contour.Search",
			"confidence %g not in (0,1]", confidence)
	}
	target := confidence*r.Total - slack*r.Total
	n := len(r.Cumulative)
	i := sort.SearchFloat64s(r.Cumulative, target) + 1
	if i > n {
		i = n
	}
	return i, nil
}

// Region is a ranked prefix of a map.
type Region struct {
	Confidence  float64 // requested level
	Cells       []int   // indexes into Map.Cells, in rank order
	Probability float64 // fraction of total probability enclosed
	AreaSr      float64
	AreaSqDeg   float64
}

// Prefix returns the region made of the first n ranked cells.
func (r *Ranked) Prefix(n int) Region {
	var area float64
	for _, a := range r.Area[:n] {
		area += a
	}
	g := Region{
		Cells:     r.Order[:n:n],
		AreaSr:    area,
		AreaSqDeg: area * healpix.SqDegPerSr,
	}
	if n > 0 {
		g.Probability = r.Cumulative[n-1] / r.Total
	}
	return g
}

// Region returns the confidence region at level confidence.
func (r *Ranked) Region(confidence float64) (Region, error) {
	n, err := r.Search(confidence)
	if err != nil {
		return Region{}, err
	}
	g := r.Prefix(n)
	g.Confidence = confidence
	return g, nil
}

// EstimateArea returns the area in square degrees of the confidence
// region of m at level confidence.
func EstimateArea(m *skymap.Map, confidence float64) (float64, error) {
	r, err := NewRanked(m)
	if err != nil {
		return 0, err
	}
	g, err := r.Region(confidence)
	if err != nil {
		return 0, err
	}
	return g.AreaSqDeg, nil
}

// Contours returns confidence regions of m for each level, ranking the map
// only once.
func Contours(m *skymap.Map, confidences []float64) ([]Region, error) {
	r, err := NewRanked(m)
	if err != nil {
		return nil, err
	}
	regions := make([]Region, len(confidences))
	for i, c := range confidences {
		if regions[i], err = r.Region(c); err != nil {
			return nil, err
		}
	}
	return regions, nil
}
