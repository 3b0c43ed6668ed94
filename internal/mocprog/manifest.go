// Public domain.

package mocprog

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gkligo/gwmoc/contour"
	"github.com/gkligo/gwmoc/mocerr"
	"github.com/gkligo/gwmoc/skymap"
)

// manifest summarizes one write run.  With --writemeta it is saved as
// YAML beside the coverage maps.
type manifest struct {
	SkyMap      string            `yaml:"skymap"`
	Object      string            `yaml:"object,omitempty"`
	Cells       int               `yaml:"cells"`
	Probability float64           `yaml:"sum_probability"`
	Peak        manifestPeak      `yaml:"peak"`
	Contours    []manifestContour `yaml:"contours"`
}

type manifestPeak struct {
	RA    string `yaml:"ra"`
	Dec   string `yaml:"dec"`
	Order int    `yaml:"order"`
}

type manifestContour struct {
	Label       string  `yaml:"contour"`
	Fraction    float64 `yaml:"fraction"`
	File        string  `yaml:"file"`
	Cells       int     `yaml:"cells"`
	Probability float64 `yaml:"probability"`
	AreaSqDeg   float64 `yaml:"area_sq_deg"`
	Error       string  `yaml:"error,omitempty"`
}

func newManifest(path string, m *skymap.Map, r *contour.Ranked, p peak) *manifest {
	mf := &manifest{
		SkyMap:      path,
		Cells:       len(m.Cells),
		Probability: r.Total,
		Peak:        manifestPeak{RA: p.RA, Dec: p.Dec, Order: p.Order},
	}
	mf.Object, _ = m.MetaValue("OBJECT").(string)
	return mf
}

func (mf *manifest) writeFile(fn string) (err error) {
	f, err := os.Create(fn)
	if err != nil {
		return mocerr.New(mocerr.IOError, "manifest", "create", err).WithPath(fn)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = mocerr.New(mocerr.IOError, "manifest", "close", cerr).WithPath(fn)
		}
	}()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err = enc.Encode(mf); err != nil {
		return mocerr.New(mocerr.IOError, "manifest", "encode", err).WithPath(fn)
	}
	return enc.Close()
}
