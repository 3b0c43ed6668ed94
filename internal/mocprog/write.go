// Public domain.

package mocprog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	sexa "github.com/soniakeys/sexagesimal"

	"github.com/gkligo/gwmoc/contour"
	"github.com/gkligo/gwmoc/healpix"
	"github.com/gkligo/gwmoc/moc"
	"github.com/gkligo/gwmoc/mocerr"
	"github.com/gkligo/gwmoc/skymap"
)

// mapName derives a short name for a sky map from its file name,
// e.g. "bayestar" from "/alerts/S230922g/bayestar.multiorder.fits.gz".
func mapName(path string) string {
	n := filepath.Base(path)
	for _, ext := range []string{".gz", ".fits", ".fit", ".multiorder"} {
		n = strings.TrimSuffix(n, ext)
	}
	return n
}

// outputDir returns the directory coverage maps of path are written to.
func outputDir(cfg *Config, path string) string {
	if cfg.Organise {
		return filepath.Join(cfg.Directory, mapName(path))
	}
	return cfg.Directory
}

// peak describes the densest cell of a ranked map.
type peak struct {
	RA, Dec string
	Order   int
}

func findPeak(r *contour.Ranked) (p peak, err error) {
	u := r.Map.Cells[r.Order[0]].Uniq
	ra, dec, err := healpix.Position(u)
	if err != nil {
		return
	}
	p.Order, _ = healpix.Order(u)
	p.RA = fmt.Sprintf("%.1s", sexa.FmtRA(ra))
	p.Dec = fmt.Sprintf("%+.0s", sexa.FmtAngle(dec))
	return
}

// writeContours is the write command.  The map at path is read and ranked
// once, then a coverage map is written for each level in cfg.Contours.
//
// A failure at one level is logged and does not stop the others.  The
// returned error reports how many levels failed; it is also returned,
// before anything is written, if the map can't be read.
func writeContours(cfg *Config, path string, log zerolog.Logger) error {
	levels, errs := ParseContours(cfg.Contours)
	for _, err := range errs {
		log.Error().Err(err).Msg("skipping contour")
	}
	m, err := skymap.ReadFile(path)
	if err != nil {
		return err
	}
	r, err := contour.NewRanked(m)
	if err != nil {
		return err
	}
	minOrder, maxOrder := m.Orders()
	p, err := findPeak(r)
	if err != nil {
		return err
	}
	log.Info().
		Str("skymap", path).
		Int("cells", len(m.Cells)).
		Int("min_order", minOrder).
		Int("max_order", maxOrder).
		Str("peak_ra", p.RA).
		Str("peak_dec", p.Dec).
		Msgf("Sum probability = %.3f", r.Total)

	dir := outputDir(cfg, path)
	if cfg.Organise {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return mocerr.New(mocerr.IOError, "write", "mkdir", err).WithPath(dir)
		}
	}
	mf := newManifest(path, m, r, p)
	failed := 0
	for _, lv := range levels {
		dest := filepath.Join(dir, lv.Label+".moc")
		entry := manifestContour{Label: lv.Label, Fraction: lv.Fraction, File: filepath.Base(dest)}
		c, err := writeLevel(r, lv, dest, log)
		if c != nil {
			entry.Cells = len(c.Uniq)
			entry.Probability = c.Probability
			entry.AreaSqDeg = c.AreaSqDeg
		}
		if err != nil {
			failed++
			entry.Error = err.Error()
			ev := log.Error().Err(err).Str("contour", lv.Label)
			if mocerr.KindOf(err) == mocerr.PatchError {
				ev.Str("file", dest).Msg("MOC file written but column format not corrected")
			} else {
				ev.Msg("MOC file not written")
			}
		}
		mf.Contours = append(mf.Contours, entry)
	}
	if cfg.WriteMeta {
		fn := filepath.Join(dir, mapName(path)+".yaml")
		if err := mf.writeFile(fn); err != nil {
			log.Error().Err(err).Str("file", fn).Msg("metadata not written")
			failed++
		} else {
			log.Info().Str("file", fn).Msg("metadata written")
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d failures writing %d contours", failed, len(levels))
	}
	return nil
}

// writeCoverage writes one coverage map file.
var writeCoverage = moc.WriteCoverage

// writeLevel writes one coverage map.  The coverage is returned with a
// PatchError, when the file was written but not corrected.
func writeLevel(r *contour.Ranked, lv Level, dest string, log zerolog.Logger) (*moc.Coverage, error) {
	g, err := r.Region(lv.Fraction)
	if err != nil {
		return nil, err
	}
	c, err := moc.FromRegion(r, g)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("contour", lv.Label).
		Int("cells", len(c.Uniq)).
		Int("moc_order", c.MaxOrder).
		Msgf("Area of %.2f contour is %.2f sq deg", lv.Fraction, c.AreaSqDeg)
	if err = writeCoverage(c, r.Map.Meta, dest); err != nil {
		if mocerr.KindOf(err) == mocerr.PatchError {
			return c, err
		}
		return nil, err
	}
	log.Info().Str("file", dest).Msg("MOC file written")
	return c, nil
}
