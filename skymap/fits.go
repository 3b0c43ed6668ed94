// Public domain.

package skymap

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/astrogo/fitsio"
	"github.com/klauspost/compress/gzip"

	"github.com/gkligo/gwmoc/mocerr"
)

// row layouts for the two density encodings seen in practice.
type row64 struct {
	Uniq        int64   `fits:"UNIQ"`
	ProbDensity float64 `fits:"PROBDENSITY"`
}

type row32 struct {
	Uniq        int64   `fits:"UNIQ"`
	ProbDensity float32 `fits:"PROBDENSITY"`
}

// ReadFile reads a multi-order map from the FITS file at path.  Gzip
// compressed files are recognized and decompressed.
func ReadFile(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, mocerr.New(mocerr.IOError, "skymap.ReadFile", "open", err).WithPath(path)
	}
	defer f.Close()
	br := bufio.NewReader(f)
	var r io.Reader = br
	if magic, _ := br.Peek(2); len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, mocerr.New(mocerr.IOError, "skymap.ReadFile", "gzip", err).WithPath(path)
		}
		defer zr.Close()
		r = zr
	}
	m, err := Read(r)
	if e, ok := err.(*mocerr.Error); ok && e.Path == "" {
		e.WithPath(path)
	}
	return m, err
}

// Read reads a multi-order map from a FITS stream.
//
// The first binary table having both UNIQ and PROBDENSITY columns is used.
// Header keywords in MetaKeys are taken from that table's header, falling
// back on the primary header.  A table with ORDERING other than NUNIQ, or
// with repeated UNIQ values, is rejected as InvalidInput.  The map is not
// validated further; see Map.Validate.
func Read(r io.Reader) (*Map, error) {
	const op = "skymap.Read"
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, mocerr.New(mocerr.IOError, op, "open fits", err)
	}
	defer f.Close()

	hdus := f.HDUs()
	var table *fitsio.Table
	for _, hdu := range hdus {
		t, ok := hdu.(*fitsio.Table)
		if !ok || t.Type() != fitsio.BINARY_TBL {
			continue
		}
		if t.Index(ColUniq) >= 0 && t.Index(ColProbDensity) >= 0 {
			table = t
			break
		}
	}
	if table == nil {
		return nil, mocerr.Errorf(mocerr.InvalidInput, op,
			"no binary table with %s and %s columns", ColUniq, ColProbDensity)
	}
	if c := table.Header().Get("ORDERING"); c != nil {
		if s, _ := c.Value.(string); s != "" && strings.TrimSpace(s) != "NUNIQ" {
			return nil, mocerr.Errorf(mocerr.InvalidInput, op,
				"ORDERING is %q, want NUNIQ", s)
		}
	}

	m := &Map{Meta: meta(table.Header(), hdus[0].Header())}
	cells, err := readCells(table)
	if err != nil {
		return nil, err
	}
	m.Cells = cells
	return m, nil
}

// meta collects MetaKeys cards from the first header that has each.
func meta(hdrs ...*fitsio.Header) (cards []fitsio.Card) {
	for _, k := range MetaKeys {
		for _, h := range hdrs {
			if c := h.Get(k); c != nil {
				cards = append(cards, *c)
				break
			}
		}
	}
	return
}

func readCells(table *fitsio.Table) ([]Cell, error) {
	const op = "skymap.Read"
	single := false
	if i := table.Index(ColProbDensity); i >= 0 {
		single = strings.HasSuffix(strings.TrimSpace(table.Cols()[i].Format), "E")
	}
	rows, err := table.Read(0, table.NumRows())
	if err != nil {
		return nil, mocerr.New(mocerr.IOError, op, "read rows", err)
	}
	defer rows.Close()

	cells := make([]Cell, 0, table.NumRows())
	seen := make(map[uint64]struct{}, table.NumRows())
	for rows.Next() {
		var c Cell
		var u int64
		if single {
			var r row32
			err = rows.Scan(&r)
			u, c.ProbDensity = r.Uniq, float64(r.ProbDensity)
		} else {
			var r row64
			err = rows.Scan(&r)
			u, c.ProbDensity = r.Uniq, r.ProbDensity
		}
		if err != nil {
			return nil, mocerr.New(mocerr.IOError, op, "scan row", err)
		}
		if u < 0 {
			return nil, mocerr.Errorf(mocerr.InvalidInput, op,
				"row %d: negative uniq %d", len(cells), u)
		}
		c.Uniq = uint64(u)
		if _, dup := seen[c.Uniq]; dup {
			return nil, mocerr.Errorf(mocerr.InvalidInput, op,
				"row %d: duplicate uniq %d", len(cells), c.Uniq)
		}
		seen[c.Uniq] = struct{}{}
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, mocerr.New(mocerr.IOError, op, "read rows", err)
	}
	return cells, nil
}

// Write writes m as a single-table multi-order FITS stream, with the
// cards of m.Meta and the NUNIQ header keywords.
func Write(w io.Writer, m *Map) error {
	const op = "skymap.Write"
	f, err := fitsio.Create(w)
	if err != nil {
		return mocerr.New(mocerr.IOError, op, "create fits", err)
	}
	defer f.Close()
	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return mocerr.New(mocerr.IOError, op, "primary hdu", err)
	}
	if err = f.Write(phdu); err != nil {
		return mocerr.New(mocerr.IOError, op, "write primary hdu", err)
	}
	table, err := fitsio.NewTable("PROB", []fitsio.Column{
		{Name: ColUniq, Format: "K", Bscale: 1},
		{Name: ColProbDensity, Format: "D", Unit: "sr-1", Bscale: 1},
	}, fitsio.BINARY_TBL)
	if err != nil {
		return mocerr.New(mocerr.IOError, op, "new table", err)
	}
	defer table.Close()
	cards := []fitsio.Card{
		{Name: "PIXTYPE", Value: "HEALPIX", Comment: "HEALPIX pixelisation"},
		{Name: "ORDERING", Value: "NUNIQ", Comment: "Pixel ordering scheme: RING, NESTED, or NUNIQ"},
		{Name: "COORDSYS", Value: "C", Comment: "Ecliptic, Galactic or Celestial (equatorial)"},
	}
	if err = table.Header().Append(append(cards, m.Meta...)...); err != nil {
		return mocerr.New(mocerr.IOError, op, "header", err)
	}
	for _, c := range m.Cells {
		u, d := int64(c.Uniq), c.ProbDensity
		if err = table.Write(&u, &d); err != nil {
			return mocerr.New(mocerr.IOError, op, "write row", err)
		}
	}
	if err = f.Write(table); err != nil {
		return mocerr.New(mocerr.IOError, op, "write table", err)
	}
	return nil
}

// WriteFile writes m to a new FITS file at path, replacing any existing
// file.
func WriteFile(path string, m *Map) error {
	f, err := os.Create(path)
	if err != nil {
		return mocerr.New(mocerr.IOError, "skymap.WriteFile", "create", err).WithPath(path)
	}
	bw := bufio.NewWriter(f)
	if err = Write(bw, m); err == nil {
		err = bw.Flush()
	}
	if err != nil {
		f.Close()
		return mocerr.New(mocerr.IOError, "skymap.WriteFile", "write", err).WithPath(path)
	}
	if err = f.Close(); err != nil {
		return mocerr.New(mocerr.IOError, "skymap.WriteFile", "close", err).WithPath(path)
	}
	return nil
}
