// Public domain.

package moc

import (
	"io"
	"os"

	"github.com/astrogo/fitsio"

	"github.com/gkligo/gwmoc/healpix"
	"github.com/gkligo/gwmoc/mocerr"
	"github.com/gkligo/gwmoc/skymap"
)

// Info describes a coverage map file.
type Info struct {
	Columns      []string
	ColumnFormat string // raw TFORM1
	Ordering     string
	Tool         string
	Object       string
}

// ReadFile reads a coverage map written by Write, or any single table
// NUNIQ MOC.
//
// Confidence of the result is taken from the CONTOUR keyword if present.
// AreaSqDeg and MaxOrder are computed from the cells; Probability is not
// recoverable from a MOC and is left zero.
func ReadFile(path string) (*Coverage, *Info, error) {
	const op = "moc.ReadFile"
	fail := func(kind mocerr.Kind, msg string, cause error) error {
		return mocerr.New(kind, op, msg, cause).WithPath(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fail(mocerr.IOError, "open", err)
	}
	defer f.Close()

	info := &Info{}
	if info.ColumnFormat, err = ColumnFormat(f, 1, 1); err != nil {
		return nil, nil, fail(mocerr.FormatError, "column format", err)
	}
	if _, err = f.Seek(0, io.SeekStart); err != nil {
		return nil, nil, fail(mocerr.IOError, "seek", err)
	}
	ff, err := fitsio.Open(f)
	if err != nil {
		return nil, nil, fail(mocerr.IOError, "open fits", err)
	}
	defer ff.Close()
	hdus := ff.HDUs()
	if len(hdus) < 2 {
		return nil, nil, fail(mocerr.FormatError, "no table extension", nil)
	}
	table, ok := hdus[1].(*fitsio.Table)
	if !ok || table.Index(skymap.ColUniq) < 0 {
		return nil, nil, fail(mocerr.FormatError, "no UNIQ table", nil)
	}
	for _, c := range table.Cols() {
		info.Columns = append(info.Columns, c.Name)
	}
	hdr := table.Header()
	info.Ordering = headerString(hdr, "ORDERING")
	info.Tool = headerString(hdr, "MOCTOOL")
	info.Object = headerString(hdr, "OBJECT")

	c := &Coverage{}
	if card := hdr.Get("CONTOUR"); card != nil {
		switch v := card.Value.(type) {
		case float64:
			c.Confidence = v
		case int:
			c.Confidence = float64(v)
		}
	}
	rows, err := table.Read(0, table.NumRows())
	if err != nil {
		return nil, nil, fail(mocerr.IOError, "read rows", err)
	}
	defer rows.Close()
	for rows.Next() {
		var row struct {
			Uniq int64 `fits:"UNIQ"`
		}
		if err = rows.Scan(&row); err != nil {
			return nil, nil, fail(mocerr.IOError, "scan row", err)
		}
		o, err := healpix.Order(uint64(row.Uniq))
		if err != nil {
			return nil, nil, fail(mocerr.FormatError, "row", err)
		}
		if o > c.MaxOrder {
			c.MaxOrder = o
		}
		c.AreaSqDeg += healpix.PixelArea(o) * healpix.SqDegPerSr
		c.Uniq = append(c.Uniq, uint64(row.Uniq))
	}
	if err = rows.Err(); err != nil {
		return nil, nil, fail(mocerr.IOError, "read rows", err)
	}
	return c, info, nil
}

func headerString(h *fitsio.Header, key string) string {
	if c := h.Get(key); c != nil {
		s, _ := c.Value.(string)
		return s
	}
	return ""
}
