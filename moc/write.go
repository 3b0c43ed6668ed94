// Public domain.

package moc

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/astrogo/fitsio"

	"github.com/gkligo/gwmoc/mocerr"
	"github.com/gkligo/gwmoc/skymap"
)

// UniqFormat is the TFORM1 value required in written coverage maps.
const UniqFormat = "1K"

// Tool is recorded in the MOCTOOL header keyword.
var Tool = "gwmoc"

// fixFormat is the second write phase.
var fixFormat = FixColumnFormat

// Write extracts the coverage map of m at level confidence and writes it
// to dest.  See WriteCoverage.
func Write(m *skymap.Map, confidence float64, dest string) (*Coverage, error) {
	c, err := Extract(m, confidence)
	if err != nil {
		return nil, err
	}
	return c, WriteCoverage(c, m.Meta, dest)
}

// WriteCoverage writes c to the FITS file dest, replacing any existing
// file.  Meta cards, typically skymap.Map.Meta, are copied to the table
// header.
//
// Writing is done in two phases.  First the file is serialized to a
// temporary file in dest's directory which is then renamed to dest, so
// dest is only ever absent, the prior file, or a complete FITS file.
// Failures here are IOError.  Then the UNIQ column format card is
// rewritten in place to UniqFormat.  Failures in this second phase are
// PatchError; dest then exists and is valid FITS but still declares the
// serializer's default format.
func WriteCoverage(c *Coverage, meta []fitsio.Card, dest string) error {
	const op = "moc.WriteCoverage"
	if c == nil || len(c.Uniq) == 0 {
		return mocerr.Errorf(mocerr.FormatError, op, "empty coverage map")
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return mocerr.New(mocerr.IOError, op, "create", err).WithPath(dest)
	}
	tmpName := tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()
	fail := func(msg string, err error) error {
		return mocerr.New(mocerr.IOError, op, msg, err).WithPath(dest)
	}
	bw := bufio.NewWriter(tmp)
	if err = Encode(bw, c, meta); err != nil {
		return fail("encode", err)
	}
	if err = bw.Flush(); err != nil {
		return fail("write", err)
	}
	if err = tmp.Chmod(0644); err != nil {
		return fail("chmod", err)
	}
	if err = tmp.Sync(); err != nil {
		return fail("sync", err)
	}
	if err = tmp.Close(); err != nil {
		return fail("close", err)
	}
	if err = os.Rename(tmpName, dest); err != nil {
		return fail("rename", err)
	}
	renamed = true

	return fixFormat(dest, 1, 1, UniqFormat)
}

// Encode serializes c as a FITS stream:  an empty primary HDU followed by
// a binary table with the single 64 bit integer column UNIQ.  The column
// is declared with the serializer's default format; WriteCoverage
// corrects it afterwards.
//
// Output is a pure function of the arguments.  No dates or other varying
// values are recorded.  Besides the MOC keywords the header carries what
// the serializer adds for every column, including TSCAL1 = 1, TZERO1 = 0,
// and a TBCOL1 that only means something in ASCII tables and is ignored
// by readers of binary tables.
func Encode(w io.Writer, c *Coverage, meta []fitsio.Card) error {
	f, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer f.Close()
	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return err
	}
	if err = f.Write(phdu); err != nil {
		return err
	}
	table, err := fitsio.NewTable("MOC", []fitsio.Column{
		{Name: skymap.ColUniq, Format: "K", Bscale: 1},
	}, fitsio.BINARY_TBL)
	if err != nil {
		return err
	}
	defer table.Close()
	cards := []fitsio.Card{
		{Name: "PIXTYPE", Value: "HEALPIX", Comment: "HEALPix magic code"},
		{Name: "ORDERING", Value: "NUNIQ", Comment: "NUNIQ coding method"},
		{Name: "COORDSYS", Value: "C", Comment: "ICRS reference frame"},
		{Name: "MOCORDER", Value: c.MaxOrder, Comment: "MOC resolution (best order)"},
		{Name: "MOCTOOL", Value: Tool, Comment: "Name of the MOC generator"},
		{Name: "CONTOUR", Value: c.Confidence, Comment: "Requested probability level"},
	}
	if err = table.Header().Append(append(cards, meta...)...); err != nil {
		return err
	}
	for _, u := range c.Uniq {
		v := int64(u)
		if err = table.Write(&v); err != nil {
			return err
		}
	}
	return f.Write(table)
}
