// Public domain.

package skymap_test

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/klauspost/compress/gzip"

	"github.com/gkligo/gwmoc/healpix"
	"github.com/gkligo/gwmoc/mocerr"
	"github.com/gkligo/gwmoc/skymap"
)

func testMap() *skymap.Map {
	return &skymap.Map{
		Cells: []skymap.Cell{
			{healpix.Uniq(1, 0), .1},
			{healpix.Uniq(1, 1), .4},
			{healpix.Uniq(2, 8), .3},
			{healpix.Uniq(3, 100), .2},
		},
		Meta: []fitsio.Card{
			{Name: "OBJECT", Value: "S230922g", Comment: "Unique identifier for this event"},
		},
	}
}

func TestWriteRead(t *testing.T) {
	var buf bytes.Buffer
	want := testMap()
	if err := skymap.Write(&buf, want); err != nil {
		t.Fatal(err)
	}
	got, err := skymap.Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Cells) != len(want.Cells) {
		t.Fatalf("read %d cells, want %d", len(got.Cells), len(want.Cells))
	}
	for i, c := range got.Cells {
		if c != want.Cells[i] {
			t.Errorf("cell %d = %+v, want %+v", i, c, want.Cells[i])
		}
	}
	if v, _ := got.MetaValue("OBJECT").(string); v != "S230922g" {
		t.Errorf("OBJECT = %q", v)
	}
	if got.MetaValue("DATE-OBS") != nil {
		t.Error("DATE-OBS present, want absent")
	}
}

func TestWriteColumnScaling(t *testing.T) {
	var buf bytes.Buffer
	if err := skymap.Write(&buf, testMap()); err != nil {
		t.Fatal(err)
	}
	f, err := fitsio.Open(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	table := f.HDUs()[1].(*fitsio.Table)
	// stored values must equal physical values for readers that scale
	for _, c := range table.Cols() {
		if c.Bscale != 1 || c.Bzero != 0 {
			t.Errorf("column %s: TSCAL %v TZERO %v, want 1 and 0", c.Name, c.Bscale, c.Bzero)
		}
	}
}

func TestReadFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "bayestar.multiorder.fits")
	if err := skymap.WriteFile(fn, testMap()); err != nil {
		t.Fatal(err)
	}
	m, err := skymap.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	if lo, hi := m.Orders(); lo != 1 || hi != 3 {
		t.Errorf("Orders() = %d, %d, want 1, 3", lo, hi)
	}

	_, err = skymap.ReadFile(filepath.Join(t.TempDir(), "missing.fits"))
	if !errors.Is(err, mocerr.ErrIO) {
		t.Errorf("missing file: error = %v, want IOError", err)
	}
}

func TestReadFileGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := skymap.Write(zw, testMap()); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	fn := filepath.Join(t.TempDir(), "bayestar.multiorder.fits.gz")
	if err := os.WriteFile(fn, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := skymap.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Cells) != 4 || m.Cells[1].ProbDensity != .4 {
		t.Errorf("cells = %+v", m.Cells)
	}
}

func TestReadDuplicate(t *testing.T) {
	m := testMap()
	m.Cells = append(m.Cells, m.Cells[2])
	var buf bytes.Buffer
	if err := skymap.Write(&buf, m); err != nil {
		t.Fatal(err)
	}
	_, err := skymap.Read(bytes.NewReader(buf.Bytes()))
	if !errors.Is(err, mocerr.ErrInvalidInput) {
		t.Errorf("error = %v, want InvalidInput", err)
	}
}

func TestReadMissingColumn(t *testing.T) {
	var buf bytes.Buffer
	f, err := fitsio.Create(&buf)
	if err != nil {
		t.Fatal(err)
	}
	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err = f.Write(phdu); err != nil {
		t.Fatal(err)
	}
	table, err := fitsio.NewTable("PROB", []fitsio.Column{
		{Name: "UNIQ", Format: "K"},
		{Name: "PROB", Format: "D"},
	}, fitsio.BINARY_TBL)
	if err != nil {
		t.Fatal(err)
	}
	defer table.Close()
	u, p := int64(4), 1.
	if err = table.Write(&u, &p); err != nil {
		t.Fatal(err)
	}
	if err = f.Write(table); err != nil {
		t.Fatal(err)
	}
	f.Close()

	_, err = skymap.Read(bytes.NewReader(buf.Bytes()))
	if !errors.Is(err, mocerr.ErrInvalidInput) {
		t.Errorf("error = %v, want InvalidInput", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		cells []skymap.Cell
		ok    bool
	}{
		{"valid", testMap().Cells, true},
		{"empty", nil, false},
		{"all zero", []skymap.Cell{{4, 0}, {5, 0}}, false},
		{"negative", []skymap.Cell{{4, 1}, {5, -1}}, false},
		{"nan", []skymap.Cell{{4, 1}, {5, math.NaN()}}, false},
		{"bad uniq", []skymap.Cell{{4, 1}, {2, 1}}, false},
		{"zero cells allowed", []skymap.Cell{{4, 1}, {5, 0}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&skymap.Map{Cells: tt.cells}).Validate()
			switch {
			case tt.ok && err != nil:
				t.Errorf("Validate() = %v, want nil", err)
			case !tt.ok && !errors.Is(err, mocerr.ErrInvalidInput):
				t.Errorf("Validate() = %v, want InvalidInput", err)
			}
		})
	}
	var nilMap *skymap.Map
	if err := nilMap.Validate(); !errors.Is(err, mocerr.ErrInvalidInput) {
		t.Errorf("nil map: Validate() = %v", err)
	}
}
