// Public domain.

package moc_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/astrogo/fitsio"

	"github.com/gkligo/gwmoc/healpix"
	"github.com/gkligo/gwmoc/moc"
	"github.com/gkligo/gwmoc/mocerr"
	"github.com/gkligo/gwmoc/skymap"
)

func fourCells() *skymap.Map {
	return &skymap.Map{
		Cells: []skymap.Cell{
			{Uniq: healpix.Uniq(0, 0), ProbDensity: .1},
			{Uniq: healpix.Uniq(0, 1), ProbDensity: .4},
			{Uniq: healpix.Uniq(0, 2), ProbDensity: .3},
			{Uniq: healpix.Uniq(0, 3), ProbDensity: .2},
		},
		Meta: []fitsio.Card{{Name: "OBJECT", Value: "S190425z"}},
	}
}

func TestWriteScenario(t *testing.T) {
	dir := t.TempDir()
	for _, tt := range []struct {
		confidence float64
		want       []uint64
	}{
		{.5, []uint64{5, 6}},
		{.9, []uint64{5, 6, 7}},
		{1e-6, []uint64{5}},
	} {
		fn := filepath.Join(dir, fmt.Sprintf("%g.moc", tt.confidence*100))
		c, err := moc.Write(fourCells(), tt.confidence, fn)
		if err != nil {
			t.Fatal(err)
		}
		wantArea := float64(len(tt.want)) * healpix.PixelArea(0) * healpix.SqDegPerSr
		if d := c.AreaSqDeg - wantArea; d > 1e-9 || d < -1e-9 {
			t.Errorf("%g: area %v, want %v", tt.confidence, c.AreaSqDeg, wantArea)
		}
		got, info, err := moc.ReadFile(fn)
		if err != nil {
			t.Fatal(err)
		}
		if fmt.Sprint(got.Uniq) != fmt.Sprint(tt.want) {
			t.Errorf("%g: UNIQ %v, want %v", tt.confidence, got.Uniq, tt.want)
		}
		if info.ColumnFormat != moc.UniqFormat {
			t.Errorf("%g: TFORM1 = %q, want %q", tt.confidence, info.ColumnFormat, moc.UniqFormat)
		}
		if fmt.Sprint(info.Columns) != "[UNIQ]" {
			t.Errorf("%g: columns %v, want [UNIQ]", tt.confidence, info.Columns)
		}
		if info.Ordering != "NUNIQ" || info.Object != "S190425z" {
			t.Errorf("%g: header ORDERING %q OBJECT %q", tt.confidence, info.Ordering, info.Object)
		}
		if d := got.Confidence - tt.confidence; d > 1e-12 || d < -1e-12 {
			t.Errorf("CONTOUR = %v, want %v", got.Confidence, tt.confidence)
		}
	}
	// no temporary files left behind
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(ents) != 3 {
		t.Errorf("%d files in output directory, want 3", len(ents))
	}
}

func TestWriteIdempotent(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "90.moc")
	if _, err := moc.Write(fourCells(), .9, fn); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := moc.Write(fourCells(), .9, fn); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("rewriting the same coverage map changed the file")
	}
	if len(first)%2880 != 0 {
		t.Errorf("file size %d is not a whole number of FITS blocks", len(first))
	}
}

func TestWriteDeepOrders(t *testing.T) {
	// the column format is fixed regardless of value magnitude
	m := &skymap.Map{Cells: []skymap.Cell{
		{Uniq: healpix.Uniq(29, 12<<58-1), ProbDensity: 3},
		{Uniq: healpix.Uniq(29, 0), ProbDensity: 2},
		{Uniq: healpix.Uniq(20, 77), ProbDensity: 1},
	}}
	fn := filepath.Join(t.TempDir(), "deep.moc")
	c, err := moc.Write(m, 1, fn)
	if err != nil {
		t.Fatal(err)
	}
	if c.MaxOrder != 29 {
		t.Errorf("MaxOrder = %d, want 29", c.MaxOrder)
	}
	got, info, err := moc.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	if info.ColumnFormat != moc.UniqFormat {
		t.Errorf("TFORM1 = %q", info.ColumnFormat)
	}
	if len(got.Uniq) != 3 || got.Uniq[0] != m.Cells[0].Uniq {
		t.Errorf("UNIQ = %v", got.Uniq)
	}
}

func TestFixColumnFormatInPlace(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "50.moc")
	if _, err := moc.Write(fourCells(), .5, fn); err != nil {
		t.Fatal(err)
	}
	want, err := os.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	if err = moc.FixColumnFormat(fn, 1, 1, "K"); err != nil {
		t.Fatal(err)
	}
	patched, err := os.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	if len(patched) != len(want) {
		t.Fatalf("patch changed file length %d to %d", len(want), len(patched))
	}
	var diff []int
	for i := range want {
		if want[i] != patched[i] {
			diff = append(diff, i)
		}
	}
	if len(diff) == 0 || diff[len(diff)-1]-diff[0] >= 80 {
		t.Fatalf("patch changed bytes %v, want bytes within one card", diff)
	}
	if _, info, err := moc.ReadFile(fn); err != nil || info.ColumnFormat != "K" {
		t.Fatalf("after patch: TFORM1 %v, %v", info, err)
	}
	if err = moc.FixColumnFormat(fn, 1, 1, moc.UniqFormat); err != nil {
		t.Fatal(err)
	}
	restored, err := os.ReadFile(fn)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(restored, want) {
		t.Error("patching back did not restore the original bytes")
	}
}

func TestFixColumnFormatErrors(t *testing.T) {
	dir := t.TempDir()
	notFits := filepath.Join(dir, "junk.moc")
	if err := os.WriteFile(notFits, bytes.Repeat([]byte("x"), 100), 0644); err != nil {
		t.Fatal(err)
	}
	for _, fn := range []string{notFits, filepath.Join(dir, "absent.moc")} {
		err := moc.FixColumnFormat(fn, 1, 1, moc.UniqFormat)
		if !errors.Is(err, mocerr.ErrPatch) {
			t.Errorf("%s: error = %v, want PatchError", fn, err)
		}
	}
	if err := moc.FixColumnFormat(filepath.Join(dir, "absent.moc"), 1, 1, moc.UniqFormat); !errors.Is(err, mocerr.ErrIO) {
		t.Errorf("reopen failure: error = %v, want it to match IOError too", err)
	}
	// no such column
	fn := filepath.Join(dir, "90.moc")
	if _, err := moc.Write(fourCells(), .9, fn); err != nil {
		t.Fatal(err)
	}
	if err := moc.FixColumnFormat(fn, 1, 2, "1D"); !errors.Is(err, mocerr.ErrPatch) {
		t.Errorf("TFORM2: error = %v, want PatchError", err)
	}
}

func TestWriteErrors(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "90.moc")
	if _, err := moc.Write(&skymap.Map{}, .9, fn); !errors.Is(err, mocerr.ErrInvalidInput) {
		t.Errorf("empty map: error = %v, want InvalidInput", err)
	}
	if _, err := os.Stat(fn); !os.IsNotExist(err) {
		t.Error("output file created for empty map")
	}
	if _, err := moc.Write(fourCells(), 0, fn); !errors.Is(err, mocerr.ErrInvalidInput) {
		t.Errorf("confidence 0: error = %v, want InvalidInput", err)
	}
	bad := filepath.Join(dir, "no", "such", "dir", "90.moc")
	if _, err := moc.Write(fourCells(), .9, bad); !errors.Is(err, mocerr.ErrIO) {
		t.Errorf("bad directory: error = %v, want IOError", err)
	}
	if err := moc.WriteCoverage(&moc.Coverage{}, nil, fn); !errors.Is(err, mocerr.ErrFormat) {
		t.Errorf("empty coverage: error = %v, want FormatError", err)
	}
}
