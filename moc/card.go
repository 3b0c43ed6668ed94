// Public domain.

package moc

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gkligo/gwmoc/mocerr"
)

// FITS layout constants.
const (
	blockSize = 2880
	cardSize  = 80
)

// FixColumnFormat sets the format of column col (1 based) of HDU hdu
// (0 is the primary HDU) in the FITS file at path, by rewriting the
// TFORMn header card in place.
//
// Only the 80 bytes of that card change.  The card's comment is kept if
// it still fits.  All errors are PatchError.  Those from reopening,
// writing, or syncing the file also match IOError.
func FixColumnFormat(path string, hdu, col int, format string) (err error) {
	const op = "moc.FixColumnFormat"
	fail := func(msg string, cause error) error {
		return mocerr.New(mocerr.PatchError, op, msg, cause).WithPath(path)
	}
	ioFail := func(msg string, cause error) error {
		return fail(msg, mocerr.New(mocerr.IOError, "", "", cause))
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return ioFail("open", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = ioFail("close", cerr)
		}
	}()

	key := "TFORM" + strconv.Itoa(col)
	off, old, err := findCard(f, hdu, key)
	if err != nil {
		return fail("find "+key, err)
	}
	card, err := stringCard(key, format, cardComment(old))
	if err != nil {
		return fail("format "+key, err)
	}
	if _, err = f.WriteAt(card, off); err != nil {
		return ioFail("write "+key, err)
	}
	if err = f.Sync(); err != nil {
		return ioFail("sync", err)
	}
	return nil
}

// ColumnFormat returns the raw TFORMn value for column col of HDU hdu of
// the FITS stream r.
func ColumnFormat(r io.ReaderAt, hdu, col int) (string, error) {
	_, card, err := findCard(r, hdu, "TFORM"+strconv.Itoa(col))
	if err != nil {
		return "", err
	}
	return cardString(card), nil
}

// findCard locates header card key in HDU hdu, returning its file offset
// and contents.
func findCard(r io.ReaderAt, hdu int, key string) (int64, []byte, error) {
	block := make([]byte, blockSize)
	var off int64
	for h := 0; ; h++ {
		// header: blocks of cards through END
		kw := map[string]int64{}
		found := int64(-1)
		var card []byte
	header:
		for {
			if err := readBlock(r, block, off); err != nil {
				return 0, nil, fmt.Errorf("hdu %d header: %w", h, err)
			}
			for i := 0; i < blockSize; i += cardSize {
				c := block[i : i+cardSize]
				name := strings.TrimRight(string(c[:8]), " ")
				if name == "END" {
					off += blockSize
					break header
				}
				if h == hdu && name == key {
					found = off + int64(i)
					card = append([]byte{}, c...)
				}
				if string(c[8:10]) == "= " {
					if v, err := strconv.ParseInt(cardValue(c), 10, 64); err == nil {
						kw[name] = v
					}
				}
			}
			off += blockSize
		}
		if h == hdu {
			if found < 0 {
				return 0, nil, fmt.Errorf("hdu %d has no %s card", h, key)
			}
			return found, card, nil
		}
		off += dataSize(kw)
	}
}

func readBlock(r io.ReaderAt, block []byte, off int64) error {
	n, err := r.ReadAt(block, off)
	if n == len(block) {
		return nil
	}
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// dataSize computes the padded size of an HDU's data unit from its
// BITPIX, NAXISn, PCOUNT and GCOUNT keywords.
func dataSize(kw map[string]int64) int64 {
	naxis := kw["NAXIS"]
	if naxis == 0 {
		return 0
	}
	n := int64(1)
	for i := int64(1); i <= naxis; i++ {
		n *= kw["NAXIS"+strconv.FormatInt(i, 10)]
	}
	gcount := int64(1)
	if g, ok := kw["GCOUNT"]; ok {
		gcount = g
	}
	bitpix := kw["BITPIX"]
	if bitpix < 0 {
		bitpix = -bitpix
	}
	size := bitpix / 8 * gcount * (kw["PCOUNT"] + n)
	return (size + blockSize - 1) / blockSize * blockSize
}

// cardValue returns the value field of a card, without its comment.
func cardValue(c []byte) string {
	v := string(c[10:])
	if strings.HasPrefix(strings.TrimSpace(v), "'") {
		return cardString(c)
	}
	if i := strings.IndexByte(v, '/'); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

// stringEnd returns the index in s of the quote closing the string
// opened at s[start], or -1.
func stringEnd(s string, start int) int {
	for j := start + 1; j < len(s); j++ {
		if s[j] != '\'' {
			continue
		}
		if j+1 < len(s) && s[j+1] == '\'' {
			j++ // escaped quote
			continue
		}
		return j
	}
	return -1
}

// cardString returns the string value of a card, unescaped and with
// trailing blanks removed as FITS specifies.
func cardString(c []byte) string {
	s := string(c[10:])
	i := strings.IndexByte(s, '\'')
	if i < 0 {
		return ""
	}
	j := stringEnd(s, i)
	if j < 0 {
		return ""
	}
	return strings.TrimRight(strings.ReplaceAll(s[i+1:j], "''", "'"), " ")
}

// cardComment returns the comment of a string valued card.
func cardComment(c []byte) string {
	if len(c) < cardSize {
		return ""
	}
	s := string(c[10:])
	if i := strings.IndexByte(s, '\''); i >= 0 {
		if j := stringEnd(s, i); j >= 0 {
			s = s[j+1:]
		}
	}
	if i := strings.IndexByte(s, '/'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return ""
}

// stringCard formats a fixed-format FITS card with a string value.
// Values are padded to at least 8 characters and the closing quote to
// column 30.  A comment that doesn't fit is truncated.
func stringCard(key, value, comment string) ([]byte, error) {
	if len(key) > 8 {
		return nil, fmt.Errorf("keyword %q longer than 8", key)
	}
	for _, r := range key + value + comment {
		if r < ' ' || r > '~' {
			return nil, fmt.Errorf("non-printable character %q", r)
		}
	}
	v := strings.ReplaceAll(value, "'", "''")
	if len(v) < 8 {
		v += strings.Repeat(" ", 8-len(v))
	}
	s := fmt.Sprintf("%-8s= %-20s", key, "'"+v+"'")
	if len(s) > cardSize {
		return nil, fmt.Errorf("value %q too long for one card", value)
	}
	if comment > "" && len(s)+3 < cardSize {
		s += " / " + comment
	}
	card := bytes.Repeat([]byte{' '}, cardSize)
	copy(card, s)
	return card, nil
}
