// Public domain.

// Package healpix implements the small part of the HEALPix pixelization
// needed for multi-order maps:  the NUNIQ index scheme, pixel areas, and
// nested-scheme pixel centers.
//
// In the NUNIQ scheme a pixel ipix at resolution order is stored as the
// single integer
//
//	uniq = 4 * 4^order + ipix
//
// Since 0 <= ipix < 12 * 4^order, each order occupies a distinct range of
// uniq values and the order can be recovered from the bit length of uniq.
package healpix

import (
	"math"
	"math/bits"

	"github.com/soniakeys/unit"

	"github.com/gkligo/gwmoc/mocerr"
)

// MaxOrder is the deepest order representable in a 64 bit NUNIQ index.
const MaxOrder = 29

// SqDegPerSr converts steradians to square degrees.
const SqDegPerSr = (180 / math.Pi) * (180 / math.Pi)

// Nside returns the HEALPix nside parameter for order, 2^order.
func Nside(order int) uint64 {
	return 1 << uint(order)
}

// Npix returns the number of pixels covering the sphere at order.
func Npix(order int) uint64 {
	return 12 << (2 * uint(order))
}

// Order decodes the resolution order from a NUNIQ index.
//
// Equivalent to floor(log4(uniq/4)) but computed exactly from the bit
// length.  Uniq values below 4 would decode to a negative order and values
// at or above 16 * 4^MaxOrder to an order deeper than MaxOrder.  Both are
// reported as FormatError.
func Order(uniq uint64) (int, error) {
	if uniq < 4 {
		return 0, mocerr.Errorf(mocerr.FormatError, "healpix.Order",
			"uniq %d decodes to a negative order", uniq)
	}
	order := (bits.Len64(uniq) - 3) / 2
	if order > MaxOrder {
		return 0, mocerr.Errorf(mocerr.FormatError, "healpix.Order",
			"uniq %d decodes to order %d > %d", uniq, order, MaxOrder)
	}
	return order, nil
}

// Decode splits a NUNIQ index into order and nested pixel number.
func Decode(uniq uint64) (order int, ipix uint64, err error) {
	if order, err = Order(uniq); err != nil {
		return
	}
	ipix = uniq - 4<<(2*uint(order))
	return
}

// Uniq encodes order and nested pixel number as a NUNIQ index.
// It is the inverse of Decode for valid arguments.
func Uniq(order int, ipix uint64) uint64 {
	return 4<<(2*uint(order)) + ipix
}

// PixelArea returns the solid angle of one pixel at order, in steradians.
func PixelArea(order int) float64 {
	return 4 * math.Pi / float64(Npix(order))
}

// UniqPixelArea returns the solid angle in steradians of the pixel
// identified by a NUNIQ index.
func UniqPixelArea(uniq uint64) (float64, error) {
	order, err := Order(uniq)
	if err != nil {
		return 0, err
	}
	return PixelArea(order), nil
}

// Resolution returns the approximate linear size of a pixel at order,
// the square root of its solid angle.
func Resolution(order int) unit.Angle {
	return unit.Angle(math.Sqrt(PixelArea(order)))
}

// face layout of the 12 base pixels: ring number and longitude
// index of each face's southern corner, in units of nside.
var (
	jrll = [12]uint64{2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4}
	jpll = [12]int64{1, 3, 5, 7, 0, 2, 4, 6, 1, 3, 5, 7}
)

// compress gathers the even-numbered bits of v into the low half.
func compress(v uint64) uint64 {
	v &= 0x5555555555555555
	v = (v | v>>1) & 0x3333333333333333
	v = (v | v>>2) & 0x0f0f0f0f0f0f0f0f
	v = (v | v>>4) & 0x00ff00ff00ff00ff
	v = (v | v>>8) & 0x0000ffff0000ffff
	v = (v | v>>16) & 0x00000000ffffffff
	return v
}

// Center returns the center of nested pixel ipix at order as colatitude
// theta in [0, π] and longitude phi in [0, 2π), both in radians.
//
// Ipix must be less than Npix(order).
func Center(order int, ipix uint64) (theta, phi float64) {
	nside := Nside(order)
	npface := nside * nside
	face := ipix / npface
	ipf := ipix & (npface - 1)
	ix := int64(compress(ipf))
	iy := int64(compress(ipf >> 1))

	// ring number counted from the north pole, 1 .. 4*nside-1
	jr := int64(jrll[face]*nside) - ix - iy - 1
	ns := int64(nside)
	var nr int64
	var z float64
	switch {
	case jr < ns: // north polar cap
		nr = jr
		z = 1 - float64(nr*nr)/(3*float64(npface))
	case jr > 3*ns: // south polar cap
		nr = 4*ns - jr
		z = float64(nr*nr)/(3*float64(npface)) - 1
	default: // equatorial belt
		nr = ns
		z = float64(2*ns-jr) * 2 / (3 * float64(ns))
	}
	tmp := jpll[face]*nr + ix - iy
	if tmp < 0 {
		tmp += 8 * nr
	}
	return math.Acos(z), math.Pi / 4 * float64(tmp) / float64(nr)
}

// Position returns the equatorial position of the center of the pixel
// identified by a NUNIQ index, taking HEALPix longitude as right ascension
// and latitude as declination.
func Position(uniq uint64) (ra unit.RA, dec unit.Angle, err error) {
	order, ipix, err := Decode(uniq)
	if err != nil {
		return
	}
	theta, phi := Center(order, ipix)
	return unit.RA(phi), unit.Angle(math.Pi/2 - theta), nil
}
