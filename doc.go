/*
Command gwmoc writes Multi-Order Coverage maps (MOCs) for confidence
contours of gravitational wave sky maps.

Contents

  Program overview
  Command line usage
  Configuration
  File formats
  Algorithm outline


Program overview

Input is a multi-order HEALPix sky map as distributed with LIGO/Virgo/KAGRA
alerts, for example bayestar.multiorder.fits.  For each requested contour,
say 90%, output is a MOC file holding the smallest set of sky cells that
together contain 90% of the map's probability.

Sample run:

  gwmoc write S230922g/bayestar.multiorder.fits --directory=/data/mocs --contours=90,50,10

writes /data/mocs/90.moc, 50.moc and 10.moc and logs the area of each
contour.  With --organise the files go in a subdirectory named for the sky
map, here /data/mocs/bayestar/.


Command line usage

  gwmoc write <skymap> [--directory=<dir>] [--contours=<list>]
                       [--logfile=<file>] [--organise] [--writemeta]
  gwmoc area <skymap> [--contours=<list>]
  gwmoc inspect <moc>
  gwmoc version

Contours are percentages separated by commas with no spaces.  The default
is 90.  A contour that isn't a number in (0,100] is reported and skipped;
the others are still written.  If any contour fails the command exits
with a non-zero status after attempting all of them.

The directory defaults to /tmp.  It must exist unless --organise is given.

--writemeta writes a YAML summary, <skymap name>.yaml, beside the MOCs.  It
records the sum of probability, the position of the densest cell, and for
each contour the number of cells, area, and file name.

Area prints contour areas without writing anything.  Inspect describes an
existing MOC file.


Configuration

Any flag may also be given in a config file named with --config (YAML,
TOML, or JSON, by extension) or as an environment variable with prefix
GWMOC_, as in GWMOC_DIRECTORY=/data/mocs.  A flag given on the command line
takes precedence over the environment, which takes precedence over the
config file.


File formats

The sky map is a FITS file, optionally gzip compressed, with a binary table
having columns UNIQ and PROBDENSITY.  UNIQ is a NUNIQ pixel index, encoding
HEALPix order and nested pixel number as 4*4^order + ipix.  PROBDENSITY is
probability per steradian.  Other columns are ignored.

A MOC file is a FITS file with a binary table having the single column UNIQ.
Cells are in order of decreasing probability density.  The column is declared
TFORM1 = '1K'.  This is equivalent to the 'K' that FITS writers produce by
default, but some MOC readers accept only the explicit repeat count, so
gwmoc rewrites the card after writing the file.


Algorithm outline

Cells are ranked by decreasing probability density, equal densities by
increasing UNIQ.  The probability of each cell is its density times its
solid angle, 4π/(12*4^order).  The contour at level c is the shortest run
of ranked cells whose running probability reaches c times the total
probability of the map.  The total is not assumed to be 1.  The area is the
summed solid angle of those cells, in square degrees.
*/
package main
