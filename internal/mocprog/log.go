// Public domain.

package mocprog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// newLogger returns a logger writing human readable lines to stderr and,
// if logFile is set, JSON lines appended to that file.  The returned
// closer releases the file.
func newLogger(logFile string) (zerolog.Logger, io.Closer, error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	var c io.Closer = nopCloser{}
	if logFile > "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		w = zerolog.MultiLevelWriter(w, f)
		c = f
	}
	return zerolog.New(w).With().Timestamp().Logger(), c, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
