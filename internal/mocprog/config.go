// Public domain.

package mocprog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gkligo/gwmoc/mocerr"
)

// defaults, as documented in the usage text.
const (
	defaultDirectory = "/tmp"
	defaultContours  = "90"
)

// Config is the resolved configuration for one run.  It is built once from
// flags, GWMOC_* environment variables, and an optional config file, then
// passed down as plain values.
type Config struct {
	Directory string // where coverage maps are written
	Contours  string // comma separated percentages, e.g. "90,50,10"
	LogFile   string // optional additional log destination
	Organise  bool   // write into a per-map subdirectory
	WriteMeta bool   // write a YAML summary beside the coverage maps
}

// Level is one requested confidence level.
type Level struct {
	Label    string  // as given, used in file names
	Fraction float64 // in (0,1]
}

// loadConfig resolves cmd's flags against the environment and the
// config file named by --config, if any.  Flags explicitly given win,
// then environment, then config file, then flag defaults.
func loadConfig(v *viper.Viper, cmd *cobra.Command) (*Config, error) {
	v.SetEnvPrefix("GWMOC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	if fn := v.GetString("config"); fn > "" {
		v.SetConfigFile(fn)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config file %s: %w", fn, err)
		}
	}
	cfg := &Config{
		Directory: v.GetString("directory"),
		Contours:  v.GetString("contours"),
		LogFile:   v.GetString("logfile"),
		Organise:  v.GetBool("organise"),
		WriteMeta: v.GetBool("writemeta"),
	}
	if cfg.Contours == "" {
		return nil, mocerr.Errorf(mocerr.InvalidInput, "config", "no contours given")
	}
	return cfg, nil
}

// ParseContours splits a comma separated list of percentages into levels.
//
// Entries that are not numbers or not in (0,100] are returned as
// InvalidInput errors and left out; the remaining levels keep their order.
func ParseContours(s string) (levels []Level, errs []error) {
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		p, err := strconv.ParseFloat(f, 64)
		switch {
		case err != nil:
			errs = append(errs, mocerr.New(mocerr.InvalidInput, "contours",
				fmt.Sprintf("contour %s is not a float", f), err))
			continue
		case !(p > 0 && p <= 100):
			errs = append(errs, mocerr.Errorf(mocerr.InvalidInput, "contours",
				"contour %s not in (0,100]", f))
			continue
		}
		levels = append(levels, Level{Label: f, Fraction: p / 100})
	}
	return
}
