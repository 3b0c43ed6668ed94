// Public domain.

// Package mocprog is the gwmoc command:  it writes Multi-Order Coverage
// maps for confidence contours of gravitational wave sky maps.
package mocprog

import (
	"fmt"
	"io"

	"github.com/soniakeys/exit"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gkligo/gwmoc/contour"
	"github.com/gkligo/gwmoc/moc"
	"github.com/gkligo/gwmoc/skymap"
)

const versionString = "gwmoc version 0.1.0"

func Main() {
	defer exit.Handler()
	if err := newRootCmd().Execute(); err != nil {
		exit.Log(err)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:   "gwmoc",
		Short: "Write MOCs for confidence contours of multi-order GW sky maps",
		Long: `gwmoc reads a multi-order HEALPix sky map (UNIQ and PROBDENSITY
columns) and writes, for each requested contour, the smallest set of
highest density cells holding that percentage of the map's probability
as a Multi-Order Coverage map.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.String("config", "", "config file (yaml, toml, or json)")
	pf.String("contours", defaultContours,
		"contours wanted, percent, separated by commas with no spaces")
	pf.String("logfile", "", "also append JSON log lines to this file")
	root.AddCommand(newWriteCmd(v), newAreaCmd(v), newInspectCmd(), newVersionCmd())
	return root
}

func newWriteCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write <skymap>",
		Short: "Write a MOC file per contour",
		Example: `  gwmoc write /home/ligo/GWmap.fits --directory=/home/ligo/maps_gkligo --writemeta --contours=90,50,10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, cmd)
			if err != nil {
				return err
			}
			log, c, err := newLogger(cfg.LogFile)
			if err != nil {
				return err
			}
			defer c.Close()
			return writeContours(cfg, args[0], log)
		},
	}
	f := cmd.Flags()
	f.String("directory", defaultDirectory, "directory where the MOCs will be written")
	f.Bool("organise", false, "write into a subdirectory named for the sky map")
	f.Bool("writemeta", false, "also write a YAML summary of the contours")
	return cmd
}

func newAreaCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "area <skymap>",
		Short: "Print the sky area of each contour",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, cmd)
			if err != nil {
				return err
			}
			return printAreas(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, args[0])
		},
	}
}

func printAreas(w, ew io.Writer, cfg *Config, path string) error {
	levels, errs := ParseContours(cfg.Contours)
	for _, err := range errs {
		fmt.Fprintln(ew, err)
	}
	m, err := skymap.ReadFile(path)
	if err != nil {
		return err
	}
	fractions := make([]float64, len(levels))
	for i, lv := range levels {
		fractions[i] = lv.Fraction
	}
	regions, err := contour.Contours(m, fractions)
	if err != nil {
		return err
	}
	for i, g := range regions {
		fmt.Fprintf(w, "%5s%%  %10.2f sq deg  %7d cells\n",
			levels[i].Label, g.AreaSqDeg, len(g.Cells))
	}
	return nil
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <moc>",
		Short: "Describe a MOC file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, info, err := moc.ReadFile(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "file:      %s\n", args[0])
			if info.Object > "" {
				fmt.Fprintf(w, "object:    %s\n", info.Object)
			}
			fmt.Fprintf(w, "columns:   %v\n", info.Columns)
			fmt.Fprintf(w, "TFORM1:    %s\n", info.ColumnFormat)
			fmt.Fprintf(w, "ordering:  %s\n", info.Ordering)
			fmt.Fprintf(w, "cells:     %d\n", len(c.Uniq))
			fmt.Fprintf(w, "max order: %d\n", c.MaxOrder)
			fmt.Fprintf(w, "area:      %.2f sq deg\n", c.AreaSqDeg)
			if c.Confidence > 0 {
				fmt.Fprintf(w, "contour:   %g\n", c.Confidence)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString)
		},
	}
}
