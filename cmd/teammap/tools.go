package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/teammap/teammap/internal/geo"
	"github.com/teammap/teammap/internal/schedule"
	"github.com/teammap/teammap/internal/solar"
	"github.com/teammap/teammap/internal/tz"
	"github.com/teammap/teammap/pkg/core"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/spf13/cobra"
)

// parseAt reads an RFC 3339 instant, or returns now when s is empty.
func parseAt(s string, now func() time.Time) (time.Time, error) {
	if s == "" {
		return now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q, want RFC 3339: %w", s, err)
	}
	return t.UTC(), nil
}

func newTerminatorCmd() *cobra.Command {
	var (
		at       string
		mercator bool
	)

	cmd := &cobra.Command{
		Use:   "terminator",
		Short: "Print the night region as a GeoJSON feature",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseAt(at, time.Now)
			if err != nil {
				return err
			}
			f, err := nightFeature(geo.NightPolygonAt(t), mercator)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), f)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "instant in RFC 3339, defaults to now")
	cmd.Flags().BoolVar(&mercator, "mercator", false, "project coordinates to web mercator (EPSG:3857)")

	return cmd
}

func nightFeature(np core.NightPolygon, mercator bool) (geom.GeoJSONFeature, error) {
	if !mercator {
		return geo.Feature(np)
	}
	poly, err := geo.ToMercator(np)
	if err != nil {
		return geom.GeoJSONFeature{}, err
	}
	return geom.GeoJSONFeature{
		Geometry: poly.AsGeometry(),
		Properties: map[string]interface{}{
			"type":      "night",
			"nightSide": np.NightSide.String(),
			"crs":       "EPSG:3857",
		},
	}, nil
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func newSolarCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "solar",
		Short: "Print the sun's declination and the equation of time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseAt(at, time.Now)
			if err != nil {
				return err
			}
			pos := solar.Compute(t)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "time              %s\n", t.Format(time.RFC3339))
			fmt.Fprintf(out, "julian day        %.5f\n", solar.JulianDay(t))
			fmt.Fprintf(out, "declination       %.4f°\n", pos.DeclinationDeg)
			fmt.Fprintf(out, "equation of time  %.2f min\n", pos.EquationOfTimeMin)
			fmt.Fprintf(out, "night side        %s\n", geo.NightSide(pos))
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "instant in RFC 3339, defaults to now")

	return cmd
}

func newOffsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "offset <tzid>",
		Short: "Print the current UTC offset and local time of a timezone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clock := schedule.Real()
			resolver := tz.NewResolver(clock, slog.New(slog.DiscardHandler))
			tzid := args[0]

			o := resolver.ResolveOffsetHours(tzid, nil)
			if !o.Valid {
				return fmt.Errorf("unknown timezone %q", tzid)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n",
				tzid, tz.FormatOffset(o), tz.FormatPopupTime(clock.Now(), tzid))
			return nil
		},
	}
}
