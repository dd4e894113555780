// Package tzoverlay loads timezone boundaries, normalizes their identifiers,
// groups them by current offset and labels them for popups.
package tzoverlay

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/teammap/teammap/internal/render"
	"github.com/teammap/teammap/internal/schedule"
	"github.com/teammap/teammap/internal/tz"
	"github.com/teammap/teammap/internal/util"
	"github.com/teammap/teammap/pkg/core"

	"github.com/peterstace/simplefeatures/geom"
)

// PlaceholderText is shown when no boundary source could be loaded.
const PlaceholderText = "Timezone overlay unavailable"

// TZIDKeys are the feature properties that may carry the zone identifier,
// in order of preference.
var TZIDKeys = []string{"tzid", "TZID", "timezone", "time_zone", "zone", "ZONE", "NAME", "name"}

// Palette colours offset groups.
var Palette = []string{
	"rgba(255, 99, 132, 0.3)",
	"rgba(54, 162, 235, 0.3)",
	"rgba(255, 205, 86, 0.3)",
	"rgba(75, 192, 192, 0.3)",
	"rgba(153, 102, 255, 0.3)",
	"rgba(255, 159, 64, 0.3)",
	"rgba(199, 199, 199, 0.3)",
	"rgba(83, 102, 255, 0.3)",
	"rgba(255, 99, 255, 0.3)",
	"rgba(99, 255, 132, 0.3)",
	"rgba(255, 206, 84, 0.3)",
	"rgba(54, 235, 162, 0.3)",
}

// UnresolvedColor fills zones whose offset is unknown.
const UnresolvedColor = "rgba(128, 128, 128, 0.15)"

// Zone is one annotated boundary feature.
type Zone struct {
	UID    int
	TZID   string
	Name   string
	Offset core.Offset
	// Group is the offset rounded to half an hour
	Group float64
	Color string
}

// Label is the popup content for a zone.
type Label struct {
	Name        string
	TZID        string
	Offset      string
	CurrentTime string
}

// NormalizeTZID picks the zone identifier from the feature properties. A
// feature without any falls back to "tz_<index>".
func NormalizeTZID(props map[string]any, index int) string {
	fallback := fmt.Sprintf("tz_%d", index)
	id, _ := util.FirstMatch(append(propertyLookups(props, TZIDKeys), func() (string, bool) {
		return fallback, true
	})...)
	return id
}

func propertyLookups(props map[string]any, keys []string) []func() (string, bool) {
	out := make([]func() (string, bool), 0, len(keys))
	for _, key := range keys {
		out = append(out, func() (string, bool) {
			return stringProp(props, key)
		})
	}
	return out
}

func stringProp(props map[string]any, key string) (string, bool) {
	v, ok := props[key]
	if !ok || v == nil {
		return "", false
	}
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	default:
		s = fmt.Sprint(x)
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// ColorForOffset maps an offset to a palette entry, two hours per colour.
func ColorForOffset(hours float64) string {
	idx := int(math.Floor((hours+12)/2)) % len(Palette)
	if idx < 0 {
		idx = 0
	}
	return Palette[idx]
}

// Builder annotates boundary features.
type Builder struct {
	resolver *tz.Resolver
	clock    schedule.Clock
}

// NewBuilder creates a Builder. A nil clock uses real time.
func NewBuilder(resolver *tz.Resolver, clock schedule.Clock) *Builder {
	if clock == nil {
		clock = schedule.Real()
	}
	if resolver == nil {
		resolver = tz.NewResolver(clock, nil)
	}
	return &Builder{resolver: resolver, clock: clock}
}

// Annotate returns a copy of fc whose features carry normalized "tzid",
// "__uid", "utcOffset" and "color" properties, plus the zone list.
func (b *Builder) Annotate(fc geom.GeoJSONFeatureCollection) (geom.GeoJSONFeatureCollection, []Zone) {
	out := make(geom.GeoJSONFeatureCollection, len(fc))
	zones := make([]Zone, len(fc))
	for i, f := range fc {
		props := make(map[string]any, len(f.Properties)+4)
		for k, v := range f.Properties {
			props[k] = v
		}

		z := b.zone(props, i)
		props["tzid"] = z.TZID
		props["__uid"] = i
		props["color"] = z.Color
		if z.Offset.Valid {
			props["utcOffset"] = z.Group
		}

		f.Properties = props
		out[i] = f
		zones[i] = z
	}
	return out, zones
}

func (b *Builder) zone(props map[string]any, index int) Zone {
	id := NormalizeTZID(props, index)
	name, ok := util.FirstMatch(propertyLookups(props, []string{"NAME", "name"})...)
	if !ok {
		name = id
	}
	off := b.resolver.ResolveOffsetHours(id, props)
	z := Zone{UID: index, TZID: id, Name: name, Offset: off, Color: UnresolvedColor}
	if off.Valid {
		z.Group = tz.RoundHalfHour(off.Hours)
		z.Color = ColorForOffset(z.Group)
	}
	return z
}

// Groups buckets resolved zones by their half-hour offset. Keys are
// returned in ascending order.
func Groups(zones []Zone) ([]float64, map[float64][]Zone) {
	groups := make(map[float64][]Zone)
	for _, z := range zones {
		if !z.Offset.Valid {
			continue
		}
		groups[z.Group] = append(groups[z.Group], z)
	}
	keys := make([]float64, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Float64s(keys)
	return keys, groups
}

// Label builds the popup for a clicked zone.
func (b *Builder) Label(props map[string]any) Label {
	if _, ok := util.FirstMatch(propertyLookups(props, TZIDKeys)...); !ok {
		props = map[string]any{"tzid": "UTC"}
	}
	z := b.zone(props, 0)
	return Label{
		Name:        z.Name,
		TZID:        z.TZID,
		Offset:      tz.FormatOffset(z.Offset),
		CurrentTime: tz.FormatPopupTime(b.clock.Now(), z.TZID),
	}
}

// Loader fetches raw boundary features.
type Loader interface {
	FetchTimezoneBoundaries(ctx context.Context, sources []string) (geom.GeoJSONFeatureCollection, string, error)
}

// Layer puts the annotated boundaries on a surface.
type Layer struct {
	surface render.Surface
	loader  Loader
	builder *Builder
	sources []string
	logger  *slog.Logger

	mu     sync.Mutex
	zones  []Zone
	source string
}

// NewLayer creates a Layer.
func NewLayer(surface render.Surface, loader Loader, builder *Builder, sources []string, logger *slog.Logger) *Layer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Layer{
		surface: surface,
		loader:  loader,
		builder: builder,
		sources: sources,
		logger:  logger,
	}
}

// Load fetches and draws the boundaries. Failure leaves a placeholder on
// the surface and is returned for logging; it never affects other layers.
func (l *Layer) Load(ctx context.Context) error {
	fc, src, err := l.loader.FetchTimezoneBoundaries(ctx, l.sources)
	if err != nil {
		l.surface.ShowPlaceholder(render.LayerTimezones, PlaceholderText)
		return fmt.Errorf("loading timezone boundaries: %w", err)
	}

	annotated, zones := l.builder.Annotate(fc)
	if tl, ok := l.surface.(render.TimezoneLayer); ok {
		if err := tl.SetTimezoneOverlay(annotated); err != nil {
			l.surface.ShowPlaceholder(render.LayerTimezones, PlaceholderText)
			return fmt.Errorf("drawing timezone boundaries: %w", err)
		}
	}

	keys, _ := Groups(zones)
	l.mu.Lock()
	l.zones = zones
	l.source = src
	l.mu.Unlock()
	l.logger.Info("Timezone overlay loaded", "source", src, "zones", len(zones), "groups", len(keys))
	return nil
}

// Zones returns the zones of the last successful load.
func (l *Layer) Zones() []Zone {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.zones
}

// Source returns where the last successful load came from.
func (l *Layer) Source() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.source
}
