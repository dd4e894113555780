// Package tz resolves timezone identifiers and offset hints to UTC offsets.
// Every lookup is a fallback chain that ends in a safe default instead of an
// error.
package tz

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	// zone database fallback for hosts without one
	_ "time/tzdata"

	"github.com/teammap/teammap/internal/schedule"
	"github.com/teammap/teammap/internal/util"
	"github.com/teammap/teammap/pkg/core"
)

// UTCZone is the terminal fallback for viewer zone resolution.
const UTCZone = "Etc/UTC"

// Offset bounds: (-12, +14].
const (
	MinOffsetHours = -12.0
	MaxOffsetHours = 14.0
)

// AuxOffsetKeys are the feature properties scanned for an offset hint, in order.
var AuxOffsetKeys = []string{"utc_offset", "offset", "gmt_offset"}

var (
	// GMT+05:30 as produced by the platform formatter
	shortOffsetRe = regexp.MustCompile(`^GMT([+-])(\d{1,2})(?::(\d{2}))?$`)

	// a sign only counts at the start, after whitespace or an opening
	// paren, or right after UTC/GMT; "Port-au-Prince" has no offset
	hintRe = regexp.MustCompile(`(?:^|[\s(]|UTC|GMT)([+-])(\d{1,2})(?::(\d{2})|\.(\d+))?(?:$|[\s)])`)

	// an unsigned bare number such as "5.5"
	bareRe = regexp.MustCompile(`^(\d{1,2})(?::(\d{2})|\.(\d+))?$`)

	// Etc/GMT+5 uses the POSIX sign: five hours behind UTC
	etcGMTRe = regexp.MustCompile(`^Etc/GMT([+-])(\d{1,2})$`)
)

// Resolver turns timezone identifiers into offsets relative to the clock's
// current instant.
type Resolver struct {
	clock    schedule.Clock
	logger   *slog.Logger
	load     func(name string) (*time.Location, error)
	getenv   func(key string) string
	readlink func(name string) (string, error)
}

// NewResolver creates a Resolver. A nil clock uses real time; a nil logger
// uses slog.Default().
func NewResolver(clock schedule.Clock, logger *slog.Logger) *Resolver {
	if clock == nil {
		clock = schedule.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		clock:    clock,
		logger:   logger,
		load:     time.LoadLocation,
		getenv:   os.Getenv,
		readlink: os.Readlink,
	}
}

// ResolveOffsetHours returns the current UTC offset for tzid. The platform
// zone database is asked first; then each auxiliary property and finally the
// identifier itself are scanned for an explicit offset. The result is
// unresolved only if every candidate fails.
func (r *Resolver) ResolveOffsetHours(tzid string, aux map[string]any) core.Offset {
	candidates := []func() (float64, bool){
		func() (float64, bool) { return r.platformOffset(tzid) },
	}
	for _, key := range AuxOffsetKeys {
		v, ok := aux[key]
		if !ok {
			continue
		}
		candidates = append(candidates, func() (float64, bool) { return offsetFromValue(v) })
	}
	candidates = append(candidates, func() (float64, bool) { return identifierOffset(tzid) })

	hours, ok := util.FirstMatch(candidates...)
	if !ok {
		r.logger.Debug("timezone offset unresolved", "tzid", tzid)
		return core.Unresolved
	}
	return core.Offset{Hours: hours, Valid: true}
}

// platformOffset formats the current instant in tzid as a short GMT offset
// and parses it back.
func (r *Resolver) platformOffset(tzid string) (float64, bool) {
	if tzid == "" {
		return 0, false
	}
	loc, err := r.load(tzid)
	if err != nil {
		return 0, false
	}
	short := ShortOffset(r.clock.Now(), loc)
	return parseShortOffset(short)
}

// ShortOffset renders t's offset in loc as "GMT+05:30".
func ShortOffset(t time.Time, loc *time.Location) string {
	return "GMT" + t.In(loc).Format("-07:00")
}

func parseShortOffset(s string) (float64, bool) {
	m := shortOffsetRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	return assemble(m[1], m[2], m[3], "")
}

// ParseOffsetHint scans s for a signed "±H", "±H.H" or "±HH:MM" offset.
func ParseOffsetHint(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if m := hintRe.FindStringSubmatch(s); m != nil {
		return assemble(m[1], m[2], m[3], m[4])
	}
	if m := bareRe.FindStringSubmatch(s); m != nil {
		return assemble("+", m[1], m[2], m[3])
	}
	return 0, false
}

// identifierOffset reads an offset out of the zone identifier itself.
// Etc/GMT zones carry the inverted POSIX sign and are never scanned as hints.
func identifierOffset(tzid string) (float64, bool) {
	if !strings.HasPrefix(tzid, "Etc/GMT") {
		return ParseOffsetHint(tzid)
	}
	m := etcGMTRe.FindStringSubmatch(tzid)
	if m == nil {
		return 0, false
	}
	sign := "-"
	if m[1] == "-" {
		sign = "+"
	}
	return assemble(sign, m[2], "", "")
}

func offsetFromValue(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return validOffset(roundMinutes(val))
	case float32:
		return validOffset(roundMinutes(float64(val)))
	case int:
		return validOffset(float64(val))
	case int64:
		return validOffset(float64(val))
	case string:
		return ParseOffsetHint(val)
	default:
		return 0, false
	}
}

// assemble combines the regex captures. Exactly one of minutes or fraction
// may be set.
func assemble(sign, hours, minutes, fraction string) (float64, bool) {
	h, err := strconv.Atoi(hours)
	if err != nil {
		return 0, false
	}

	var m float64
	switch {
	case minutes != "":
		mm, err := strconv.Atoi(minutes)
		if err != nil || mm >= 60 {
			return 0, false
		}
		m = float64(mm)
	case fraction != "":
		f, err := strconv.ParseFloat("0."+fraction, 64)
		if err != nil {
			return 0, false
		}
		m = math.Round(f * 60)
	}

	total := float64(h) + m/60
	if sign == "-" {
		total = -total
	}
	return validOffset(total)
}

func roundMinutes(hours float64) float64 {
	return math.Round(hours*60) / 60
}

func validOffset(h float64) (float64, bool) {
	if math.IsNaN(h) || h <= MinOffsetHours || h > MaxOffsetHours {
		return 0, false
	}
	return h, true
}

// RoundHalfHour rounds an offset to the nearest half hour, the granularity
// used to group zones for colouring.
func RoundHalfHour(h float64) float64 {
	return math.Round(h*2) / 2
}

// FormatOffset renders an offset as "UTC +5.5" / "UTC -8".
func FormatOffset(o core.Offset) string {
	if !o.Valid {
		return "UTC ?"
	}
	sign := "+"
	if o.Hours < 0 {
		sign = ""
	}
	return fmt.Sprintf("UTC %s%s", sign, strconv.FormatFloat(o.Hours, 'f', -1, 64))
}

// Viewer is the zone registered with the coordinator for this session.
type Viewer struct {
	Zone        string
	OffsetHours float64
}

// ViewerZone determines the local IANA zone and its current raw offset. It
// never fails: when nothing resolves it returns Etc/UTC with zero offset.
func (r *Resolver) ViewerZone() Viewer {
	zone, ok := util.FirstMatch(
		r.zoneFromEnv,
		r.zoneFromLocaltime,
		r.zoneFromLocal,
	)
	if !ok {
		r.logger.Warn("viewer timezone unresolved, falling back", "zone", UTCZone)
		return Viewer{Zone: UTCZone}
	}

	loc, err := r.load(zone)
	if err != nil {
		r.logger.Warn("viewer timezone failed to load, falling back", "zone", zone, "error", err)
		return Viewer{Zone: UTCZone}
	}
	_, secs := r.clock.Now().In(loc).Zone()
	return Viewer{Zone: zone, OffsetHours: float64(secs) / 3600}
}

func (r *Resolver) zoneFromEnv() (string, bool) {
	name := strings.TrimPrefix(r.getenv("TZ"), ":")
	if name == "" {
		return "", false
	}
	return r.loadable(name)
}

func (r *Resolver) zoneFromLocaltime() (string, bool) {
	target, err := r.readlink("/etc/localtime")
	if err != nil {
		return "", false
	}
	target = filepath.ToSlash(target)
	idx := strings.Index(target, "zoneinfo/")
	if idx < 0 {
		return "", false
	}
	return r.loadable(target[idx+len("zoneinfo/"):])
}

func (r *Resolver) zoneFromLocal() (string, bool) {
	name := time.Local.String()
	if name == "Local" || name == "" {
		return "", false
	}
	return r.loadable(name)
}

func (r *Resolver) loadable(name string) (string, bool) {
	if _, err := r.load(name); err != nil {
		return "", false
	}
	return name, true
}
