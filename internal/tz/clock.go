package tz

import "time"

// FormatClock renders t in tzid as a 12-hour clock with seconds, the way the
// per-person live clocks show it. Unknown zones render "Invalid timezone".
func FormatClock(t time.Time, tzid string) string {
	if tzid == "" {
		tzid = "UTC"
	}
	loc, err := time.LoadLocation(tzid)
	if err != nil {
		return "Invalid timezone"
	}
	return t.In(loc).Format("3:04:05 PM")
}

// FormatPopupTime renders t in tzid as "03:04 PM" for map popups, or "Unknown".
func FormatPopupTime(t time.Time, tzid string) string {
	loc, err := time.LoadLocation(tzid)
	if err != nil || tzid == "" {
		return "Unknown"
	}
	return t.In(loc).Format("03:04 PM")
}

// FormatLocal renders a UTC timestamp string in loc as "15:04". Unparseable
// input renders "--:--".
func FormatLocal(utc string, loc *time.Location) string {
	if utc == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, utc)
	if err != nil {
		return "--:--"
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("15:04")
}
