package tz

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatClock(t *testing.T) {
	at := time.Date(2024, 1, 15, 17, 4, 5, 0, time.UTC)

	assert.Equal(t, "12:04:05 PM", FormatClock(at, "America/New_York"))
	assert.Equal(t, "5:04:05 PM", FormatClock(at, ""))
	assert.Equal(t, "Invalid timezone", FormatClock(at, "Nowhere/Special"))
}

func TestFormatPopupTime(t *testing.T) {
	at := time.Date(2024, 1, 15, 3, 30, 0, 0, time.UTC)

	assert.Equal(t, "09:00 AM", FormatPopupTime(at, "Asia/Kolkata"))
	assert.Equal(t, "Unknown", FormatPopupTime(at, "Nowhere/Special"))
	assert.Equal(t, "Unknown", FormatPopupTime(at, ""))
}

func TestFormatLocal(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	assert.NoError(t, err)

	assert.Equal(t, "09:30", FormatLocal("2024-01-15T00:30:00Z", tokyo))
	assert.Equal(t, "--:--", FormatLocal("yesterday", tokyo))
	assert.Equal(t, "", FormatLocal("", tokyo))
}
