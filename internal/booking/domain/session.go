package domain

import (
	"fmt"
	"strings"
	"time"
)

// FormatSessionTime renders an elapsed duration as H:MM:SS. Negative
// durations are measured by magnitude.
func FormatSessionTime(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	d = d.Truncate(time.Second)
	h := int64(d / time.Hour)
	m := int64(d % time.Hour / time.Minute)
	s := int64(d % time.Minute / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// SessionTimeLabel turns "H:MM:SS" into the "H tim M min" form used in
// session-ended emails.
func SessionTimeLabel(sessionTime string) string {
	parts := strings.Split(sessionTime, ":")
	if len(parts) < 2 {
		return sessionTime
	}
	return fmt.Sprintf("%s tim %s min", parts[0], parts[1])
}

// HoursMins formats a duration in minutes for SMS texts.
func HoursMins(minutes int) string {
	switch {
	case minutes < 60:
		return fmt.Sprintf("%dmin", minutes)
	case minutes == 60:
		return "1h"
	}
	return fmt.Sprintf("%02dh %02dmin", minutes/60, minutes%60)
}
