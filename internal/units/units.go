// Package units renders byte counts and durations for transfer progress lines.
package units

import (
	"fmt"
	"strconv"
)

const (
	kib = 1024
	mib = 1024 * kib
	gib = 1024 * mib
)

// FormatSize renders n bytes with a binary unit: "1.5 GB", "12.0 MB", "3 KB", "512 B".
func FormatSize(n int64) string {
	f := float64(n)
	switch {
	case f/gib >= 1:
		return fmt.Sprintf("%.1f GB", f/gib)
	case f/mib >= 1:
		return fmt.Sprintf("%.1f MB", f/mib)
	case f/kib >= 1:
		return fmt.Sprintf("%.0f KB", f/kib)
	default:
		return strconv.FormatInt(n, 10) + " B"
	}
}

// FormatTime renders a whole number of seconds in its largest unit, truncated:
// "2 hrs", "5 min", "42 sec".
func FormatTime(seconds int64) string {
	switch {
	case seconds/3600 >= 1:
		return strconv.FormatInt(seconds/3600, 10) + " hrs"
	case seconds/60 >= 1:
		return strconv.FormatInt(seconds/60, 10) + " min"
	default:
		return strconv.FormatInt(seconds, 10) + " sec"
	}
}
