// Small helpers for fast, consistent numeric formatting in headers.
// Avoids pulling in fmt just for this, and strconv.FormatFloat keeps
// common values out of scientific notation.

package ratelimit

import "strconv"

func formatInt(v int) string { return strconv.Itoa(v) }

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
