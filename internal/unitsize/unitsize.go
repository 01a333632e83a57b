// Package unitsize formats and parses byte counts with binary (1024-based)
// magnitude prefixes such as KiB, MiB and GiB.
package unitsize

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedSize is returned when a size string has no leading number.
var ErrMalformedSize = errors.New("malformed size string")

// formatPrefixes are walked by Format; anything larger falls through to "Yi".
var formatPrefixes = []string{"", "Ki", "Mi", "Gi", "Ti", "Pi", "Ei", "Zi"}

// parsePrefixes maps a prefix to its power of 1024 by position.
var parsePrefixes = []string{"", "Ki", "Mi", "Gi", "Ti", "Pi", "Ei", "Zi", "Yi"}

var sizePattern = regexp.MustCompile(`^(\d+\.?\d*)\s?([KMGTPEZY]i)?(.*)$`)

// ByteSize is a non-negative quantity of bytes.
type ByteSize int64

// String renders the size with a binary prefix, e.g. "2.0KiB".
func (b ByteSize) String() string {
	return Format(float64(b), "B")
}

// Format renders n with one decimal digit, the largest binary prefix that
// keeps the magnitude below 1024, and unit.
//
//	Format(2048, "B")            // "2.0KiB"
//	Format(2376582746591, "V")   // "2.2TiV"
func Format(n float64, unit string) string {
	for _, prefix := range formatPrefixes {
		if math.Abs(n) < 1024 {
			return fmt.Sprintf("%3.1f%s%s", n, prefix, unit)
		}
		n /= 1024
	}
	return fmt.Sprintf("%.1f%s%s", n, "Yi", unit)
}

// Parse reads a leading decimal number, an optional binary prefix and a
// trailing unit. The number is scaled by 1024 per prefix step; the unit is
// returned as written.
//
//	Parse("4.0KiB") // 4096, "B"
//	Parse("2.3GiV") // 2469606195.2, "V"
func Parse(s string) (float64, string, error) {
	m := sizePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, "", fmt.Errorf("%w: %q", ErrMalformedSize, s)
	}

	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q", ErrMalformedSize, s)
	}

	prefix, unit := m[2], m[3]
	if prefix == "" {
		return num, unit, nil
	}

	for _, p := range parsePrefixes {
		if p == prefix {
			break
		}
		num *= 1024
	}
	return num, unit, nil
}

// ParseBytes parses s like Parse and rounds the result to whole bytes.
// The unit suffix is ignored.
func ParseBytes(s string) (ByteSize, error) {
	num, _, err := Parse(s)
	if err != nil {
		return 0, err
	}
	// float64(math.MaxInt64) rounds up to 2^63.
	if num >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q overflows", ErrMalformedSize, s)
	}
	return ByteSize(math.Round(num)), nil
}
