// Package retention selects extracted files for deletion before scrubbing.
//
// Every policy only selects. Removing the selection is a separate call the
// caller makes once the operator has confirmed it.
package retention

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/bimmerbailey/supportcleaner/internal/unitsize"
)

// DefaultLargestPercent is the share of files, by count, flagged as large.
const DefaultLargestPercent = 10

// DefaultMailLogPattern matches the mail transport logs of Atlassian products.
const DefaultMailLogPattern = `.*(incoming|outgoing)-mail\.log`

// FileRecord describes one file in the scratch tree.
type FileRecord struct {
	Path       string            `json:"path" yaml:"path"`
	Size       unitsize.ByteSize `json:"size" yaml:"size"`
	ModifiedAt time.Time         `json:"modified_at" yaml:"modified_at"`
}

// Walk lists every regular file under root in lexical order.
func Walk(root string) ([]FileRecord, error) {
	var records []FileRecord
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		records = append(records, FileRecord{
			Path:       path,
			Size:       unitsize.ByteSize(info.Size()),
			ModifiedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return records, nil
}

// OlderThan selects records whose age at now exceeds thresholdDays.
// A threshold of zero or less disables the policy and selects nothing.
func OlderThan(records []FileRecord, thresholdDays int, now time.Time) []FileRecord {
	if thresholdDays <= 0 {
		return nil
	}
	limit := time.Duration(thresholdDays) * 24 * time.Hour

	var selected []FileRecord
	for _, r := range records {
		if now.Sub(r.ModifiedAt) > limit {
			selected = append(selected, r)
		}
	}
	return selected
}

// LargestPercentile selects the trailing percent of records by count after
// sorting ascending by size. The number of smaller files kept is truncated,
// so the cut index always lands on the large side. Ties at the cut are split
// by sort order, not by size.
func LargestPercentile(records []FileRecord, percent int) []FileRecord {
	if len(records) == 0 || percent <= 0 {
		return nil
	}

	sorted := make([]FileRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Size < sorted[j].Size
	})

	small := int(float64(len(sorted)) * (1 - float64(percent)/100))
	if small < 0 {
		small = 0
	}
	if small >= len(sorted) {
		return nil
	}
	return sorted[small:]
}

// NameMatcher reports whether a file's base name is selected.
type NameMatcher func(base string) bool

// RegexName compiles pattern into a matcher anchored at the start of the
// base name.
func RegexName(pattern string) (NameMatcher, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, fmt.Errorf("invalid name pattern %q: %w", pattern, err)
	}
	return re.MatchString, nil
}

// GlobName returns a matcher using shell glob syntax.
func GlobName(pattern string) (NameMatcher, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
	}
	return func(base string) bool {
		ok, _ := filepath.Match(pattern, base)
		return ok
	}, nil
}

// MatchingName selects records whose base name satisfies match.
func MatchingName(records []FileRecord, match NameMatcher) []FileRecord {
	var selected []FileRecord
	for _, r := range records {
		if match(filepath.Base(r.Path)) {
			selected = append(selected, r)
		}
	}
	return selected
}

// Delete removes the selected files. Failures are logged and skipped; the
// records actually removed are returned.
func Delete(records []FileRecord, logger *slog.Logger) []FileRecord {
	if logger == nil {
		logger = slog.Default()
	}

	removed := make([]FileRecord, 0, len(records))
	for _, r := range records {
		if err := os.Remove(r.Path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("file already gone", "path", r.Path)
			} else {
				logger.Warn("could not delete file", "path", r.Path, "error", err)
			}
			continue
		}
		removed = append(removed, r)
	}
	return removed
}

// Existing drops records whose file no longer exists, e.g. because an
// earlier policy already removed it.
func Existing(records []FileRecord) []FileRecord {
	var kept []FileRecord
	for _, r := range records {
		if info, err := os.Stat(r.Path); err == nil && info.Mode().IsRegular() {
			kept = append(kept, r)
		}
	}
	return kept
}
