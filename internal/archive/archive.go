// Package archive extracts support archives under a size ceiling and packs
// the sanitized tree back into a new archive.
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/bimmerbailey/supportcleaner/internal/retention"
	"github.com/bimmerbailey/supportcleaner/internal/unitsize"
	"github.com/klauspost/compress/zip"
)

var (
	ErrNotFound   = errors.New("archive not found")
	ErrCorrupt    = errors.New("archive corrupt")
	ErrExtraction = errors.New("extraction failed")
	ErrRepackage  = errors.New("repackaging failed")
	ErrAborted    = errors.New("extraction aborted by operator")
)

// Handle is an open source archive. The archive itself is never modified.
type Handle struct {
	reader *zip.ReadCloser
}

// Open opens the zip archive at path.
func Open(path string) (*Handle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, path)
	}

	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return &Handle{reader: rc}, nil
}

// Close releases the archive.
func (h *Handle) Close() error {
	return h.reader.Close()
}

// UncompressedSize sums the declared uncompressed size of every entry. The
// container metadata is trusted; nothing is decompressed. A total that does
// not fit a ByteSize saturates at math.MaxInt64.
func (h *Handle) UncompressedSize() unitsize.ByteSize {
	size, _ := h.declaredSize()
	return size
}

// declaredSize returns the saturated total and whether it overflowed.
func (h *Handle) declaredSize() (unitsize.ByteSize, bool) {
	var total uint64
	for _, f := range h.reader.File {
		if f.UncompressedSize64 > math.MaxInt64-total {
			return math.MaxInt64, true
		}
		total += f.UncompressedSize64
	}
	return unitsize.ByteSize(total), false
}

// Records describes every file entry as it will appear once extracted under
// root, using the timestamps stored in the archive.
func (h *Handle) Records(root string) []retention.FileRecord {
	records := make([]retention.FileRecord, 0, len(h.reader.File))
	for _, f := range h.reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		records = append(records, retention.FileRecord{
			Path:       filepath.Join(root, filepath.FromSlash(f.Name)),
			Size:       unitsize.ByteSize(f.UncompressedSize64),
			ModifiedAt: f.Modified,
		})
	}
	return records
}

// extractAll writes every entry below dest, creating intermediate
// directories and restoring entry timestamps.
func (h *Handle) extractAll(dest string, logger *slog.Logger) (int, error) {
	files := 0
	for _, f := range h.reader.File {
		name := filepath.FromSlash(strings.TrimSuffix(f.Name, "/"))
		if name == "" {
			continue
		}
		if !filepath.IsLocal(name) {
			return files, fmt.Errorf("%w: entry %q escapes the extraction directory", ErrExtraction, f.Name)
		}
		target := filepath.Join(dest, name)

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, fmt.Errorf("%w: %v", ErrExtraction, err)
			}
			continue
		}

		if err := extractFile(f, target); err != nil {
			return files, err
		}
		logger.Debug("extracted", "entry", f.Name, "size", unitsize.ByteSize(f.UncompressedSize64).String())
		files++
	}
	return files, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open entry %s: %v", ErrCorrupt, f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		if errors.Is(err, zip.ErrChecksum) || errors.Is(err, zip.ErrFormat) {
			return fmt.Errorf("%w: entry %s: %v", ErrCorrupt, f.Name, err)
		}
		return fmt.Errorf("%w: write %s: %v", ErrExtraction, target, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	if !f.Modified.IsZero() {
		if err := os.Chtimes(target, f.Modified, f.Modified); err != nil && !errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %v", ErrExtraction, err)
		}
	}
	return nil
}
