package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// DefaultCompressionLevel is the deflate level used when none is set.
const DefaultCompressionLevel = flate.DefaultCompression

// PackOption configures Pack.
type PackOption func(*packConfig)

type packConfig struct {
	level int
}

// WithCompressionLevel sets the deflate level (flate.HuffmanOnly through
// flate.BestCompression).
func WithCompressionLevel(level int) PackOption {
	return func(c *packConfig) {
		c.level = level
	}
}

// Pack writes every regular file under root into a new deflate archive at
// outputPath, named by its slash-separated path relative to root. Any file
// already at outputPath is removed first. On failure the partial output is
// removed so no file at outputPath can be mistaken for a finished archive.
func Pack(root, outputPath string, opts ...PackOption) (int, error) {
	cfg := packConfig{level: DefaultCompressionLevel}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.level < flate.HuffmanOnly || cfg.level > flate.BestCompression {
		return 0, fmt.Errorf("%w: invalid compression level %d", ErrRepackage, cfg.level)
	}

	if _, err := RemoveStale(outputPath); err != nil {
		return 0, err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRepackage, err)
	}

	files, err := writeTree(out, root, cfg.level)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("%w: %v", ErrRepackage, cerr)
	}
	if err != nil {
		os.Remove(outputPath)
		return 0, err
	}
	return files, nil
}

// RemoveStale deletes a previous output so repeated runs never merge into
// an old archive. It reports whether a file was there.
func RemoveStale(outputPath string) (bool, error) {
	err := os.Remove(outputPath)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("%w: remove existing %s: %v", ErrRepackage, outputPath, err)
	}
}

func writeTree(out io.Writer, root string, level int) (int, error) {
	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})

	files := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if err := addFile(zw, path, filepath.ToSlash(rel)); err != nil {
			return err
		}
		files++
		return nil
	})
	if err != nil {
		zw.Close()
		return files, fmt.Errorf("%w: %v", ErrRepackage, err)
	}
	if err := zw.Close(); err != nil {
		return files, fmt.Errorf("%w: %v", ErrRepackage, err)
	}
	return files, nil
}

func addFile(zw *zip.Writer, path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
