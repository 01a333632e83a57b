package redact

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/charmap"
)

// FileResult holds the per-rule replacement counts for one file.
type FileResult struct {
	Path   string
	Counts []int
	Errors []error
}

// Total is the number of replacements made in the file.
func (f FileResult) Total() int {
	total := 0
	for _, n := range f.Counts {
		total += n
	}
	return total
}

// TreeOptions configures ApplyFiles.
type TreeOptions struct {
	Concurrency int          // worker bound; <= 0 means runtime.NumCPU()
	Logger      *slog.Logger // nil means slog.Default()
	OnFile      func(FileResult)
}

// ApplyFiles rewrites each file in place. Files are processed by a bounded
// pool of workers; within a file the rules still run strictly in order.
// Results are returned in the order of paths regardless of scheduling. A
// read or write failure aborts the whole run.
func (r *Redactor) ApplyFiles(ctx context.Context, paths []string, opts TreeOptions) ([]FileResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	results := make([]FileResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := r.applyFile(path)
			if err != nil {
				return err
			}
			for _, ruleErr := range res.Errors {
				logger.Warn("filter skipped for file", "path", path, "error", ruleErr)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.OnFile != nil {
		for _, res := range results {
			opts.OnFile(res)
		}
	}
	return results, nil
}

func (r *Redactor) applyFile(path string) (FileResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileResult{}, fmt.Errorf("stat %s: %w", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FileResult{}, fmt.Errorf("read %s: %w", path, err)
	}

	text, latin1, err := decodeText(data)
	if err != nil {
		return FileResult{}, fmt.Errorf("decode %s: %w", path, err)
	}
	text, counts, errs := r.Apply(text)
	res := FileResult{Path: path, Counts: counts, Errors: errs}
	if res.Total() == 0 {
		return res, nil
	}

	out, err := encodeText(text, latin1)
	if err != nil {
		// A replacement outside Latin-1 cannot be stored without changing
		// the file's encoding; the file is left as it was.
		res.Errors = append(res.Errors, fmt.Errorf("%s: %w", path, err))
		res.Counts = make([]int, len(counts))
		return res, nil
	}
	if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
		return FileResult{}, fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chtimes(path, info.ModTime(), info.ModTime()); err != nil {
		return FileResult{}, fmt.Errorf("restore times of %s: %w", path, err)
	}
	return res, nil
}

// decodeText returns data as text. Content that is not valid UTF-8 is read
// as ISO-8859-1 so every byte maps to exactly one rune and survives the
// round trip.
func decodeText(data []byte) (string, bool, error) {
	if utf8.Valid(data) {
		return string(data), false, nil
	}
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", true, err
	}
	return string(text), true, nil
}

func encodeText(text string, latin1 bool) ([]byte, error) {
	if !latin1 {
		return []byte(text), nil
	}
	return charmap.ISO8859_1.NewEncoder().Bytes([]byte(text))
}
