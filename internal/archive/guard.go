package archive

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bimmerbailey/supportcleaner/internal/unitsize"
)

// CeilingPrompter asks the operator for a larger ceiling or an abort.
type CeilingPrompter interface {
	AskSizeOrAbort(message string) (unitsize.ByteSize, bool, error)
}

// Result describes a completed extraction.
type Result struct {
	Size    unitsize.ByteSize // declared uncompressed size
	Ceiling unitsize.ByteSize // ceiling in effect when extraction ran
	Files   int
}

// Guard extracts archives only while their uncompressed size fits the
// ceiling, negotiating a new ceiling with the operator otherwise.
type Guard struct {
	prompter  CeilingPrompter
	logger    *slog.Logger
	freeSpace func(path string) (uint64, error)
}

// NewGuard creates a Guard. A nil prompter aborts on any overflow.
func NewGuard(prompter CeilingPrompter, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		prompter:  prompter,
		logger:    logger,
		freeSpace: FreeSpace,
	}
}

// Extract unpacks h into dest once its uncompressed size is at most the
// ceiling. While it is not, the operator is shown the overflow and the free
// space at dest and either raises the ceiling or aborts; an abort returns
// ErrAborted with nothing written.
func (g *Guard) Extract(h *Handle, dest string, ceiling unitsize.ByteSize) (Result, error) {
	size, overflow := h.declaredSize()

	// An overflowing total exceeds every ceiling.
	for overflow || size > ceiling {
		msg := fmt.Sprintf("Decompressed size of %s exceeds allowed maximum of %s.\nFree disk space: %s",
			size, ceiling, g.describeFreeSpace(dest))
		g.logger.Warn("archive exceeds size ceiling", "size", size.String(), "ceiling", ceiling.String())

		if g.prompter == nil {
			return Result{Size: size, Ceiling: ceiling}, ErrAborted
		}

		next, abort, err := g.prompter.AskSizeOrAbort(msg)
		if err != nil {
			return Result{Size: size, Ceiling: ceiling}, err
		}
		if abort {
			return Result{Size: size, Ceiling: ceiling}, ErrAborted
		}

		g.logger.Info("size ceiling changed", "from", ceiling.String(), "to", next.String())
		ceiling = next
	}

	if err := os.MkdirAll(dest, 0o700); err != nil {
		return Result{Size: size, Ceiling: ceiling}, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	files, err := h.extractAll(dest, g.logger)
	if err != nil {
		return Result{Size: size, Ceiling: ceiling, Files: files}, err
	}
	return Result{Size: size, Ceiling: ceiling, Files: files}, nil
}

func (g *Guard) describeFreeSpace(path string) string {
	free, err := g.freeSpace(path)
	if err != nil {
		g.logger.Debug("free space unavailable", "path", path, "error", err)
		return "unknown"
	}
	return unitsize.ByteSize(free).String()
}
