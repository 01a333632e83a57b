// Package pipeline runs a complete cleaning of one support archive.
//
// A run owns a private scratch directory and walks through these stages:
//
//  1. Prepare - remove a stale output archive
//  2. Extract - unpack under the size ceiling, negotiating with the operator
//  3. Retention - offer old, largest and mail log files for deletion
//  4. Advisory - warn when logs were written at INFO or DEBUG
//  5. Redaction - rewrite every file with the baseline and filter rules
//  6. Review - pause so the operator can inspect the tree by hand
//  7. Repackage - write the output archive
//
// The scratch directory is removed on every exit path.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/bimmerbailey/supportcleaner/internal/archive"
	"github.com/bimmerbailey/supportcleaner/internal/config"
	"github.com/bimmerbailey/supportcleaner/internal/output"
	"github.com/bimmerbailey/supportcleaner/internal/prompt"
	"github.com/bimmerbailey/supportcleaner/internal/redact"
	"github.com/bimmerbailey/supportcleaner/internal/retention"
)

// ErrAborted is returned when the operator stopped the run. No output
// archive is written.
var ErrAborted = errors.New("aborted by user")

// ProgressFunc runs action while showing title to the operator.
type ProgressFunc func(title string, action func() error) error

// Pipeline cleans support archives.
//
// Usage:
//
//	p := pipeline.New(
//	    pipeline.WithRunConfig(rc),
//	    pipeline.WithPrompter(prompt.NewTerminal()),
//	    pipeline.WithStdout(os.Stdout),
//	)
//
//	report, err := p.Run(ctx, "support.zip", "https://jira.example.com")
//	if errors.Is(err, pipeline.ErrAborted) {
//	    fmt.Println("Aborted by user.")
//	}
type Pipeline struct {
	cfg      config.RunConfig
	prompter prompt.Prompter
	logger   *slog.Logger
	out      io.Writer
	filters  []io.Reader
	now      func() time.Time
	tempDir  string
	progress ProgressFunc
	color    output.ColorMode
	watch    bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRunConfig sets the run configuration.
// Default is config.DefaultRunConfig().
func WithRunConfig(rc config.RunConfig) Option {
	return func(p *Pipeline) {
		p.cfg = rc
	}
}

// WithPrompter sets the operator dialogue.
// Default answers nothing: overflows abort and nothing is deleted.
func WithPrompter(pr prompt.Prompter) Option {
	return func(p *Pipeline) {
		p.prompter = pr
	}
}

// WithLogger sets the diagnostic logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithStdout sets where operator-facing progress is written.
func WithStdout(w io.Writer) Option {
	return func(p *Pipeline) {
		p.out = w
	}
}

// WithFilters replaces the configured filter files with the given sources,
// applied in order.
func WithFilters(sources ...io.Reader) Option {
	return func(p *Pipeline) {
		p.filters = sources
	}
}

// WithClock sets the time source used for age selection.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithTempDir sets the parent directory of the scratch tree.
// Default is os.TempDir().
func WithTempDir(dir string) Option {
	return func(p *Pipeline) {
		p.tempDir = dir
	}
}

// WithProgress wraps long-running stages, e.g. in a spinner.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) {
		p.progress = fn
	}
}

// WithColor selects banner styling. Default is output.ColorAuto.
func WithColor(mode output.ColorMode) Option {
	return func(p *Pipeline) {
		p.color = mode
	}
}

// WithReviewWatcher enables or disables recording operator edits during
// the review pause. Default is enabled.
func WithReviewWatcher(enabled bool) Option {
	return func(p *Pipeline) {
		p.watch = enabled
	}
}

// New creates a Pipeline with the specified options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      config.DefaultRunConfig(),
		prompter: prompt.NonInteractive{},
		logger:   slog.Default(),
		out:      io.Discard,
		now:      time.Now,
		progress: func(_ string, action func() error) error { return action() },
		color:    output.ColorAuto,
		watch:    true,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// runState is the mutable state of one Run.
type runState struct {
	scratch string
	handle  *archive.Handle
	report  *output.Report
}

// Run cleans the archive at archivePath and writes the configured output.
// baseURL is scrubbed everywhere it appears; it may be empty.
//
// An operator abort returns an error wrapping ErrAborted. Any error leaves
// no output archive behind.
func (p *Pipeline) Run(ctx context.Context, archivePath, baseURL string) (*output.Report, error) {
	start := p.now()
	st := &runState{
		report: &output.Report{Archive: archivePath, Output: p.cfg.Output},
	}

	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := p.prepare(); err != nil {
		return nil, err
	}

	scratch, err := os.MkdirTemp(p.tempDir, "supportcleaner-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	st.scratch = scratch
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			p.logger.Error("failed to remove scratch directory", "path", scratch, "error", err)
		}
	}()
	p.logger.Info("scratch directory created", "path", scratch)

	stages := []struct {
		name string
		run  func(context.Context, *runState, string) error
	}{
		{"Extract support zip", p.extract},
		{"Remove old files", p.removeOld},
		{"Remove largest files", p.removeLargest},
		{"Remove mail logs", p.removeMailLogs},
		{"Check log level", p.checkLogLevel},
		{"Clean unwanted information", p.clean},
		{"Manual review", p.review},
		{"Create " + p.cfg.Output, p.repackage},
	}

	defer func() {
		if st.handle != nil {
			st.handle.Close()
		}
	}()

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fmt.Fprintf(p.out, "\n%s\n", stage.name)
		if err := stage.run(ctx, st, baseURL); err != nil {
			if errors.Is(err, archive.ErrAborted) || errors.Is(err, prompt.ErrAborted) {
				return nil, fmt.Errorf("%w: %w", ErrAborted, err)
			}
			return nil, err
		}
	}

	st.report.Duration = p.now().Sub(start)
	return st.report, nil
}

func (p *Pipeline) prepare() error {
	removed, err := archive.RemoveStale(p.cfg.Output)
	if err != nil {
		return err
	}
	if removed {
		fmt.Fprintf(p.out, "Removed existing %s\n", p.cfg.Output)
	}
	return nil
}

// validate rejects settings that would only fail after extraction.
func (p *Pipeline) validate() error {
	if _, err := redact.ParseHasher(p.cfg.HashAlgorithm); err != nil {
		return err
	}
	if _, err := p.mailMatcher(); err != nil {
		return err
	}
	return nil
}

// mailMatcher selects mail logs by glob when one is configured, otherwise
// by the mail log pattern.
func (p *Pipeline) mailMatcher() (retention.NameMatcher, error) {
	if p.cfg.MailLogGlob != "" {
		match, err := retention.GlobName(p.cfg.MailLogGlob)
		if err != nil {
			return nil, fmt.Errorf("mail_log_glob: %w", err)
		}
		return match, nil
	}
	match, err := retention.RegexName(p.cfg.MailLogPattern)
	if err != nil {
		return nil, fmt.Errorf("mail_log_pattern: %w", err)
	}
	return match, nil
}
