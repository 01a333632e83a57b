package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bimmerbailey/supportcleaner/internal/archive"
	"github.com/bimmerbailey/supportcleaner/internal/config"
	"github.com/bimmerbailey/supportcleaner/internal/output"
	"github.com/bimmerbailey/supportcleaner/internal/parser"
	"github.com/bimmerbailey/supportcleaner/internal/redact"
	"github.com/bimmerbailey/supportcleaner/internal/retention"
	"github.com/bimmerbailey/supportcleaner/internal/review"
	"github.com/dustin/go-humanize"
)

const (
	ageQuestion    = "Choose a limit in days to delete old files (leave empty to skip)"
	deleteQuestion = "Do you want to delete them?"

	verboseTitle = "Log messages with level INFO or DEBUG have been detected!"
	verboseBody  = "Please consider using a stricter log level to avoid exposing too much sensitive information.\n" +
		"If this is not possible, take extra care to remove any sensitive information from the logs."

	reviewTitle = "These filters won't have cleaned everything perfectly from the logs!"
	reviewBody  = "Especially usernames and names of people or businesses may still be present."
)

func (p *Pipeline) rel(st *runState, path string) string {
	rel, err := filepath.Rel(st.scratch, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func (p *Pipeline) extract(_ context.Context, st *runState, _ string) error {
	h, err := archive.Open(st.report.Archive)
	if err != nil {
		return err
	}
	st.handle = h

	res, err := archive.NewGuard(p.prompter, p.logger).Extract(h, st.scratch, p.cfg.Ceiling)
	st.report.ExtractedSize = res.Size.String()
	st.report.Ceiling = res.Ceiling.String()
	if err != nil {
		return err
	}
	if res.Ceiling != p.cfg.Ceiling {
		fmt.Fprintf(p.out, "Changed maximum size to %s\n", res.Ceiling)
	}
	st.report.Extracted = res.Files
	fmt.Fprintf(p.out, "Extracted %d files (%s)\n", res.Files, res.Size)
	return nil
}

func (p *Pipeline) removeOld(_ context.Context, st *runState, _ string) error {
	days := p.cfg.DeleteAfterDays
	if !p.cfg.DeleteAfterDaysSet {
		n, ok, err := p.prompter.AskOptionalInt(ageQuestion)
		if err != nil {
			return err
		}
		if ok {
			days = n
		}
	}
	if days <= 0 {
		fmt.Fprintln(p.out, "Skipped")
		return nil
	}

	// Ages come from the source archive; files removed since are skipped.
	now := p.now()
	records := retention.Existing(st.handle.Records(st.scratch))
	selected := retention.OlderThan(records, days, now)

	return p.offerDeletion(st, selection{
		stage:   "age",
		intro:   fmt.Sprintf("The following files are older than %d days:", days),
		message: "Deleting old files",
		records: selected,
		detail: func(r retention.FileRecord) string {
			return humanize.RelTime(r.ModifiedAt, now, "ago", "from now")
		},
	})
}

func (p *Pipeline) removeLargest(_ context.Context, st *runState, _ string) error {
	records, err := retention.Walk(st.scratch)
	if err != nil {
		return err
	}
	return p.offerDeletion(st, selection{
		stage:   "size",
		intro:   fmt.Sprintf("Largest %d%%:", p.cfg.LargestPercent),
		message: "Deleting largest files",
		records: retention.LargestPercentile(records, p.cfg.LargestPercent),
		detail: func(r retention.FileRecord) string {
			return r.Size.String()
		},
	})
}

func (p *Pipeline) removeMailLogs(_ context.Context, st *runState, _ string) error {
	match, err := p.mailMatcher()
	if err != nil {
		return err
	}
	records, err := retention.Walk(st.scratch)
	if err != nil {
		return err
	}
	return p.offerDeletion(st, selection{
		stage:   "mail",
		intro:   "Found following mail log files:",
		message: "Deleting mail log files",
		records: retention.MatchingName(records, match),
	})
}

type selection struct {
	stage   string
	intro   string
	message string
	records []retention.FileRecord
	detail  func(retention.FileRecord) string
}

// offerDeletion lists the selection and deletes it once the operator agrees.
func (p *Pipeline) offerDeletion(st *runState, sel selection) error {
	if len(sel.records) == 0 {
		fmt.Fprintln(p.out, "No files selected")
		return nil
	}

	fmt.Fprintln(p.out, sel.intro)
	details := make(map[string]string, len(sel.records))
	for _, r := range sel.records {
		d := ""
		if sel.detail != nil {
			d = sel.detail(r)
		}
		details[r.Path] = d
		if d != "" {
			fmt.Fprintf(p.out, "%s: %s\n", p.rel(st, r.Path), d)
		} else {
			fmt.Fprintln(p.out, p.rel(st, r.Path))
		}
	}

	yes, err := p.prompter.AskYesNo(deleteQuestion)
	if err != nil {
		return err
	}
	if !yes {
		p.logger.Info("deletion declined", "stage", sel.stage, "files", len(sel.records))
		return nil
	}

	fmt.Fprintln(p.out, sel.message)
	for _, r := range retention.Delete(sel.records, p.logger) {
		st.report.Deleted = append(st.report.Deleted, output.DeletedFile{
			Path:   p.rel(st, r.Path),
			Stage:  sel.stage,
			Detail: details[r.Path],
		})
	}
	return nil
}

func (p *Pipeline) checkLogLevel(_ context.Context, st *runState, _ string) error {
	paths, err := p.paths(st)
	if err != nil {
		return err
	}

	finding, found, err := parser.FirstVerbose(paths)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintln(p.out, "No INFO or DEBUG log messages found")
		return nil
	}

	where := fmt.Sprintf("%s:%d", p.rel(st, finding.Path), finding.Line)
	level := finding.Head.Level
	st.report.VerboseLog = where
	st.report.VerboseLevel = &level
	p.logger.Warn("verbose log level detected", "file", where, "level", finding.Head.Level)

	if err := output.WriteBanner(p.out, p.color, verboseTitle, verboseBody+"\nFirst seen in "+where); err != nil {
		return err
	}
	return p.prompter.Pause("Press Enter to proceed.")
}

func (p *Pipeline) paths(st *runState) ([]string, error) {
	records, err := retention.Walk(st.scratch)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(records))
	for i, r := range records {
		paths[i] = r.Path
	}
	return paths, nil
}

// rules builds the baseline rules followed by every filter source.
func (p *Pipeline) rules(st *runState, baseURL string) ([]redact.Rule, error) {
	rules := redact.Baseline(baseURL, p.cfg.RegexTimeout)

	sources, closeAll, err := p.filterSources()
	if err != nil {
		return nil, err
	}
	defer closeAll()

	for _, src := range sources {
		set, err := redact.LoadRules(src.r, baseURL, p.cfg.RegexTimeout)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src.name, err)
		}
		for _, inv := range set.Invalid {
			fmt.Fprintf(p.out, "%q is no valid filter string\n", inv.Text)
			p.logger.Warn("invalid filter skipped", "source", src.name, "line", inv.Line, "error", inv.Err)
			st.report.InvalidRules = append(st.report.InvalidRules, inv.Text)
		}
		rules = append(rules, set.Rules...)
	}
	return rules, nil
}

type filterSource struct {
	name string
	r    io.Reader
}

func (p *Pipeline) filterSources() ([]filterSource, func(), error) {
	noop := func() {}

	if p.filters != nil {
		sources := make([]filterSource, len(p.filters))
		for i, r := range p.filters {
			sources[i] = filterSource{name: fmt.Sprintf("filters[%d]", i), r: r}
		}
		return sources, noop, nil
	}

	files, err := config.ResolveFilterFiles(p.cfg.FilterFiles)
	if err != nil {
		return nil, noop, err
	}
	if len(files) == 0 {
		return []filterSource{{name: "built-in filters", r: redact.DefaultFilters()}}, noop, nil
	}

	var opened []*os.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	sources := make([]filterSource, 0, len(files))
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			closeAll()
			return nil, noop, fmt.Errorf("filter file: %w", err)
		}
		opened = append(opened, f)
		sources = append(sources, filterSource{name: path, r: f})
	}
	return sources, closeAll, nil
}

func (p *Pipeline) clean(ctx context.Context, st *runState, baseURL string) error {
	rules, err := p.rules(st, baseURL)
	if err != nil {
		return err
	}
	hasher, err := redact.ParseHasher(p.cfg.HashAlgorithm)
	if err != nil {
		return err
	}
	paths, err := p.paths(st)
	if err != nil {
		return err
	}

	red := redact.NewRedactor(rules, redact.WithHasher(hasher))
	var results []redact.FileResult
	err = p.progress(fmt.Sprintf("Applying %d filters to %d files...", len(rules), len(paths)), func() error {
		var err error
		results, err = red.ApplyFiles(ctx, paths, redact.TreeOptions{
			Concurrency: p.cfg.Concurrency,
			Logger:      p.logger,
		})
		return err
	})
	if err != nil {
		return err
	}

	p.reportReplacements(st, rules, results)
	st.report.Placeholders = red.UniquePlaceholders()
	return nil
}

// reportReplacements prints counts grouped by rule, then by file.
func (p *Pipeline) reportReplacements(st *runState, rules []redact.Rule, results []redact.FileResult) {
	for i, rule := range rules {
		fmt.Fprintf(p.out, "-- pattern: %q --\n", rule.Pattern)
		total := 0
		for _, res := range results {
			if n := res.Counts[i]; n > 0 {
				fmt.Fprintf(p.out, "%d replacements (%s) in %s\n", n, rule.Replacement, p.rel(st, res.Path))
				total += n
			}
		}
		st.report.Rules = append(st.report.Rules, output.RuleCount{
			Pattern:     rule.Pattern,
			Replacement: rule.Replacement,
			Count:       total,
		})
	}

	for _, res := range results {
		if n := res.Total(); n > 0 {
			st.report.Files = append(st.report.Files, output.FileCount{Path: p.rel(st, res.Path), Replacements: n})
		}
	}
}

func (p *Pipeline) review(_ context.Context, st *runState, _ string) error {
	fmt.Fprintf(p.out, "Automatic cleaning finished. The extracted files are available at %s\n", st.scratch)
	if err := output.WriteBanner(p.out, p.color, reviewTitle, reviewBody); err != nil {
		return err
	}

	var w *review.Watcher
	if p.watch {
		var err error
		if w, err = review.Watch(st.scratch, p.logger); err != nil {
			p.logger.Warn("review edits will not be recorded", "error", err)
		}
	}

	msg := strings.Join([]string{
		"You can clean up additional things manually or check how the files look.",
		"Files: " + st.scratch,
		"Press Enter to proceed.",
	}, "\n")
	pauseErr := p.prompter.Pause(msg)

	if w != nil {
		for _, c := range w.Stop() {
			st.report.Edits = append(st.report.Edits, output.Edit{Path: c.Path, Kind: string(c.Kind)})
		}
	}
	return pauseErr
}

func (p *Pipeline) repackage(_ context.Context, st *runState, _ string) error {
	n, err := archive.Pack(st.scratch, p.cfg.Output, archive.WithCompressionLevel(p.cfg.CompressionLevel))
	if err != nil {
		return err
	}
	st.report.Packed = n
	fmt.Fprintf(p.out, "Wrote %d files to %s\n", n, p.cfg.Output)
	return nil
}
