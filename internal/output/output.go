// Package output renders the run report of a cleaning run. It supports
// text, JSON, table and YAML formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/bimmerbailey/supportcleaner/internal/config"
	"gopkg.in/yaml.v3"
)

// Format represents an output format type.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat converts a string to a Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "table":
		return FormatTable
	case "yaml", "yml":
		return FormatYAML
	default:
		return FormatText
	}
}

// DeletedFile is a file removed by one of the retention stages.
type DeletedFile struct {
	Path   string `json:"path" yaml:"path"`
	Stage  string `json:"stage" yaml:"stage"`
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"` // age or size
}

// RuleCount is the total number of replacements one rule made.
type RuleCount struct {
	Pattern     string `json:"pattern" yaml:"pattern"`
	Replacement string `json:"replacement" yaml:"replacement"`
	Count       int    `json:"count" yaml:"count"`
}

// FileCount is the number of replacements made in one file.
type FileCount struct {
	Path         string `json:"path" yaml:"path"`
	Replacements int    `json:"replacements" yaml:"replacements"`
}

// Edit is a change the operator made during manual review.
type Edit struct {
	Path string `json:"path" yaml:"path"`
	Kind string `json:"kind" yaml:"kind"`
}

// Report summarizes a cleaning run.
type Report struct {
	Archive       string           `json:"archive" yaml:"archive"`
	Output        string           `json:"output" yaml:"output"`
	ExtractedSize string           `json:"extracted_size" yaml:"extracted_size"`
	Ceiling       string           `json:"ceiling" yaml:"ceiling"`
	Extracted     int              `json:"extracted_files" yaml:"extracted_files"`
	Packed        int              `json:"packed_files" yaml:"packed_files"`
	Deleted       []DeletedFile    `json:"deleted,omitempty" yaml:"deleted,omitempty"`
	Rules         []RuleCount      `json:"rules" yaml:"rules"`
	Files         []FileCount      `json:"files,omitempty" yaml:"files,omitempty"`
	InvalidRules  []string         `json:"invalid_rules,omitempty" yaml:"invalid_rules,omitempty"`
	Placeholders  int              `json:"unique_placeholders" yaml:"unique_placeholders"`
	VerboseLog    string           `json:"verbose_log,omitempty" yaml:"verbose_log,omitempty"`
	VerboseLevel  *config.LogLevel `json:"verbose_level,omitempty" yaml:"verbose_level,omitempty"`
	Edits         []Edit           `json:"review_edits,omitempty" yaml:"review_edits,omitempty"`
	Duration      time.Duration    `json:"duration_ns" yaml:"duration"`
}

// Replacements is the total over all rules.
func (r *Report) Replacements() int {
	total := 0
	for _, rc := range r.Rules {
		total += rc.Count
	}
	return total
}

// Writer handles writing formatted output.
type Writer struct {
	w      io.Writer
	format Format
}

// New creates a new output Writer.
func New(w io.Writer, format Format) *Writer {
	return &Writer{w: w, format: format}
}

// WriteReport outputs the report in the configured format.
func (wr *Writer) WriteReport(r *Report) error {
	switch wr.format {
	case FormatJSON:
		return wr.WriteJSON(r)
	case FormatYAML:
		return wr.WriteYAML(r)
	case FormatTable:
		return wr.writeTable(r)
	default:
		return wr.writeText(r)
	}
}

// WriteJSON outputs any value as indented JSON.
func (wr *Writer) WriteJSON(v interface{}) error {
	enc := json.NewEncoder(wr.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteYAML outputs any value as YAML.
func (wr *Writer) WriteYAML(v interface{}) error {
	enc := yaml.NewEncoder(wr.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (wr *Writer) writeText(r *Report) error {
	fmt.Fprintf(wr.w, "Archive:        %s\n", r.Archive)
	fmt.Fprintf(wr.w, "Output:         %s\n", r.Output)
	fmt.Fprintf(wr.w, "Extracted:      %d files, %s (ceiling %s)\n", r.Extracted, r.ExtractedSize, r.Ceiling)
	fmt.Fprintf(wr.w, "Deleted:        %d files\n", len(r.Deleted))
	fmt.Fprintf(wr.w, "Replacements:   %d in %d files\n", r.Replacements(), len(r.Files))
	fmt.Fprintf(wr.w, "Placeholders:   %d unique\n", r.Placeholders)
	if len(r.InvalidRules) > 0 {
		fmt.Fprintf(wr.w, "Invalid rules:  %d skipped\n", len(r.InvalidRules))
	}
	if r.VerboseLog != "" {
		if r.VerboseLevel != nil {
			fmt.Fprintf(wr.w, "Verbose log:    %s (%s)\n", r.VerboseLog, r.VerboseLevel)
		} else {
			fmt.Fprintf(wr.w, "Verbose log:    %s\n", r.VerboseLog)
		}
	}
	for _, e := range r.Edits {
		fmt.Fprintf(wr.w, "Review:         %s %s\n", e.Kind, e.Path)
	}
	fmt.Fprintf(wr.w, "Packed:         %d files in %s\n", r.Packed, r.Duration.Round(time.Millisecond))
	return nil
}

func (wr *Writer) writeTable(r *Report) error {
	tw := tabwriter.NewWriter(wr.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COUNT\tREPLACEMENT\tPATTERN")
	fmt.Fprintln(tw, "-----\t-----------\t-------")

	for _, rc := range r.Rules {
		pattern := rc.Pattern
		if len(pattern) > 60 {
			pattern = pattern[:57] + "..."
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", rc.Count, rc.Replacement, pattern)
	}

	if len(r.Deleted) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "STAGE\tDETAIL\tDELETED")
		fmt.Fprintln(tw, "-----\t------\t-------")
		for _, d := range r.Deleted {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Stage, d.Detail, d.Path)
		}
	}

	return tw.Flush()
}
