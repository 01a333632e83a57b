package output

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bimmerbailey/supportcleaner/internal/config"
	"gopkg.in/yaml.v3"
)

func sampleReport() *Report {
	level := config.LevelDebug
	return &Report{
		Archive:       "support.zip",
		Output:        "cleaned.zip",
		ExtractedSize: "12.0KiB",
		Ceiling:       "200.0MiB",
		Extracted:     3,
		Packed:        2,
		Deleted: []DeletedFile{
			{Path: "logs/old.log", Stage: "age", Detail: "3 months ago"},
		},
		Rules: []RuleCount{
			{Pattern: "BASEURL", Replacement: "BASEURL_CLEANED", Count: 4},
			{Pattern: "userName", Replacement: "userName: USERNAME_CLEANED", Count: 1},
		},
		Files:        []FileCount{{Path: "logs/app.log", Replacements: 5}},
		InvalidRules: []string{"bad-line"},
		Placeholders: 2,
		VerboseLog:   "logs/app.log:7",
		VerboseLevel: &level,
		Edits:        []Edit{{Path: "logs/app.log", Kind: "modified"}},
		Duration:     1500 * time.Millisecond,
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"json":  FormatJSON,
		"TABLE": FormatTable,
		"yaml":  FormatYAML,
		"yml":   FormatYAML,
		"text":  FormatText,
		"bogus": FormatText,
		"":      FormatText,
	}
	for in, want := range tests {
		if got := ParseFormat(in); got != want {
			t.Errorf("ParseFormat(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestReplacements(t *testing.T) {
	if got := sampleReport().Replacements(); got != 5 {
		t.Errorf("Replacements() = %d, want 5", got)
	}
}

func TestWriteReport_Text(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, FormatText).WriteReport(sampleReport()); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"Archive:        support.zip",
		"Extracted:      3 files, 12.0KiB (ceiling 200.0MiB)",
		"Deleted:        1 files",
		"Replacements:   5 in 1 files",
		"Invalid rules:  1 skipped",
		"Verbose log:    logs/app.log:7 (DEBUG)",
		"Review:         modified logs/app.log",
		"Packed:         2 files in 1.5s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, FormatJSON).WriteReport(sampleReport()); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	var decoded Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Output != "cleaned.zip" || len(decoded.Rules) != 2 || decoded.Deleted[0].Stage != "age" {
		t.Errorf("decoded report = %+v", decoded)
	}
	if !strings.Contains(buf.String(), `"verbose_level": "DEBUG"`) {
		t.Errorf("level not rendered by name:\n%s", buf.String())
	}
	if decoded.VerboseLevel == nil || *decoded.VerboseLevel != config.LevelDebug {
		t.Errorf("VerboseLevel = %v, want DEBUG", decoded.VerboseLevel)
	}
}

func TestWriteReport_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, FormatYAML).WriteReport(sampleReport()); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid YAML: %v\n%s", err, buf.String())
	}
	if decoded["archive"] != "support.zip" {
		t.Errorf("archive = %v", decoded["archive"])
	}
	if decoded["verbose_level"] != "DEBUG" {
		t.Errorf("verbose_level = %v, want DEBUG", decoded["verbose_level"])
	}
	if _, ok := decoded["review_edits"]; !ok {
		t.Error("review_edits missing from YAML")
	}
}

func TestWriteReport_Table(t *testing.T) {
	var buf bytes.Buffer
	r := sampleReport()
	r.Rules = append(r.Rules, RuleCount{Pattern: strings.Repeat("x", 80), Replacement: "X", Count: 0})
	if err := New(&buf, FormatTable).WriteReport(r); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "COUNT") || !strings.Contains(out, "BASEURL_CLEANED") {
		t.Errorf("table missing rule rows:\n%s", out)
	}
	if !strings.Contains(out, strings.Repeat("x", 57)+"...") {
		t.Errorf("long pattern not truncated:\n%s", out)
	}
	if !strings.Contains(out, "logs/old.log") {
		t.Errorf("table missing deleted files:\n%s", out)
	}
}

func TestRenderBanner_Plain(t *testing.T) {
	got := RenderBanner("Verbose logging detected", "Consider a stricter level.", false)
	lines := strings.Split(got, "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), got)
	}
	if lines[0] != strings.Repeat("#", 90) || lines[3] != lines[0] {
		t.Errorf("banner not framed:\n%s", got)
	}
	if lines[1] != "Verbose logging detected" {
		t.Errorf("title line = %q", lines[1])
	}
}

func TestRenderBanner_Styled(t *testing.T) {
	got := RenderBanner("Title", "Body text", true)
	if !strings.Contains(got, "Title") || !strings.Contains(got, "Body text") {
		t.Errorf("styled banner lost content:\n%s", got)
	}
	if !strings.Contains(got, "╭") {
		t.Errorf("styled banner has no rounded border:\n%s", got)
	}
}

func TestShouldColorize(t *testing.T) {
	var buf bytes.Buffer

	tests := []struct {
		name string
		mode ColorMode
		w    interface{}
		want bool
	}{
		{"always", ColorAlways, &buf, true},
		{"never", ColorNever, os.Stdout, false},
		{"auto with buffer", ColorAuto, &buf, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldColorize(tt.mode, tt.w); got != tt.want {
				t.Errorf("shouldColorize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWriteBanner(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBanner(&buf, ColorAuto, "Heads up", "details"); err != nil {
		t.Fatalf("WriteBanner() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), strings.Repeat("#", 90)) {
		t.Errorf("non-terminal writer should get a plain banner:\n%s", buf.String())
	}
}
