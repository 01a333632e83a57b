package retention

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bimmerbailey/supportcleaner/internal/unitsize"
	"github.com/google/go-cmp/cmp"
)

func sizedRecords(sizes ...int64) []FileRecord {
	records := make([]FileRecord, len(sizes))
	for i, s := range sizes {
		records[i] = FileRecord{Path: filepath.Join("tree", string(rune('a'+i))+".log"), Size: unitsize.ByteSize(s)}
	}
	return records
}

func paths(records []FileRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = filepath.Base(r.Path)
	}
	return out
}

func TestLargestPercentile(t *testing.T) {
	tests := []struct {
		name    string
		sizes   []int64
		percent int
		want    []string
	}{
		{"ten files selects largest", []int64{5, 1, 9, 3, 100, 7, 2, 8, 4, 6}, 10, []string{"e.log"}},
		{"no files", nil, 10, nil},
		{"single file is always in the top share", []int64{42}, 10, []string{"a.log"}},
		{"nine files truncates toward large side", []int64{1, 2, 3, 4, 5, 6, 7, 8, 9}, 10, []string{"i.log"}},
		{"twenty files selects two", []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, 10, []string{"s.log", "t.log"}},
		{"zero percent disables", []int64{1, 2, 3}, 0, nil},
		{"hundred percent selects all", []int64{3, 1, 2}, 100, []string{"b.log", "c.log", "a.log"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := paths(LargestPercentile(sizedRecords(tt.sizes...), tt.percent))
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("LargestPercentile() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// Ties at the cut are resolved by position, not by size: of ten equally
// sized files exactly one is selected, and it is the last in input order.
func TestLargestPercentileTiesCutByCount(t *testing.T) {
	got := LargestPercentile(sizedRecords(5, 5, 5, 5, 5, 5, 5, 5, 5, 5), 10)
	if len(got) != 1 {
		t.Fatalf("expected 1 file, got %d", len(got))
	}
	if base := filepath.Base(got[0].Path); base != "j.log" {
		t.Errorf("expected stable sort to keep j.log last, got %s", base)
	}
}

func TestLargestPercentileDoesNotReorderInput(t *testing.T) {
	records := sizedRecords(3, 1, 2)
	LargestPercentile(records, 50)
	if diff := cmp.Diff([]string{"a.log", "b.log", "c.log"}, paths(records)); diff != "" {
		t.Errorf("input was reordered (-want +got):\n%s", diff)
	}
}

func TestOlderThan(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	records := []FileRecord{
		{Path: "fresh.log", ModifiedAt: now.Add(-2 * time.Hour)},
		{Path: "week.log", ModifiedAt: now.Add(-7 * 24 * time.Hour)},
		{Path: "month.log", ModifiedAt: now.Add(-31 * 24 * time.Hour)},
	}

	tests := []struct {
		name string
		days int
		want []string
	}{
		{"thirty days", 30, []string{"month.log"}},
		{"boundary is exclusive", 7, []string{"month.log"}},
		{"one day", 1, []string{"week.log", "month.log"}},
		{"zero disables", 0, nil},
		{"negative disables", -5, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := paths(OlderThan(records, tt.days, now))
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("OlderThan() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMatchingNameRegex(t *testing.T) {
	match, err := RegexName(DefaultMailLogPattern)
	if err != nil {
		t.Fatalf("RegexName() error = %v", err)
	}

	records := []FileRecord{
		{Path: filepath.Join("logs", "atlassian-jira-incoming-mail.log")},
		{Path: filepath.Join("logs", "atlassian-jira-outgoing-mail.log")},
		{Path: filepath.Join("logs", "atlassian-jira.log")},
		{Path: filepath.Join("incoming-mail.log", "catalina.out")},
	}

	got := paths(MatchingName(records, match))
	want := []string{"atlassian-jira-incoming-mail.log", "atlassian-jira-outgoing-mail.log"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MatchingName() mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchingNameGlob(t *testing.T) {
	match, err := GlobName("*.out")
	if err != nil {
		t.Fatalf("GlobName() error = %v", err)
	}
	got := paths(MatchingName([]FileRecord{{Path: "catalina.out"}, {Path: "app.log"}}, match))
	if diff := cmp.Diff([]string{"catalina.out"}, got); diff != "" {
		t.Errorf("MatchingName() mismatch (-want +got):\n%s", diff)
	}

	if _, err := GlobName("[broken"); err == nil {
		t.Error("expected error for malformed glob")
	}
}

func TestRegexNameInvalid(t *testing.T) {
	if _, err := RegexName("(unclosed"); err == nil {
		t.Error("expected error for invalid regex")
	}
}

func TestWalk(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.log"), "bb")
	writeFile(t, filepath.Join(dir, "nested", "a.log"), "a")

	records, err := Walk(dir)
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Path != filepath.Join(dir, "b.log") || records[0].Size != 2 {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[1].Path != filepath.Join(dir, "nested", "a.log") || records[1].Size != 1 {
		t.Errorf("unexpected second record: %+v", records[1])
	}
}

func TestDeleteContinuesPastMissingFiles(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.log")
	writeFile(t, present, "x")

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	removed := Delete([]FileRecord{
		{Path: filepath.Join(dir, "missing.log")},
		{Path: present},
	}, logger)

	if len(removed) != 1 || removed[0].Path != present {
		t.Fatalf("expected only present.log removed, got %+v", removed)
	}
	if _, err := os.Stat(present); !os.IsNotExist(err) {
		t.Errorf("present.log still exists: %v", err)
	}
	if !strings.Contains(logs.String(), "missing.log") {
		t.Errorf("expected missing file to be logged, got %q", logs.String())
	}
}

func TestExisting(t *testing.T) {
	dir := t.TempDir()
	kept := filepath.Join(dir, "kept.log")
	writeFile(t, kept, "x")

	got := Existing([]FileRecord{{Path: kept}, {Path: filepath.Join(dir, "gone.log")}})
	if len(got) != 1 || got[0].Path != kept {
		t.Errorf("Existing() = %+v", got)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}
