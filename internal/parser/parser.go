// Package parser recognizes the head of Atlassian application log lines,
// e.g.
//
//	2020-01-22 09:03:08,633 http-nio-8080-exec-55 INFO [c.a.j.Component] ...
//
// and finds files that were written at a verbose log level.
package parser

import (
	"bufio"
	"errors"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/bimmerbailey/supportcleaner/internal/config"
)

// maxLineBytes bounds a single line; files with longer lines are treated
// as not being application logs.
const maxLineBytes = 1 << 20

// headPattern matches timestamp, thread and level at the start of a line.
// The thread is the shortest run of text before the first level word.
var headPattern = regexp.MustCompile(
	`^(\d{4}-\d{2}-\d{2}\s\d{2}:\d{2}:\d{2}[,.]\d{1,3})\s(.*?)\s?\b(TRACE|DEBUG|INFO|WARN(?:ING)?|ERROR|FATAL)\b`)

const timestampLayout = "2006-01-02 15:04:05"

// Head is the parsed start of a log line.
type Head struct {
	Timestamp time.Time
	Thread    string
	Level     config.LogLevel
}

// ParseHead parses the head of line. ok is false when line does not start
// like an Atlassian log line.
func ParseHead(line string) (head Head, ok bool) {
	m := headPattern.FindStringSubmatch(line)
	if m == nil {
		return Head{}, false
	}

	stamp := strings.Map(func(r rune) rune {
		switch r {
		case ',':
			return '.'
		case '\t':
			return ' '
		}
		return r
	}, m[1])
	ts, err := time.Parse(timestampLayout, stamp)
	if err != nil {
		return Head{}, false
	}

	return Head{
		Timestamp: ts,
		Thread:    strings.TrimSpace(m[2]),
		Level:     config.ParseLevel(m[3]),
	}, true
}

// Finding is the first verbose line found in a file.
type Finding struct {
	Path string `json:"path" yaml:"path"`
	Line int    `json:"line" yaml:"line"`
	Head Head   `json:"-" yaml:"-"`
}

// Scan returns the first line in r whose level is verbose.
func Scan(r io.Reader) (line int, head Head, found bool, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		h, ok := ParseHead(scanner.Text())
		if ok && h.Level.Verbose() {
			return lineNum, h, true, nil
		}
	}
	return 0, Head{}, false, scanner.Err()
}

// ScanFile reports the first verbose line of the file at path. Files that
// are not line oriented are reported as clean.
func ScanFile(path string) (Finding, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return Finding{}, false, err
	}
	defer f.Close()

	line, head, found, err := Scan(f)
	if errors.Is(err, bufio.ErrTooLong) {
		return Finding{}, false, nil
	}
	if err != nil {
		return Finding{}, false, err
	}
	if !found {
		return Finding{}, false, nil
	}
	return Finding{Path: path, Line: line, Head: head}, true, nil
}

// FirstVerbose scans paths in order and stops at the first file that logs
// at INFO or DEBUG.
func FirstVerbose(paths []string) (Finding, bool, error) {
	for _, path := range paths {
		finding, found, err := ScanFile(path)
		if err != nil {
			return Finding{}, false, err
		}
		if found {
			return finding, true, nil
		}
	}
	return Finding{}, false, nil
}
