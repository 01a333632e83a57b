package redact

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

const (
	// Separator splits a filter line into pattern and replacement.
	Separator = "||"
	// BaseURLToken in a pattern is replaced by the escaped base URL.
	BaseURLToken = "{baseurl}"
	// HashToken in a replacement switches the rule to pseudonymization.
	HashToken = "{hash}"

	// BaseURLPlaceholder replaces every literal occurrence of the base URL.
	BaseURLPlaceholder = "BASEURL_CLEANED"
	// UsernamePlaceholder replaces the value of a "userName:" field.
	UsernamePlaceholder = "userName: USERNAME_CLEANED"

	// DefaultMatchTimeout bounds a single pattern evaluation.
	DefaultMatchTimeout = 5 * time.Second
)

// ErrInvalidRule marks a filter line that was skipped.
var ErrInvalidRule = errors.New("invalid filter rule")

//go:embed filters.txt
var defaultFilters string

// DefaultFilters returns the filter file shipped with the tool.
func DefaultFilters() io.Reader {
	return strings.NewReader(defaultFilters)
}

// Rule is a compiled pattern with its replacement.
type Rule struct {
	Pattern     string
	Replacement string
	UsesHash    bool
	re          *regexp2.Regexp
}

// InvalidRule is a filter line that could not be used.
type InvalidRule struct {
	Line int
	Text string
	Err  error
}

func (r InvalidRule) Error() string {
	return fmt.Sprintf("line %d: %q: %v", r.Line, r.Text, r.Err)
}

func (r InvalidRule) Unwrap() error {
	return r.Err
}

// RuleSet is the outcome of loading a filter file.
type RuleSet struct {
	Rules   []Rule
	Invalid []InvalidRule
}

// NewRule compiles pattern. Named groups may use either (?<name>...) or
// the (?P<name>...) spelling.
func NewRule(pattern, replacement string, timeout time.Duration) (Rule, error) {
	expr := strings.ReplaceAll(pattern, "(?P<", "(?<")
	re, err := regexp2.Compile(expr, regexp2.None)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}
	if timeout > 0 {
		re.MatchTimeout = timeout
	}
	return Rule{
		Pattern:     pattern,
		Replacement: replacement,
		UsesHash:    strings.Contains(replacement, HashToken),
		re:          re,
	}, nil
}

// Baseline returns the rules that run regardless of any filter file: the
// literal base URL and the "userName:" field.
func Baseline(baseURL string, timeout time.Duration) []Rule {
	var rules []Rule
	if baseURL != "" {
		if rule, err := NewRule(regexp2.Escape(baseURL), BaseURLPlaceholder, timeout); err == nil {
			rules = append(rules, rule)
		}
	}
	rules = append(rules, mustRule(`userName: [^\s,;"'&<>]+`, UsernamePlaceholder, timeout))
	return rules
}

func mustRule(pattern, replacement string, timeout time.Duration) Rule {
	rule, err := NewRule(pattern, replacement, timeout)
	if err != nil {
		panic(err)
	}
	return rule
}

// LoadRules reads one rule per line of the form pattern||replacement.
// Blank lines and lines starting with '#' are ignored. Lines without
// exactly one separator, or whose pattern does not compile, are collected
// in RuleSet.Invalid and skipped. Only a read failure returns an error.
func LoadRules(r io.Reader, baseURL string, timeout time.Duration) (*RuleSet, error) {
	set := &RuleSet{}
	scanner := bufio.NewScanner(r)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		raw := scanner.Text()
		if strings.HasPrefix(raw, "#") {
			continue
		}
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if strings.Count(line, Separator) != 1 {
			set.Invalid = append(set.Invalid, InvalidRule{
				Line: lineNum,
				Text: line,
				Err:  fmt.Errorf("%w: expected exactly one %q", ErrInvalidRule, Separator),
			})
			continue
		}

		pattern, replacement, _ := strings.Cut(line, Separator)
		pattern = strings.ReplaceAll(pattern, BaseURLToken, regexp2.Escape(baseURL))

		rule, err := NewRule(pattern, replacement, timeout)
		if err != nil {
			set.Invalid = append(set.Invalid, InvalidRule{Line: lineNum, Text: line, Err: err})
			continue
		}
		set.Rules = append(set.Rules, rule)
	}

	if err := scanner.Err(); err != nil {
		return set, fmt.Errorf("read filters: %w", err)
	}
	return set, nil
}
