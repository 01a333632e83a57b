// Package redact rewrites log text with an ordered list of pattern
// replacement rules.
//
// Literal rules substitute a fixed string. Hash rules replace each match
// with a placeholder derived from a digest of the matched value, so the
// same value maps to the same placeholder in every file and every run:
//
//	alice@example.com -> INTERNAL_EMAIL_SHA256:ff8d9819fc_CLEANED
//	bob@elsewhere.org -> EXTERNAL_EMAIL_SHA256:5ba5e0d8c4_CLEANED
//
// Rules run in order over the current text, so every rule sees the output
// of the rules before it.
package redact

import (
	"fmt"
	"sync"

	"github.com/dlclark/regexp2"
)

// cleanedSuffix terminates every hash placeholder.
const cleanedSuffix = "_CLEANED"

// Tag is the category of a pseudonymized value.
type Tag int

const (
	TagGeneric Tag = iota
	TagInternalEmail
	TagExternalEmail
	TagUsername
)

// Group names consulted by hash rules, in priority order.
const (
	groupInternalMail = "internal_mail"
	groupExternalMail = "external_mail"
	groupUser         = "user"
)

// String returns the tag name.
func (t Tag) String() string {
	switch t {
	case TagInternalEmail:
		return "internal_email"
	case TagExternalEmail:
		return "external_email"
	case TagUsername:
		return "username"
	default:
		return "generic"
	}
}

// Prefix is prepended to the hash in a placeholder.
func (t Tag) Prefix() string {
	switch t {
	case TagInternalEmail:
		return "INTERNAL_EMAIL_"
	case TagExternalEmail:
		return "EXTERNAL_EMAIL_"
	case TagUsername:
		return "USERNAME_"
	default:
		return ""
	}
}

// Match is what a hash rule found: a category and the text to hash.
type Match struct {
	Tag  Tag
	Text string
}

// classify picks the first named group that took part in the match, or
// the whole match when none did.
func classify(m *regexp2.Match) Match {
	for _, g := range []struct {
		name string
		tag  Tag
	}{
		{groupInternalMail, TagInternalEmail},
		{groupExternalMail, TagExternalEmail},
		{groupUser, TagUsername},
	} {
		if grp := m.GroupByName(g.name); grp != nil && len(grp.Captures) > 0 {
			return Match{Tag: g.tag, Text: grp.String()}
		}
	}
	return Match{Tag: TagGeneric, Text: m.String()}
}

// Redactor applies rules to text. It is safe for concurrent use.
type Redactor struct {
	rules  []Rule
	hasher Hasher
	seen   map[string]string // placeholder -> tag, for reporting
	mu     sync.RWMutex
}

// Option configures a Redactor.
type Option func(*Redactor)

// WithHasher selects the digest used by hash rules. Default is SHA256.
func WithHasher(h Hasher) Option {
	return func(r *Redactor) {
		r.hasher = h
	}
}

// NewRedactor creates a Redactor over rules, applied in the given order.
func NewRedactor(rules []Rule, opts ...Option) *Redactor {
	r := &Redactor{
		rules:  rules,
		hasher: SHA256,
		seen:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Placeholder returns the placeholder for m.
func (r *Redactor) Placeholder(m Match) string {
	placeholder := m.Tag.Prefix() + r.hasher.Hash(m.Text) + cleanedSuffix

	r.mu.RLock()
	_, ok := r.seen[placeholder]
	r.mu.RUnlock()
	if !ok {
		r.mu.Lock()
		r.seen[placeholder] = m.Tag.String()
		r.mu.Unlock()
	}
	return placeholder
}

// UniquePlaceholders reports how many distinct hash placeholders were
// emitted so far.
func (r *Redactor) UniquePlaceholders() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.seen)
}

// RuleError reports a rule that failed on one input, typically by
// exceeding its match timeout. The text is left as the previous rule
// produced it.
type RuleError struct {
	Rule int
	Err  error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %d: %v", e.Rule, e.Err)
}

func (e *RuleError) Unwrap() error {
	return e.Err
}

// Apply runs every rule over text and returns the result together with the
// number of replacements each rule made, indexed like Rules(). A rule that
// fails is skipped and reported in errs.
func (r *Redactor) Apply(text string) (result string, counts []int, errs []error) {
	counts = make([]int, len(r.rules))
	result = text

	for i, rule := range r.rules {
		next, n, err := r.applyRule(rule, result)
		if err != nil {
			errs = append(errs, &RuleError{Rule: i, Err: err})
			continue
		}
		result = next
		counts[i] = n
	}
	return result, counts, errs
}

func (r *Redactor) applyRule(rule Rule, text string) (string, int, error) {
	n := 0
	evaluator := func(m regexp2.Match) string {
		n++
		if rule.UsesHash {
			return r.Placeholder(classify(&m))
		}
		return rule.Replacement
	}

	out, err := rule.re.ReplaceFunc(text, evaluator, -1, -1)
	if err != nil {
		return text, 0, err
	}
	return out, n, nil
}
