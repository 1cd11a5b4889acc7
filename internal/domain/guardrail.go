package domain

import (
	"fmt"
	"regexp"
	"sort"
)

// Rule kinds for the built-in masking table.
const (
	MaskKindEmail  = "email"
	MaskKindNumber = "numeric-sequence"
)

// maxMaskPasses bounds the fixpoint loop in Mask.
const maxMaskPasses = 8

// MaskingRule is one redaction pattern. Rules are loaded at startup and never mutated.
type MaskingRule struct {
	Kind        string
	Pattern     *regexp.Regexp
	Replacement string
}

// NewMaskingRule compiles pattern into a rule.
func NewMaskingRule(kind, pattern, replacement string) (MaskingRule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return MaskingRule{}, fmt.Errorf("masking rule %s: %w", kind, err)
	}
	return MaskingRule{Kind: kind, Pattern: re, Replacement: replacement}, nil
}

// DefaultMaskingRules returns the built-in table: email-like substrings first,
// then 13-16 digit card-like numbers.
func DefaultMaskingRules() []MaskingRule {
	return []MaskingRule{
		{
			Kind:        MaskKindEmail,
			Pattern:     regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(?:\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}\b`),
			Replacement: "[REDACTED_EMAIL]",
		},
		{
			Kind:        MaskKindNumber,
			Pattern:     regexp.MustCompile(`\b\d{13,16}\b`),
			Replacement: "[REDACTED_NUMBER]",
		},
	}
}

// Masker applies an ordered rule table. It is safe for concurrent use.
type Masker struct {
	rules []MaskingRule
}

// NewMasker validates the rule table. A rule must not match the empty string
// and no replacement token may itself match any rule.
func NewMasker(rules ...MaskingRule) (*Masker, error) {
	if len(rules) == 0 {
		rules = DefaultMaskingRules()
	}
	for _, r := range rules {
		if r.Pattern == nil {
			return nil, fmt.Errorf("masking rule %s: nil pattern", r.Kind)
		}
		if r.Pattern.MatchString("") {
			return nil, fmt.Errorf("masking rule %s: pattern matches empty text", r.Kind)
		}
	}
	for _, r := range rules {
		for _, other := range rules {
			if other.Pattern.MatchString(r.Replacement) {
				return nil, fmt.Errorf("masking rule %s: replacement %q matches rule %s", r.Kind, r.Replacement, other.Kind)
			}
		}
	}
	copied := make([]MaskingRule, len(rules))
	copy(copied, rules)
	return &Masker{rules: copied}, nil
}

// Rules returns a copy of the rule table in evaluation order.
func (m *Masker) Rules() []MaskingRule {
	out := make([]MaskingRule, len(m.rules))
	copy(out, m.rules)
	return out
}

// PreEnforce masks an inbound question before retrieval.
func (m *Masker) PreEnforce(text string) string { return m.Mask(text) }

// PostEnforce masks a synthesized answer before it leaves the pipeline.
func (m *Masker) PostEnforce(text string) string { return m.Mask(text) }

// Mask redacts every rule match. Text without matches is returned unchanged
// and Mask(Mask(x)) == Mask(x).
func (m *Masker) Mask(text string) string {
	for i := 0; i < maxMaskPasses; i++ {
		next, changed := m.pass(text)
		if !changed {
			return text
		}
		text = next
	}
	return text
}

type maskSpan struct {
	start, end int
	token      string
}

// pass replaces all non-overlapping matches once. On overlapping spans the
// earlier rule wins.
func (m *Masker) pass(text string) (string, bool) {
	var accepted []maskSpan
	for _, r := range m.rules {
		for _, loc := range r.Pattern.FindAllStringIndex(text, -1) {
			if overlapsAny(accepted, loc[0], loc[1]) {
				continue
			}
			accepted = append(accepted, maskSpan{start: loc[0], end: loc[1], token: r.Replacement})
		}
	}
	if len(accepted) == 0 {
		return text, false
	}
	sort.Slice(accepted, func(i, j int) bool { return accepted[i].start < accepted[j].start })

	out := make([]byte, 0, len(text))
	prev := 0
	for _, s := range accepted {
		out = append(out, text[prev:s.start]...)
		out = append(out, s.token...)
		prev = s.end
	}
	out = append(out, text[prev:]...)
	result := string(out)
	return result, result != text
}

func overlapsAny(spans []maskSpan, start, end int) bool {
	for _, s := range spans {
		if start < s.end && s.start < end {
			return true
		}
	}
	return false
}
