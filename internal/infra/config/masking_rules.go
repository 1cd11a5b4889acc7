package config

import (
	"fmt"
	"os"

	"rag-governor/internal/domain"

	"gopkg.in/yaml.v3"
)

// MaskingRulesFile is the on-disk layout of GUARDRAIL_RULES_FILE.
//
//	rules:
//	  - kind: phone
//	    pattern: '\+?\d{2,3}-\d{3,4}-\d{4}'
//	    replacement: '[REDACTED_PHONE]'
type MaskingRulesFile struct {
	Rules []MaskingRuleSpec `yaml:"rules"`
}

type MaskingRuleSpec struct {
	Kind        string `yaml:"kind"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// LoadMaskingRules returns the built-in rules followed by the rules in path.
// An empty path returns the built-in rules only.
func LoadMaskingRules(path string) ([]domain.MaskingRule, error) {
	rules := domain.DefaultMaskingRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read masking rules %s: %w", path, err)
	}

	var file MaskingRulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse masking rules %s: %w", path, err)
	}

	for i, entry := range file.Rules {
		if entry.Pattern == "" {
			return nil, fmt.Errorf("masking rule %d in %s: pattern is required", i, path)
		}
		kind := entry.Kind
		if kind == "" {
			kind = fmt.Sprintf("custom-%d", i)
		}
		rule, err := domain.NewMaskingRule(kind, entry.Pattern, entry.Replacement)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
