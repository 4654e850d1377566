package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/davbunn1/riboviz/internal/discovery"
)

// Pattern represents a compiled sample-selection condition supporting
// substring and /regex/ matching.
type Pattern struct {
	raw   string
	regex *regexp.Regexp
	lower string
}

// Compile transforms raw pattern strings into Pattern values.
func Compile(patterns []string) ([]Pattern, error) {
	result := make([]Pattern, 0, len(patterns))
	for _, raw := range patterns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/") && len(raw) >= 2 {
			expr := raw[1 : len(raw)-1]
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, fmt.Errorf("compile regexp %q: %w", raw, err)
			}
			result = append(result, Pattern{raw: raw, regex: re})
			continue
		}
		result = append(result, Pattern{raw: raw, lower: strings.ToLower(raw)})
	}
	return result, nil
}

// Match reports whether the pattern matches the supplied sample name.
func (p Pattern) Match(s string) bool {
	if s == "" {
		return false
	}
	if p.regex != nil {
		return p.regex.MatchString(s)
	}
	return strings.Contains(strings.ToLower(s), p.lower)
}

// Inputs returns the sample inputs whose names match at least one pattern.
// With no patterns every input is kept.
func Inputs(inputs []discovery.Input, patterns []Pattern) []discovery.Input {
	if len(patterns) == 0 {
		return inputs
	}
	result := make([]discovery.Input, 0, len(inputs))
	for _, in := range inputs {
		if matches(in.Sample, patterns) {
			result = append(result, in)
		}
	}
	return result
}

func matches(name string, patterns []Pattern) bool {
	for _, pattern := range patterns {
		if pattern.Match(name) {
			return true
		}
	}
	return false
}
