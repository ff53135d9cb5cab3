package filters

import "strings"

// PatternType selects how a text pattern is compared with cell text
type PatternType int

const (
	// PatternContains is used for patterns without wildcards
	PatternContains PatternType = iota
	PatternPrefix
	PatternSuffix
)

// ParsePattern strips the wildcards from input and detects the match type.
//
//   - "alice"    contains
//   - "alice*"   prefix
//   - "*.yaml"   suffix
//   - "*alice*"  contains
//   - "\*alice"  contains, with a literal "*"
func ParsePattern(input string) (pattern string, patternType PatternType) {
	if input == "" {
		return "", PatternContains
	}

	// Escaped asterisks survive wildcard detection as NUL
	const placeholder = "\x00"
	working := strings.ReplaceAll(input, `\*`, placeholder)

	leading := strings.HasPrefix(working, "*")
	trailing := len(working) > 1 && strings.HasSuffix(working, "*")

	switch {
	case leading && trailing:
		patternType = PatternContains
		working = strings.TrimSuffix(strings.TrimPrefix(working, "*"), "*")
	case leading:
		patternType = PatternSuffix
		working = strings.TrimPrefix(working, "*")
	case trailing:
		patternType = PatternPrefix
		working = strings.TrimSuffix(working, "*")
	default:
		patternType = PatternContains
	}

	return strings.ReplaceAll(working, placeholder, "*"), patternType
}

// Match compares value with a lowercase pattern, case-insensitively
func Match(value, pattern string, patternType PatternType) bool {
	if pattern == "" {
		return true
	}
	value = strings.ToLower(value)
	switch patternType {
	case PatternPrefix:
		return strings.HasPrefix(value, pattern)
	case PatternSuffix:
		return strings.HasSuffix(value, pattern)
	default:
		return strings.Contains(value, pattern)
	}
}
