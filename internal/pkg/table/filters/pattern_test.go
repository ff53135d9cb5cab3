package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePattern(t *testing.T) {
	tests := []struct {
		input       string
		wantPattern string
		wantType    PatternType
	}{
		{"", "", PatternContains},
		{"alice", "alice", PatternContains},
		{"alice*", "alice", PatternPrefix},
		{"*.yaml", ".yaml", PatternSuffix},
		{"*alice*", "alice", PatternContains},
		{`\*alice`, "*alice", PatternContains},
		{`alice\*`, "alice*", PatternContains},
		{"*", "", PatternSuffix},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			pattern, patternType := ParsePattern(tt.input)
			assert.Equal(t, tt.wantPattern, pattern)
			assert.Equal(t, tt.wantType, patternType)
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name        string
		value       string
		pattern     string
		patternType PatternType
		want        bool
	}{
		{"contains", "Report.YAML", "port", PatternContains, true},
		{"prefix", "Report.YAML", "rep", PatternPrefix, true},
		{"prefix miss", "Report.YAML", "port", PatternPrefix, false},
		{"suffix", "Report.YAML", ".yaml", PatternSuffix, true},
		{"suffix miss", "Report.YAML", "rep", PatternSuffix, false},
		{"empty pattern", "anything", "", PatternPrefix, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.value, tt.pattern, tt.patternType))
		})
	}
}
