// Package tests contains unit tests for flag list parsing.
package tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thirukguru/waf-perimeter/service/flag"
)

// TestSplitList tests comma and whitespace separated list parsing
func TestSplitList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "comma separated", raw: "prod,staging,dev", want: []string{"prod", "staging", "dev"}},
		{name: "space separated", raw: "prod staging", want: []string{"prod", "staging"}},
		{name: "mixed separators with padding", raw: " prod, staging\tdev ", want: []string{"prod", "staging", "dev"}},
		{name: "empty", raw: "", want: nil},
		{name: "only separators", raw: ", ,\t", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, flag.SplitList(tt.raw))
		})
	}
}
