package constraint_test

import (
	"testing"

	"github.com/sdig/erddap/info/pkg/constraint"
	"github.com/stretchr/testify/require"
)

func TestInfo_Constraint_Build(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		values   any
		expected constraint.Constraint
	}{
		{
			name:     "nil",
			values:   nil,
			expected: constraint.Constraint{Expression: "", Values: []string{}},
		},
		{
			name:     "empty slice",
			values:   []string{},
			expected: constraint.Constraint{Expression: "", Values: []string{}},
		},
		{
			name:     "nil slice",
			values:   []string(nil),
			expected: constraint.Constraint{Expression: "", Values: []string{}},
		},
		{
			name:     "scalar",
			values:   "1022.0",
			expected: constraint.Constraint{Expression: `trajectory_id="1022.0"`, Values: []string{"1022.0"}},
		},
		{
			name:     "one element slice",
			values:   []string{"X"},
			expected: constraint.Constraint{Expression: `trajectory_id="X"`, Values: []string{"X"}},
		},
		{
			name:     "several values keep order and duplicates",
			values:   []string{"1040.0", "1041.0", "1095.0", "1040.0"},
			expected: constraint.Constraint{Expression: `trajectory_id=~"1040.0|1041.0|1095.0|1040.0"`, Values: []string{"1040.0", "1041.0", "1095.0", "1040.0"}},
		},
		{
			name:     "non-string scalar",
			values:   42,
			expected: constraint.Constraint{Expression: `trajectory_id="42"`, Values: []string{"42"}},
		},
		{
			name:     "mixed slice",
			values:   []any{"A", 7, 2.5},
			expected: constraint.Constraint{Expression: `trajectory_id=~"A|7|2.5"`, Values: []string{"A", "7", "2.5"}},
		},
		{
			name:     "reserved characters are encoded",
			values:   []string{"a b", "c|d", "e\"f"},
			expected: constraint.Constraint{Expression: `trajectory_id=~"a%20b|c%7Cd|e%22f"`, Values: []string{"a b", "c|d", "e\"f"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.expected, constraint.Build("trajectory_id", tt.values))
		})
	}
}

func TestInfo_Constraint_Escape(t *testing.T) {
	t.Parallel()

	require.Equal(t, "AZaz09-._~/", constraint.Escape("AZaz09-._~/"))
	require.Equal(t, "%26%3D%2B%2C%3A%40%21", constraint.Escape("&=+,:@!"))
	require.Equal(t, "caf%C3%A9", constraint.Escape("café"))
	require.Equal(t, "", constraint.Escape(""))
}

func TestInfo_Constraint_Normalize(t *testing.T) {
	t.Parallel()

	s := "W1"
	require.Equal(t, []string{"W1"}, constraint.Normalize(&s))
	require.Equal(t, []string{"1", "2"}, constraint.Normalize([2]int{1, 2}))
	require.Equal(t, []string{}, constraint.Normalize((*string)(nil)))
}
