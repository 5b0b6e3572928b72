package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "elizabeth warren", NormalizeName("  Elizabeth\tWarren \n"))
	require.Equal(t, "pelosi", NormalizeName("PELOSI"))
}

func TestMutualPrefix(t *testing.T) {
	testCases := []struct {
		a, b     string
		expected bool
	}{
		{"Elizabeth", "Elizabeth", true},
		{"ELIZABETH", "Elizabeth Ann", true},
		{"Elizabeth Ann", "elizabeth", true},
		{"Liz", "Elizabeth", false},
		{"Thomas", "Tommy", false},
		{"", "Elizabeth", false},
	}
	for _, test := range testCases {
		require.Equal(t, test.expected, MutualPrefix(test.a, test.b), "%q vs %q", test.a, test.b)
	}
}

func TestContainsFold(t *testing.T) {
	require.True(t, ContainsFold("Periodic Transaction Report", "periodic transaction"))
	require.False(t, ContainsFold("Annual Report", "transaction"))
}
