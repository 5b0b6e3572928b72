package states

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidHouse(t *testing.T) {
	require.True(t, ValidHouse("CA"))
	require.True(t, ValidHouse("DC"))
	require.True(t, ValidHouse("PR"))
	require.True(t, ValidHouse("MP"))
	require.False(t, ValidHouse("XX"))
	require.False(t, ValidHouse("ca"))
}

func TestValidSenate(t *testing.T) {
	require.True(t, ValidSenate("AL"))
	require.True(t, ValidSenate("WY"))
	require.False(t, ValidSenate("DC"))
	require.False(t, ValidSenate("PR"))
	require.False(t, ValidSenate("XX"))
}

func TestName(t *testing.T) {
	require.Equal(t, "California", Name("CA"))
	require.Equal(t, "District of Columbia", Name("DC"))
	require.Equal(t, "", Name("ZZ"))
}
