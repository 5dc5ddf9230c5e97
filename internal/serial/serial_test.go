package serial

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMatchesFormat(t *testing.T) {
	s, err := Generate("MCX")
	require.NoError(t, err)
	assert.True(t, Validate(s))

	now := time.Now()
	assert.Contains(t, s, fmt.Sprintf("-%04d%02d-", now.Year(), int(now.Month())))
}

func TestGenerateNormalizesProgramCode(t *testing.T) {
	s, err := Generate(" bse ")
	require.NoError(t, err)
	assert.True(t, Validate(s))

	parts, err := Parse(s)
	require.NoError(t, err)
	assert.Equal(t, "BSE", parts.ProgramCode)
}

func TestGenerateRejectsBadProgramCodes(t *testing.T) {
	for _, code := range []string{"", "A", "TOOLONG", "MC1", "M-X"} {
		_, err := Generate(code)
		assert.Error(t, err, "code %q", code)
	}
}

func TestGenerateProducesDistinctSerials(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s, err := Generate("NSE")
		require.NoError(t, err)
		assert.False(t, seen[s], "duplicate serial %s", s)
		seen[s] = true
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		serial string
		valid  bool
	}{
		{"SE-MCX-202402-ABC12345", true},
		{"SE-BSE-202512-00FF00FF", true},
		{"SE-NSDL-202401-DEADBEEF", true},
		{"SE-MC-202402-ABC12345", true},
		{"XX-MCX-202402-ABC12345", false},
		{"SE-mcx-202402-ABC12345", false},
		{"SE-MCX-2024-ABC12345", false},
		{"SE-MCX-202402-abc12345", false},
		{"SE-MCX-202402-ABC1234", false},
		{"SE-MCX-202402-ABC12345-X", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.valid, Validate(tc.serial), "serial %q", tc.serial)
	}
}

func TestParse(t *testing.T) {
	parts, err := Parse("SE-MCX-202402-ABC12345")
	require.NoError(t, err)
	assert.Equal(t, "SE", parts.Prefix)
	assert.Equal(t, "MCX", parts.ProgramCode)
	assert.Equal(t, 2024, parts.Year)
	assert.Equal(t, 2, parts.Month)
	assert.Equal(t, "ABC12345", parts.UniqueID)
}

func TestParseRejectsInvalidSerials(t *testing.T) {
	_, err := Parse("SE-MCX-202400-ABC12345")
	assert.Error(t, err)

	_, err = Parse("garbage")
	assert.Error(t, err)
}
