package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeOrderNumber_TrimsWhitespace(t *testing.T) {
	got, err := SanitizeOrderNumber(" AB-12_3.4 ")
	require.NoError(t, err)
	assert.Equal(t, "AB-12_3.4", got)
}

func TestSanitizeOrderNumber_AcceptsFullCharset(t *testing.T) {
	got, err := SanitizeOrderNumber("abcXYZ019._-")
	require.NoError(t, err)
	assert.Equal(t, "abcXYZ019._-", got)
}

func TestSanitizeOrderNumber_Rejections(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"literal zero", "0"},
		{"zero with padding", " 0 "},
		{"too long", strings.Repeat("A", 51)},
		{"percent", "ORD%100"},
		{"space inside", "ORD 100"},
		{"unicode", "ORDÄ100"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := SanitizeOrderNumber(tc.in)
			assert.ErrorIs(t, err, ErrInvalidOrderNumber)
		})
	}
}

func TestSanitizeOrderNumber_MaxLengthBoundary(t *testing.T) {
	got, err := SanitizeOrderNumber(strings.Repeat("A", 50))
	require.NoError(t, err)
	assert.Len(t, got, 50)
}
