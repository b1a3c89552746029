package card

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// runeWidth measures 10px per rune, which makes budgets easy to reason
// about in tests.
func runeWidth(s string) float64 {
	return float64(len([]rune(s))) * 10
}

func TestFitText_FitsVerbatim(t *testing.T) {
	require.Equal(t, "Ada", fitText(runeWidth, "Ada", 100))
}

func TestFitText_ExactFitNoEllipsis(t *testing.T) {
	require.Equal(t, "ABCDEFGHIJ", fitText(runeWidth, "ABCDEFGHIJ", 100))
}

func TestFitText_TruncatesWithEllipsis(t *testing.T) {
	got := fitText(runeWidth, "Jean-Baptiste Aurélien", 100)
	require.Equal(t, "Jean-Ba...", got)
	require.LessOrEqual(t, runeWidth(got), 100.0)
}

func TestFitText_NeverDropsBelowOneCharacter(t *testing.T) {
	got := fitText(runeWidth, "ABCDEF", 5)
	require.Equal(t, "A...", got)
}

func TestInitials(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Jean-Baptiste Aurélien", "JA"},
		{"Grace Hopper", "GH"},
		{"ada", "A"},
		{"a b c", "AB"},
		{"", "?"},
		{"   ", "?"},
		{"éric blanc", "ÉB"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, initials(tt.name), "initials(%q)", tt.name)
	}
}

func TestMemberSince(t *testing.T) {
	joined := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "Mar 2024", memberSince(joined))
}
