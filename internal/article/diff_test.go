package article

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// reconstruct joins the segment halves back into the two input texts.
func reconstruct(segments []DiffSegment) (oldText, newText string) {
	var left, right strings.Builder
	for _, seg := range segments {
		if !seg.Added {
			left.WriteString(seg.Text)
		}
		if !seg.Removed {
			right.WriteString(seg.Text)
		}
	}
	return left.String(), right.String()
}

func TestDiffTexts_RoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		oldText string
		newText string
	}{
		{"word change", "A quick brown fox", "A slow brown fox"},
		{"paragraph added", "first paragraph\n", "first paragraph\nsecond paragraph\n"},
		{"full rewrite", "entirely old content", "something new altogether"},
		{"cyrillic", "Проект Альфа начался", "Проект Бета начался"},
		{"deletion only", "keep this remove that", "keep this"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			segments := DiffTexts(tc.oldText, tc.newText)
			gotOld, gotNew := reconstruct(segments)
			assert.Equal(t, tc.oldText, gotOld)
			assert.Equal(t, tc.newText, gotNew)
		})
	}
}

func TestDiffTexts_NoPriorVersion(t *testing.T) {
	segments := DiffTexts("", "the whole body")
	assert.Len(t, segments, 1)
	assert.True(t, segments[0].Added)
	assert.False(t, segments[0].Removed)
	assert.Equal(t, "the whole body", segments[0].Text)
}

func TestDiffTexts_Identical(t *testing.T) {
	segments := DiffTexts("same text", "same text")
	assert.Len(t, segments, 1)
	assert.False(t, segments[0].Added)
	assert.False(t, segments[0].Removed)
}

func TestDiffTexts_NoEmptySegments(t *testing.T) {
	segments := DiffTexts("a b c", "a x c")
	for _, seg := range segments {
		assert.NotEmpty(t, seg.Text)
		assert.False(t, seg.Added && seg.Removed)
	}
}
