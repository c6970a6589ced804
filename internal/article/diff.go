package article

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffSegment is one chunk of a human-readable diff. Concatenating the text
// of all non-removed segments reconstructs the right-hand input; all
// non-added segments reconstruct the left-hand input.
type DiffSegment struct {
	Text    string `json:"text"`
	Added   bool   `json:"added"`
	Removed bool   `json:"removed"`
}

// DiffResult is the comparison of two versions for review in the UI.
type DiffResult struct {
	From    *VersionSummary `json:"from"` // nil when comparing against no prior version
	To      VersionSummary  `json:"to"`
	Content []DiffSegment   `json:"content"`
}

// DiffTexts compares two bodies at word/phrase granularity. Semantic
// cleanup merges the raw edit script into chunks meant for human review
// rather than a minimal patch; the reconstruction invariants above hold
// either way.
func DiffTexts(oldText, newText string) []DiffSegment {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(oldText, newText, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	segments := make([]DiffSegment, 0, len(diffs))
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		segments = append(segments, DiffSegment{
			Text:    d.Text,
			Added:   d.Type == diffmatchpatch.DiffInsert,
			Removed: d.Type == diffmatchpatch.DiffDelete,
		})
	}

	return segments
}
