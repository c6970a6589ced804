package article

import (
	"context"
)

// TitleIndex is the read-only title → article-id lookup the graph depends
// on. Injected explicitly (not a hidden global) so it can be faked in
// tests; the production implementation is the article repository.
type TitleIndex interface {
	// FindIDsByTitles resolves titles case-insensitively. Keys of the
	// returned map are normalized titles.
	FindIDsByTitles(ctx context.Context, titles []string) (map[string]uint64, error)
}

// EdgeStore is the persisted link-edge surface the graph mutates.
type EdgeStore interface {
	ListEdgesBySource(ctx context.Context, sourceID uint64) ([]LinkEdge, error)
	// ReplaceEdges applies one reconciliation batch atomically: deletes,
	// position renumbers on kept rows, inserts.
	ReplaceEdges(ctx context.Context, sourceID uint64, deleteIDs []uint64, positions map[uint64]int, inserts []LinkEdge) error
	ResolveOrphanEdges(ctx context.Context, title string, targetID uint64) (int64, error)
}

// LinkGraph keeps the stored edge set of each article equal to what its
// body currently says.
type LinkGraph struct {
	titles TitleIndex
	edges  EdgeStore
}

func NewLinkGraph(titles TitleIndex, edges EdgeStore) *LinkGraph {
	return &LinkGraph{titles: titles, edges: edges}
}

// SyncLinks reconciles the edge set of sourceID against body. Idempotent:
// re-running with an unchanged body applies an empty batch. Must run after
// the article transaction commits so title lookups (including a
// self-reference to the article's own just-assigned title) see a committed
// view.
func (g *LinkGraph) SyncLinks(ctx context.Context, sourceID uint64, body string) error {
	// desired set: extracted titles, deduplicated case-insensitively,
	// first-seen order preserved
	var desired []string
	seen := map[string]bool{}
	for _, title := range ExtractWikilinks(body) {
		norm := NormalizeTitle(title)
		if seen[norm] {
			continue
		}
		seen[norm] = true
		desired = append(desired, title)
	}

	targets, err := g.titles.FindIDsByTitles(ctx, desired)
	if err != nil {
		return err
	}

	current, err := g.edges.ListEdgesBySource(ctx, sourceID)
	if err != nil {
		return err
	}

	currentByNorm := make(map[string]LinkEdge, len(current))
	var deleteIDs []uint64
	for _, edge := range current {
		norm := NormalizeTitle(edge.TargetTitle)
		if !seen[norm] {
			deleteIDs = append(deleteIDs, edge.ID)
			continue
		}
		currentByNorm[norm] = edge
	}

	positions := map[uint64]int{}
	var inserts []LinkEdge
	for position, title := range desired {
		norm := NormalizeTitle(title)
		if edge, ok := currentByNorm[norm]; ok {
			// present in both: row identity preserved, but the position is
			// renumbered so render order keeps following body order and
			// never collides with an inserted edge
			if edge.Position != position {
				positions[edge.ID] = position
			}
			continue
		}

		var target *uint64
		if id, ok := targets[norm]; ok {
			target = &id
		}
		inserts = append(inserts, LinkEdge{
			SourceArticleID: sourceID,
			TargetArticleID: target,
			TargetTitle:     title,
			Position:        position,
		})
	}

	if len(deleteIDs) == 0 && len(positions) == 0 && len(inserts) == 0 {
		return nil
	}
	return g.edges.ReplaceEdges(ctx, sourceID, deleteIDs, positions, inserts)
}

// ResolveOrphans binds every orphan edge whose target title matches the
// newly created article's title. TargetTitle is left verbatim. The match is
// deliberately unscoped: if two articles carry the same title over time an
// orphan can bind to the "wrong" one. Titles are not unique (only slugs
// are), and tracking link provenance precisely is out of scope, so this is
// a known limitation rather than something to silently tighten.
func (g *LinkGraph) ResolveOrphans(ctx context.Context, articleID uint64, title string) error {
	_, err := g.edges.ResolveOrphanEdges(ctx, title, articleID)
	return err
}
