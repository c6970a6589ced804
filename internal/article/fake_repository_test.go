package article

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
)

// fakeRepository is an in-memory Repository for coordinator tests. It keeps
// the same contracts as the gorm implementation: per-article version
// numbering, atomic edge batches, orphan resolution by normalized title.
type fakeRepository struct {
	mu sync.Mutex

	articles map[uint64]Article
	versions map[uint64]ArticleVersion
	edges    map[uint64]LinkEdge

	nextArticleID uint64
	nextVersionID uint64
	nextEdgeID    uint64

	// when set, ReplaceEdges fails with this error (simulates a graph-sync
	// outage)
	replaceEdgesErr error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		articles: map[uint64]Article{},
		versions: map[uint64]ArticleVersion{},
		edges:    map[uint64]LinkEdge{},
	}
}

func (f *fakeRepository) FindByID(ctx context.Context, id uint64) (*Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	article, ok := f.articles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &article, nil
}

func (f *fakeRepository) FindBySlug(ctx context.Context, slug string) (*Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, article := range f.articles {
		if article.Slug == slug {
			return &article, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, article := range f.articles {
		if article.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepository) ListByAuthor(ctx context.Context, authorID uint64, page, pageSize int) ([]Article, ArticlesMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []Article
	for _, article := range f.articles {
		if article.AuthorID == authorID {
			all = append(all, article)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })

	total := int64(len(all))
	offset := (page - 1) * pageSize
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + pageSize
	if end > len(all) {
		end = len(all)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return all[offset:end], ArticlesMeta{
		Total:       total,
		PerPage:     pageSize,
		TotalPage:   totalPages,
		CurrentPage: page,
	}, nil
}

func (f *fakeRepository) CreateWithVersion(ctx context.Context, article *Article) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now().UTC()
	f.nextArticleID++
	article.ID = f.nextArticleID
	article.CreatedAt = now
	article.UpdatedAt = now
	f.articles[article.ID] = *article

	f.nextVersionID++
	f.versions[f.nextVersionID] = ArticleVersion{
		ID:         f.nextVersionID,
		ArticleID:  article.ID,
		Version:    1,
		Title:      article.Title,
		Body:       article.Body,
		Status:     article.Status,
		ChangeType: ChangeTypeCreate,
		AuthorID:   article.AuthorID,
		CreatedAt:  now,
	}
	return nil
}

func (f *fakeRepository) UpdateWithVersion(
	ctx context.Context,
	id uint64,
	changeType string,
	authorID uint64,
	apply func(*Article) bool,
) (*Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	article, ok := f.articles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}

	writeVersion := apply(&article)
	article.UpdatedAt = time.Now().UTC()

	if writeVersion {
		maxVersion := 0
		for _, v := range f.versions {
			if v.ArticleID == id && v.Version > maxVersion {
				maxVersion = v.Version
			}
		}

		f.nextVersionID++
		f.versions[f.nextVersionID] = ArticleVersion{
			ID:         f.nextVersionID,
			ArticleID:  id,
			Version:    maxVersion + 1,
			Title:      article.Title,
			Body:       article.Body,
			Status:     article.Status,
			ChangeType: changeType,
			AuthorID:   authorID,
			CreatedAt:  article.UpdatedAt,
		}
	}

	f.articles[id] = article
	return &article, nil
}

func (f *fakeRepository) Delete(ctx context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.articles[id]; !ok {
		return gorm.ErrRecordNotFound
	}

	for edgeID, edge := range f.edges {
		if edge.SourceArticleID == id {
			delete(f.edges, edgeID)
			continue
		}
		if edge.TargetArticleID != nil && *edge.TargetArticleID == id {
			edge.TargetArticleID = nil
			f.edges[edgeID] = edge
		}
	}
	for versionID, version := range f.versions {
		if version.ArticleID == id {
			delete(f.versions, versionID)
		}
	}
	delete(f.articles, id)
	return nil
}

func (f *fakeRepository) ListVersions(ctx context.Context, articleID uint64) ([]ArticleVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var versions []ArticleVersion
	for _, v := range f.versions {
		if v.ArticleID == articleID {
			versions = append(versions, v)
		}
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Version > versions[j].Version })
	return versions, nil
}

func (f *fakeRepository) FindVersion(ctx context.Context, articleID, versionID uint64) (*ArticleVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	version, ok := f.versions[versionID]
	if !ok || version.ArticleID != articleID {
		return nil, gorm.ErrRecordNotFound
	}
	return &version, nil
}

func (f *fakeRepository) FindVersionByNumber(ctx context.Context, articleID uint64, number int) (*ArticleVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, v := range f.versions {
		if v.ArticleID == articleID && v.Version == number {
			return &v, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) ListEdgesBySource(ctx context.Context, sourceID uint64) ([]LinkEdge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var edges []LinkEdge
	for _, edge := range f.edges {
		if edge.SourceArticleID == sourceID {
			edges = append(edges, edge)
		}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].Position < edges[j].Position })
	return edges, nil
}

func (f *fakeRepository) ListBacklinks(ctx context.Context, targetID uint64) ([]LinkEdge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var edges []LinkEdge
	for _, edge := range f.edges {
		if edge.TargetArticleID != nil && *edge.TargetArticleID == targetID {
			edges = append(edges, edge)
		}
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID > edges[j].ID })
	return edges, nil
}

func (f *fakeRepository) ReplaceEdges(ctx context.Context, sourceID uint64, deleteIDs []uint64, positions map[uint64]int, inserts []LinkEdge) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.replaceEdgesErr != nil {
		return f.replaceEdgesErr
	}

	for _, id := range deleteIDs {
		delete(f.edges, id)
	}
	for id, position := range positions {
		if edge, ok := f.edges[id]; ok && edge.SourceArticleID == sourceID {
			edge.Position = position
			f.edges[id] = edge
		}
	}
	now := time.Now().UTC()
	for _, edge := range inserts {
		f.nextEdgeID++
		edge.ID = f.nextEdgeID
		edge.CreatedAt = now
		f.edges[edge.ID] = edge
	}
	return nil
}

func (f *fakeRepository) ResolveOrphanEdges(ctx context.Context, title string, targetID uint64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	norm := NormalizeTitle(title)
	var resolved int64
	for id, edge := range f.edges {
		if edge.TargetArticleID == nil && NormalizeTitle(edge.TargetTitle) == norm {
			target := targetID
			edge.TargetArticleID = &target
			f.edges[id] = edge
			resolved++
		}
	}
	return resolved, nil
}

func (f *fakeRepository) FindIDsByTitles(ctx context.Context, titles []string) (map[string]uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make(map[string]uint64, len(titles))
	for _, title := range titles {
		norm := NormalizeTitle(title)
		for id, article := range f.articles {
			if NormalizeTitle(article.Title) == norm {
				result[norm] = id
			}
		}
	}
	return result, nil
}

func (f *fakeRepository) SearchTitles(ctx context.Context, query string, limit int) ([]TitleSuggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	lowered := strings.ToLower(query)
	var suggestions []TitleSuggestion
	for id, article := range f.articles {
		if strings.Contains(strings.ToLower(article.Title), lowered) {
			suggestions = append(suggestions, TitleSuggestion{ID: id, Title: article.Title})
		}
	}
	sort.Slice(suggestions, func(i, j int) bool { return suggestions[i].Title < suggestions[j].Title })
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}
