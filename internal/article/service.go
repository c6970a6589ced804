package article

import (
	"context"
	"database/sql"
	defError "errors"
	"fmt"
	"log"
	"strings"
	"time"

	"knowledgebase/internal/analytics"
	"knowledgebase/internal/errors"
	"knowledgebase/internal/worker"
	"knowledgebase/redis"

	"gorm.io/gorm"
)

// Service is the article mutation coordinator: the only component with side
// effects across the slug generator, version store and link graph.
type Service interface {
	CreateArticle(ctx context.Context, authorID uint64, input CreateArticleInput) (*Article, error)
	UpdateArticle(ctx context.Context, id uint64, authorID uint64, input UpdateArticleInput) (*Article, error)
	DeleteArticle(ctx context.Context, id uint64, authorID uint64) error
	GetArticle(ctx context.Context, id uint64) (*Article, error)
	GetArticleBySlug(ctx context.Context, slug string) (*Article, error)
	ListArticles(ctx context.Context, authorID uint64, page, pageSize int) (*PaginatedArticles, error)
	ListLinks(ctx context.Context, id uint64) ([]LinkEdge, error)
	ListBacklinks(ctx context.Context, id uint64) ([]LinkEdge, error)
	ListVersions(ctx context.Context, articleID uint64) ([]VersionSummary, error)
	DiffVersion(ctx context.Context, articleID, versionID uint64, compareToID *uint64) (*DiffResult, error)
	RevertToVersion(ctx context.Context, articleID, versionID, actingUserID uint64) (*Article, error)
	SuggestTitles(ctx context.Context, query string) ([]TitleSuggestion, error)
}

type CreateArticleInput struct {
	Title    string
	Body     string
	FolderID *uint64
	Status   string
}

// UpdateArticleInput carries a partial update; nil fields are unchanged.
type UpdateArticleInput struct {
	Title    *string
	Body     *string
	FolderID *uint64
	Status   *string
}

type VersionSummary struct {
	ID         uint64    `json:"id"`
	Version    int       `json:"version"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	ChangeType string    `json:"change_type"`
	AuthorID   uint64    `json:"author_id"`
	CreatedAt  time.Time `json:"created_at"`
}

type PaginatedArticles struct {
	Data []Article    `json:"data"`
	Meta ArticlesMeta `json:"meta"`
}

const (
	maxSlugAttempts = 3
	suggestLimit    = 10
	listCacheTTL    = 24 * time.Hour
)

type DefaultService struct {
	repository  Repository
	graph       *LinkGraph
	cache       *redis.Cache
	pool        *worker.WorkerPool
	events      analytics.Emitter
	syncRetries int
}

func NewService(
	repository Repository,
	graph *LinkGraph,
	cache *redis.Cache,
	pool *worker.WorkerPool,
	events analytics.Emitter,
	syncRetries int,
) Service {
	return &DefaultService{
		repository:  repository,
		graph:       graph,
		cache:       cache,
		pool:        pool,
		events:      events,
		syncRetries: syncRetries,
	}
}

func validStatus(status string) bool {
	return status == StatusDraft || status == StatusPublished
}

func (s *DefaultService) CreateArticle(ctx context.Context, authorID uint64, input CreateArticleInput) (*Article, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.BadRequest("Title cannot be empty", nil)
	}

	status := input.Status
	if status == "" {
		status = StatusDraft
	}
	if !validStatus(status) {
		return nil, errors.BadRequest("Invalid status", nil)
	}

	article := &Article{
		Title:    title,
		Body:     input.Body,
		Status:   status,
		AuthorID: authorID,
		FolderID: input.FolderID,
	}
	if status == StatusPublished {
		article.PublishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	// slug collision loop: predictable unique suffix, bounded attempts
	slug := Slugify(title)
	created := false
	for attempt := 0; attempt < maxSlugAttempts; attempt++ {
		exists, err := s.repository.SlugExists(ctx, slug)
		if err != nil {
			return nil, err
		}
		if exists {
			slug = DisambiguateSlug(slug)
			continue
		}

		article.Slug = slug
		err = s.repository.CreateWithVersion(ctx, article)
		if err == nil {
			created = true
			break
		}
		if defError.Is(err, gorm.ErrDuplicatedKey) {
			// lost a race on the slug unique index
			slug = DisambiguateSlug(slug)
			continue
		}
		return nil, err
	}
	if !created {
		return nil, errors.Conflict("Could not assign a unique slug", nil)
	}

	s.invalidateListCache(ctx, authorID)

	// post-commit tail: graph sync + orphan resolution. Failures here never
	// unwind the committed save, the graph is eventually-repairable while a
	// lost edit is not.
	s.runGraphSync(ctx, article.ID, true)

	analytics.EmitAsync(s.events, analytics.Event{
		Name:       analytics.EventArticleCreated,
		ArticleID:  article.ID,
		AuthorID:   authorID,
		OccurredAt: time.Now().UTC(),
	})

	return article, nil
}

func (s *DefaultService) UpdateArticle(ctx context.Context, id uint64, authorID uint64, input UpdateArticleInput) (*Article, error) {
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, errors.BadRequest("Title cannot be empty", nil)
	}
	if input.Status != nil && !validStatus(*input.Status) {
		return nil, errors.BadRequest("Invalid status", nil)
	}

	article, err := s.repository.UpdateWithVersion(ctx, id, ChangeTypeUpdate, authorID, func(a *Article) bool {
		changed := false

		if input.Title != nil {
			// compare the trimmed value: padding that trims back to the
			// stored title is not a change and must not write a version
			if trimmed := strings.TrimSpace(*input.Title); trimmed != a.Title {
				// slug is not regenerated on title edits, existing URLs
				// stay stable
				a.Title = trimmed
				changed = true
			}
		}
		if input.Body != nil && *input.Body != a.Body {
			a.Body = *input.Body
			changed = true
		}
		if input.Status != nil && *input.Status != a.Status {
			a.Status = *input.Status
			if a.Status == StatusPublished && !a.PublishedAt.Valid {
				// publish timestamp is assigned once, republishing after
				// an unpublish does not move it
				a.PublishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
			}
			changed = true
		}
		if input.FolderID != nil {
			// folder filing is not a versionable field
			a.FolderID = input.FolderID
		}

		return changed
	})
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Article not found", err)
		}
		return nil, err
	}

	s.invalidateListCache(ctx, article.AuthorID)
	s.runGraphSync(ctx, article.ID, false)

	analytics.EmitAsync(s.events, analytics.Event{
		Name:       analytics.EventArticleUpdated,
		ArticleID:  article.ID,
		AuthorID:   authorID,
		OccurredAt: time.Now().UTC(),
	})

	return article, nil
}

func (s *DefaultService) DeleteArticle(ctx context.Context, id uint64, authorID uint64) error {
	err := s.repository.Delete(ctx, id)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return errors.NotFound("Article not found", err)
		}
		return err
	}

	s.invalidateListCache(ctx, authorID)

	analytics.EmitAsync(s.events, analytics.Event{
		Name:       analytics.EventArticleDeleted,
		ArticleID:  id,
		AuthorID:   authorID,
		OccurredAt: time.Now().UTC(),
	})

	return nil
}

func (s *DefaultService) GetArticle(ctx context.Context, id uint64) (*Article, error) {
	article, err := s.repository.FindByID(ctx, id)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Article not found", err)
		}
		return nil, err
	}
	return article, nil
}

func (s *DefaultService) GetArticleBySlug(ctx context.Context, slug string) (*Article, error) {
	article, err := s.repository.FindBySlug(ctx, slug)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Article not found", err)
		}
		return nil, err
	}
	return article, nil
}

func (s *DefaultService) ListArticles(ctx context.Context, authorID uint64, page, pageSize int) (*PaginatedArticles, error) {
	// version-keyed cache: bumping the version key on any mutation
	// invalidates every cached page at once
	versionKey := fmt.Sprintf("user:%d:articles:version", authorID)
	v := s.cache.GetVersion(ctx, versionKey)

	cacheKey := fmt.Sprintf("articles:u:%d:v:%d:p:%d:ps:%d", authorID, v, page, pageSize)

	var result PaginatedArticles
	found, _ := s.cache.Get(ctx, cacheKey, &result)
	if found {
		return &result, nil
	}

	articles, meta, err := s.repository.ListByAuthor(ctx, authorID, page, pageSize)
	if err != nil {
		return nil, err
	}
	result = PaginatedArticles{Data: articles, Meta: meta}
	go s.cache.Set(context.Background(), cacheKey, result, listCacheTTL)

	return &result, nil
}

func (s *DefaultService) ListLinks(ctx context.Context, id uint64) ([]LinkEdge, error) {
	if _, err := s.GetArticle(ctx, id); err != nil {
		return nil, err
	}
	return s.repository.ListEdgesBySource(ctx, id)
}

func (s *DefaultService) ListBacklinks(ctx context.Context, id uint64) ([]LinkEdge, error) {
	if _, err := s.GetArticle(ctx, id); err != nil {
		return nil, err
	}
	return s.repository.ListBacklinks(ctx, id)
}

func (s *DefaultService) ListVersions(ctx context.Context, articleID uint64) ([]VersionSummary, error) {
	if _, err := s.GetArticle(ctx, articleID); err != nil {
		return nil, err
	}

	versions, err := s.repository.ListVersions(ctx, articleID)
	if err != nil {
		return nil, err
	}

	summaries := make([]VersionSummary, 0, len(versions))
	for _, v := range versions {
		summaries = append(summaries, toVersionSummary(v))
	}
	return summaries, nil
}

func toVersionSummary(v ArticleVersion) VersionSummary {
	return VersionSummary{
		ID:         v.ID,
		Version:    v.Version,
		Title:      v.Title,
		Status:     v.Status,
		ChangeType: v.ChangeType,
		AuthorID:   v.AuthorID,
		CreatedAt:  v.CreatedAt,
	}
}

// DiffVersion compares versionID against compareToID, or against the
// immediately preceding version when compareToID is nil. Comparing version
// 1 against its nonexistent predecessor yields the whole body as one added
// segment.
func (s *DefaultService) DiffVersion(ctx context.Context, articleID, versionID uint64, compareToID *uint64) (*DiffResult, error) {
	to, err := s.repository.FindVersion(ctx, articleID, versionID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Version not found", err)
		}
		return nil, err
	}

	var from *ArticleVersion
	if compareToID != nil {
		from, err = s.repository.FindVersion(ctx, articleID, *compareToID)
		if err != nil {
			if defError.Is(err, gorm.ErrRecordNotFound) {
				return nil, errors.NotFound("Version to compare against not found", err)
			}
			return nil, err
		}
	} else if to.Version > 1 {
		from, err = s.repository.FindVersionByNumber(ctx, articleID, to.Version-1)
		if err != nil && !defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	result := &DiffResult{To: toVersionSummary(*to)}
	oldBody := ""
	if from != nil {
		summary := toVersionSummary(*from)
		result.From = &summary
		oldBody = from.Body
	}
	result.Content = DiffTexts(oldBody, to.Body)

	return result, nil
}

// RevertToVersion copies the target version's versionable fields back onto
// the article and records the revert as a new version. History is
// append-only: the reverted-from versions stay untouched.
func (s *DefaultService) RevertToVersion(ctx context.Context, articleID, versionID, actingUserID uint64) (*Article, error) {
	target, err := s.repository.FindVersion(ctx, articleID, versionID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Version not found", err)
		}
		return nil, err
	}

	article, err := s.repository.UpdateWithVersion(ctx, articleID, ChangeTypeRevert, actingUserID, func(a *Article) bool {
		changed := a.Title != target.Title || a.Body != target.Body || a.Status != target.Status

		a.Title = target.Title
		a.Body = target.Body
		a.Status = target.Status
		if a.Status == StatusPublished && !a.PublishedAt.Valid {
			a.PublishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
		}

		return changed
	})
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Article not found", err)
		}
		return nil, err
	}

	s.invalidateListCache(ctx, article.AuthorID)
	s.runGraphSync(ctx, article.ID, false)

	analytics.EmitAsync(s.events, analytics.Event{
		Name:       analytics.EventArticleReverted,
		ArticleID:  article.ID,
		AuthorID:   actingUserID,
		OccurredAt: time.Now().UTC(),
	})

	return article, nil
}

func (s *DefaultService) SuggestTitles(ctx context.Context, query string) ([]TitleSuggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []TitleSuggestion{}, nil
	}
	return s.repository.SearchTitles(ctx, query, suggestLimit)
}

func (s *DefaultService) invalidateListCache(ctx context.Context, authorID uint64) {
	versionKey := fmt.Sprintf("user:%d:articles:version", authorID)
	s.cache.IncrementVersion(ctx, versionKey)
}

// runGraphSync is the post-commit tail of a mutation. A failure is logged
// and handed to the worker pool for bounded retries; the user's save has
// already committed and is never rolled back over graph staleness, since a
// later save of the same article re-derives the edge set anyway.
func (s *DefaultService) runGraphSync(ctx context.Context, articleID uint64, resolveOrphans bool) {
	if err := s.syncOnce(ctx, articleID, resolveOrphans); err != nil {
		log.Printf("[GRAPH SYNC ERROR] article %d: %v", articleID, err)
		s.scheduleGraphRetry(articleID, resolveOrphans, s.syncRetries)
	}
}

// syncOnce re-reads the article's current state before syncing, so a
// delayed retry can never apply a stale body over a newer one.
func (s *DefaultService) syncOnce(ctx context.Context, articleID uint64, resolveOrphans bool) error {
	article, err := s.repository.FindByID(ctx, articleID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil // deleted in the meantime, nothing to sync
		}
		return err
	}

	if err := s.graph.SyncLinks(ctx, article.ID, article.Body); err != nil {
		return err
	}
	if resolveOrphans {
		return s.graph.ResolveOrphans(ctx, article.ID, article.Title)
	}
	return nil
}

func (s *DefaultService) scheduleGraphRetry(articleID uint64, resolveOrphans bool, attemptsLeft int) {
	if attemptsLeft <= 0 || s.pool == nil {
		log.Printf("[GRAPH SYNC ERROR] giving up on article %d, a later save will re-sync", articleID)
		return
	}

	s.pool.Submit(func(ctx context.Context) error {
		err := s.syncOnce(ctx, articleID, resolveOrphans)
		if err != nil {
			s.scheduleGraphRetry(articleID, resolveOrphans, attemptsLeft-1)
		}
		return err
	})
}
