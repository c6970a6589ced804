package article

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the storage surface for articles, their version log
// and the link graph. It also implements TitleIndex and EdgeStore.
type Repository interface {
	FindByID(ctx context.Context, id uint64) (*Article, error)
	FindBySlug(ctx context.Context, slug string) (*Article, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListByAuthor(ctx context.Context, authorID uint64, page, pageSize int) ([]Article, ArticlesMeta, error)

	// CreateWithVersion inserts the article row and its version 1 snapshot
	// in one transaction.
	CreateWithVersion(ctx context.Context, article *Article) error
	// UpdateWithVersion locks the article row, applies the mutation and, if
	// apply reports a versionable change, appends the next version snapshot
	// before the row update lands. The lock serializes version numbering
	// per article.
	UpdateWithVersion(ctx context.Context, id uint64, changeType string, authorID uint64, apply func(*Article) bool) (*Article, error)
	// Delete cascades version rows and outbound edges; inbound edges keep
	// their row but lose their target (back to orphan).
	Delete(ctx context.Context, id uint64) error

	ListVersions(ctx context.Context, articleID uint64) ([]ArticleVersion, error)
	FindVersion(ctx context.Context, articleID, versionID uint64) (*ArticleVersion, error)
	FindVersionByNumber(ctx context.Context, articleID uint64, number int) (*ArticleVersion, error)

	ListEdgesBySource(ctx context.Context, sourceID uint64) ([]LinkEdge, error)
	ListBacklinks(ctx context.Context, targetID uint64) ([]LinkEdge, error)
	ReplaceEdges(ctx context.Context, sourceID uint64, deleteIDs []uint64, positions map[uint64]int, inserts []LinkEdge) error
	ResolveOrphanEdges(ctx context.Context, title string, targetID uint64) (int64, error)

	FindIDsByTitles(ctx context.Context, titles []string) (map[string]uint64, error)
	SearchTitles(ctx context.Context, query string, limit int) ([]TitleSuggestion, error)
}

type ArticlesMeta struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalPage   int   `json:"total_page"`
}

type TitleSuggestion struct {
	ID    uint64 `json:"id"`
	Title string `json:"title"`
}

type RepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new article repository
func NewRepository(db *gorm.DB) Repository {
	return &RepositoryImpl{db: db}
}

func (r *RepositoryImpl) FindByID(ctx context.Context, id uint64) (*Article, error) {
	var article Article
	err := r.db.WithContext(ctx).First(&article, id).Error
	if err != nil {
		return nil, err
	}
	return &article, nil
}

func (r *RepositoryImpl) FindBySlug(ctx context.Context, slug string) (*Article, error) {
	var article Article
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&article).Error
	if err != nil {
		return nil, err
	}
	return &article, nil
}

func (r *RepositoryImpl) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Article{}).
		Where("slug = ?", slug).
		Count(&count).Error
	return count > 0, err
}

func (r *RepositoryImpl) ListByAuthor(ctx context.Context, authorID uint64, page, pageSize int) ([]Article, ArticlesMeta, error) {
	var articles []Article
	var totalRecords int64

	// Count total records
	if err := r.db.WithContext(ctx).Model(&Article{}).
		Where("author_id = ?", authorID).
		Count(&totalRecords).Error; err != nil {
		return articles, ArticlesMeta{}, err
	}

	offset := (page - 1) * pageSize
	err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("updated_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&articles).Error

	totalPages := int((totalRecords + int64(pageSize) - 1) / int64(pageSize))

	return articles, ArticlesMeta{
		Total:       totalRecords,
		PerPage:     pageSize,
		TotalPage:   totalPages,
		CurrentPage: page,
	}, err
}

func (r *RepositoryImpl) CreateWithVersion(ctx context.Context, article *Article) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		article.CreatedAt = now
		article.UpdatedAt = now

		if err := tx.Create(article).Error; err != nil {
			return err
		}

		version := ArticleVersion{
			ArticleID:  article.ID,
			Version:    1,
			Title:      article.Title,
			Body:       article.Body,
			Status:     article.Status,
			ChangeType: ChangeTypeCreate,
			AuthorID:   article.AuthorID,
			CreatedAt:  now,
		}
		return tx.Create(&version).Error
	})
}

func (r *RepositoryImpl) UpdateWithVersion(
	ctx context.Context,
	id uint64,
	changeType string,
	authorID uint64,
	apply func(*Article) bool,
) (*Article, error) {
	var article Article

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// row lock: concurrent writers to the same article queue here, so
		// two of them can never read the same MAX(version)
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&article, id).Error; err != nil {
			return err
		}

		writeVersion := apply(&article)
		now := time.Now().UTC()
		article.UpdatedAt = now

		if writeVersion {
			var maxVersion int
			if err := tx.Model(&ArticleVersion{}).
				Where("article_id = ?", id).
				Select("COALESCE(MAX(version), 0)").
				Scan(&maxVersion).Error; err != nil {
				return err
			}

			// snapshot of the post-change state, written before the row
			// mutation lands
			version := ArticleVersion{
				ArticleID:  id,
				Version:    maxVersion + 1,
				Title:      article.Title,
				Body:       article.Body,
				Status:     article.Status,
				ChangeType: changeType,
				AuthorID:   authorID,
				CreatedAt:  now,
			}
			if err := tx.Create(&version).Error; err != nil {
				return err
			}
		}

		return tx.Save(&article).Error
	})

	if err != nil {
		return nil, err
	}
	return &article, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var article Article
		if err := tx.First(&article, id).Error; err != nil {
			return err
		}

		// inbound edges go back to orphan, the referrer's intent survives
		if err := tx.Model(&LinkEdge{}).
			Where("target_article_id = ?", id).
			Update("target_article_id", nil).Error; err != nil {
			return err
		}

		if err := tx.Where("source_article_id = ?", id).
			Delete(&LinkEdge{}).Error; err != nil {
			return err
		}

		if err := tx.Where("article_id = ?", id).
			Delete(&ArticleVersion{}).Error; err != nil {
			return err
		}

		return tx.Delete(&article).Error
	})
}

func (r *RepositoryImpl) ListVersions(ctx context.Context, articleID uint64) ([]ArticleVersion, error) {
	var versions []ArticleVersion
	err := r.db.WithContext(ctx).
		Where("article_id = ?", articleID).
		Order("version DESC").
		Find(&versions).Error
	return versions, err
}

func (r *RepositoryImpl) FindVersion(ctx context.Context, articleID, versionID uint64) (*ArticleVersion, error) {
	var version ArticleVersion
	err := r.db.WithContext(ctx).
		Where("article_id = ? AND id = ?", articleID, versionID).
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *RepositoryImpl) FindVersionByNumber(ctx context.Context, articleID uint64, number int) (*ArticleVersion, error) {
	var version ArticleVersion
	err := r.db.WithContext(ctx).
		Where("article_id = ? AND version = ?", articleID, number).
		First(&version).Error
	if err != nil {
		return nil, err
	}
	return &version, nil
}

func (r *RepositoryImpl) ListEdgesBySource(ctx context.Context, sourceID uint64) ([]LinkEdge, error) {
	var edges []LinkEdge
	err := r.db.WithContext(ctx).
		Where("source_article_id = ?", sourceID).
		Order("position ASC").
		Find(&edges).Error
	return edges, err
}

func (r *RepositoryImpl) ListBacklinks(ctx context.Context, targetID uint64) ([]LinkEdge, error) {
	var edges []LinkEdge
	err := r.db.WithContext(ctx).
		Where("target_article_id = ?", targetID).
		Order("created_at DESC").
		Find(&edges).Error
	return edges, err
}

func (r *RepositoryImpl) ReplaceEdges(ctx context.Context, sourceID uint64, deleteIDs []uint64, positions map[uint64]int, inserts []LinkEdge) error {
	if len(deleteIDs) == 0 && len(positions) == 0 && len(inserts) == 0 {
		return nil
	}

	// one atomic batch per source article: a partial failure never leaves
	// a half-updated edge set
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(deleteIDs) > 0 {
			if err := tx.Where("source_article_id = ? AND id IN ?", sourceID, deleteIDs).
				Delete(&LinkEdge{}).Error; err != nil {
				return err
			}
		}
		for id, position := range positions {
			if err := tx.Model(&LinkEdge{}).
				Where("id = ? AND source_article_id = ?", id, sourceID).
				Update("position", position).Error; err != nil {
				return err
			}
		}
		if len(inserts) > 0 {
			if err := tx.Create(&inserts).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *RepositoryImpl) ResolveOrphanEdges(ctx context.Context, title string, targetID uint64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&LinkEdge{}).
		Where("target_article_id IS NULL AND LOWER(target_title) = ?", NormalizeTitle(title)).
		Update("target_article_id", targetID)
	return res.RowsAffected, res.Error
}

func (r *RepositoryImpl) FindIDsByTitles(ctx context.Context, titles []string) (map[string]uint64, error) {
	result := make(map[string]uint64, len(titles))
	if len(titles) == 0 {
		return result, nil
	}

	normalized := make([]string, 0, len(titles))
	for _, t := range titles {
		normalized = append(normalized, NormalizeTitle(t))
	}

	var rows []struct {
		ID    uint64
		Title string
	}
	err := r.db.WithContext(ctx).Model(&Article{}).
		Select("id, title").
		Where("LOWER(title) IN ?", normalized).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		// duplicate titles: last row wins, see ResolveOrphans on why title
		// collisions are tolerated
		result[NormalizeTitle(row.Title)] = row.ID
	}
	return result, nil
}

func (r *RepositoryImpl) SearchTitles(ctx context.Context, query string, limit int) ([]TitleSuggestion, error) {
	var suggestions []TitleSuggestion

	pattern := "%" + escapeLike(query) + "%"
	err := r.db.WithContext(ctx).Model(&Article{}).
		Select("id, title").
		Where("title ILIKE ?", pattern).
		Order("title ASC").
		Limit(limit).
		Find(&suggestions).Error
	return suggestions, err
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
