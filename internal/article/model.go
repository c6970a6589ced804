package article

import (
	"database/sql"
	"strings"
	"time"
)

// Article statuses
const (
	StatusDraft     = "DRAFT"
	StatusPublished = "PUBLISHED"
)

// Version change types
const (
	ChangeTypeCreate = "CREATE"
	ChangeTypeUpdate = "UPDATE"
	ChangeTypeRevert = "REVERT"
)

// Article is a knowledge-base article. The slug is assigned once on create
// and survives title edits so existing links and URLs stay stable.
type Article struct {
	ID          uint64       `json:"id"`
	Title       string       `json:"title"`
	Body        string       `json:"body" gorm:"type:text"`
	Slug        string       `json:"slug" gorm:"uniqueIndex;size:120"`
	Status      string       `json:"status" gorm:"size:20;default:DRAFT"`
	PublishedAt sql.NullTime `json:"published_at"`
	AuthorID    uint64       `json:"author_id" gorm:"index"`
	FolderID    *uint64      `json:"folder_id"` // opaque, owned by the folder module
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsPublished returns true if the article is published.
func (a *Article) IsPublished() bool {
	return a.Status == StatusPublished
}

// ArticleVersion is an immutable snapshot of an article's versionable
// fields. Version numbers start at 1 and are gap-free per article; the
// unique index backs the serialized increment-and-insert.
type ArticleVersion struct {
	ID         uint64    `json:"id"`
	ArticleID  uint64    `json:"article_id" gorm:"uniqueIndex:idx_article_versions_article_version"`
	Version    int       `json:"version" gorm:"uniqueIndex:idx_article_versions_article_version"`
	Title      string    `json:"title"`
	Body       string    `json:"body" gorm:"type:text"`
	Status     string    `json:"status" gorm:"size:20"`
	ChangeType string    `json:"change_type" gorm:"size:20"`
	AuthorID   uint64    `json:"author_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// LinkEdge is one [[Title]] occurrence in an article body. A nil target
// means the referenced title does not resolve to an article yet (orphan).
// TargetTitle keeps the literal referenced text verbatim so later
// resolution can still match it.
type LinkEdge struct {
	ID              uint64    `json:"id"`
	SourceArticleID uint64    `json:"source_article_id" gorm:"index"`
	TargetArticleID *uint64   `json:"target_article_id" gorm:"index"`
	TargetTitle     string    `json:"target_title"`
	Position        int       `json:"position"`
	CreatedAt       time.Time `json:"created_at"`
}

// NormalizeTitle is the case-insensitive matching key used for edge
// deduplication, title lookup and orphan resolution.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
