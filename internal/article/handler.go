package article

import (
	"net/http"
	"strconv"

	"knowledgebase/internal/errors"
	"knowledgebase/internal/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type CreateArticleRequest struct {
	Title    string  `json:"title" binding:"required,min=1,max=255"`
	Body     string  `json:"body"`
	FolderID *uint64 `json:"folder_id"`
	Status   string  `json:"status" binding:"omitempty,oneof=DRAFT PUBLISHED"`
}

type UpdateArticleRequest struct {
	Title    *string `json:"title" binding:"omitempty,min=1,max=255"`
	Body     *string `json:"body"`
	FolderID *uint64 `json:"folder_id"`
	Status   *string `json:"status" binding:"omitempty,oneof=DRAFT PUBLISHED"`
}

func (h *Handler) Create(c *gin.Context) {
	var form CreateArticleRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := c.Get("user_id")

	article, err := h.service.CreateArticle(c.Request.Context(), userID.(uint64), CreateArticleInput{
		Title:    form.Title,
		Body:     form.Body,
		FolderID: form.FolderID,
		Status:   form.Status,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, article)
}

func (h *Handler) Update(c *gin.Context) {
	articleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid article id", err))
		return
	}

	var form UpdateArticleRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := c.Get("user_id")

	article, err := h.service.UpdateArticle(c.Request.Context(), articleID, userID.(uint64), UpdateArticleInput{
		Title:    form.Title,
		Body:     form.Body,
		FolderID: form.FolderID,
		Status:   form.Status,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, article)
}

func (h *Handler) Delete(c *gin.Context) {
	articleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid article id", err))
		return
	}

	userID, _ := c.Get("user_id")

	if err := h.service.DeleteArticle(c.Request.Context(), articleID, userID.(uint64)); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Show(c *gin.Context) {
	articleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid article id", err))
		return
	}

	article, err := h.service.GetArticle(c.Request.Context(), articleID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, article)
}

func (h *Handler) ShowBySlug(c *gin.Context) {
	article, err := h.service.GetArticleBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, article)
}

func (h *Handler) List(c *gin.Context) {
	userID, _ := c.Get("user_id")

	page, pageSize := utils.GetPaginationParams(c)
	result, err := h.service.ListArticles(c.Request.Context(), userID.(uint64), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) ListLinks(c *gin.Context) {
	articleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid article id", err))
		return
	}

	edges, err := h.service.ListLinks(c.Request.Context(), articleID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"links": edges})
}

func (h *Handler) ListBacklinks(c *gin.Context) {
	articleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid article id", err))
		return
	}

	edges, err := h.service.ListBacklinks(c.Request.Context(), articleID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"backlinks": edges})
}

func (h *Handler) ListVersions(c *gin.Context) {
	articleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid article id", err))
		return
	}

	versions, err := h.service.ListVersions(c.Request.Context(), articleID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

func (h *Handler) DiffVersion(c *gin.Context) {
	articleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid article id", err))
		return
	}

	versionID, err := strconv.ParseUint(c.Param("versionId"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid version id", err))
		return
	}

	var compareToID *uint64
	if raw := c.Query("compare_to"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.Error(errors.BadRequest("Invalid compare_to id", err))
			return
		}
		compareToID = &id
	}

	result, err := h.service.DiffVersion(c.Request.Context(), articleID, versionID, compareToID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) Revert(c *gin.Context) {
	articleID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid article id", err))
		return
	}

	versionID, err := strconv.ParseUint(c.Param("versionId"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid version id", err))
		return
	}

	userID, _ := c.Get("user_id")

	article, err := h.service.RevertToVersion(c.Request.Context(), articleID, versionID, userID.(uint64))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, article)
}

func (h *Handler) SuggestTitles(c *gin.Context) {
	suggestions, err := h.service.SuggestTitles(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}
