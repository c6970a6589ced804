package article

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"knowledgebase/internal/errors"
	"knowledgebase/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// mock implementation of the Service interface
type MockService struct {
	mock.Mock
}

func (m *MockService) CreateArticle(ctx context.Context, authorID uint64, input CreateArticleInput) (*Article, error) {
	args := m.Called(ctx, authorID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Article), args.Error(1)
}

func (m *MockService) UpdateArticle(ctx context.Context, id uint64, authorID uint64, input UpdateArticleInput) (*Article, error) {
	args := m.Called(ctx, id, authorID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Article), args.Error(1)
}

func (m *MockService) DeleteArticle(ctx context.Context, id uint64, authorID uint64) error {
	args := m.Called(ctx, id, authorID)
	return args.Error(0)
}

func (m *MockService) GetArticle(ctx context.Context, id uint64) (*Article, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Article), args.Error(1)
}

func (m *MockService) GetArticleBySlug(ctx context.Context, slug string) (*Article, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Article), args.Error(1)
}

func (m *MockService) ListArticles(ctx context.Context, authorID uint64, page, pageSize int) (*PaginatedArticles, error) {
	args := m.Called(ctx, authorID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PaginatedArticles), args.Error(1)
}

func (m *MockService) ListLinks(ctx context.Context, id uint64) ([]LinkEdge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]LinkEdge), args.Error(1)
}

func (m *MockService) ListBacklinks(ctx context.Context, id uint64) ([]LinkEdge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]LinkEdge), args.Error(1)
}

func (m *MockService) ListVersions(ctx context.Context, articleID uint64) ([]VersionSummary, error) {
	args := m.Called(ctx, articleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]VersionSummary), args.Error(1)
}

func (m *MockService) DiffVersion(ctx context.Context, articleID, versionID uint64, compareToID *uint64) (*DiffResult, error) {
	args := m.Called(ctx, articleID, versionID, compareToID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DiffResult), args.Error(1)
}

func (m *MockService) RevertToVersion(ctx context.Context, articleID, versionID, actingUserID uint64) (*Article, error) {
	args := m.Called(ctx, articleID, versionID, actingUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Article), args.Error(1)
}

func (m *MockService) SuggestTitles(ctx context.Context, query string) ([]TitleSuggestion, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]TitleSuggestion), args.Error(1)
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler())
	return router
}

func asAuthenticated(userID uint64, handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		handler(c)
	}
}

func TestCreateArticle_Handler_Success(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()

	mockService.On("CreateArticle", mock.Anything, uint64(1), mock.MatchedBy(func(input CreateArticleInput) bool {
		return input.Title == "Test Article" && input.Body == "with [[Link]]"
	})).Return(&Article{ID: 1, Title: "Test Article", Slug: "test-article"}, nil)

	router.POST("/articles", asAuthenticated(1, handler.Create))

	payload := CreateArticleRequest{Title: "Test Article", Body: "with [[Link]]"}
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", "/articles", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response Article
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "test-article", response.Slug)
	mockService.AssertExpectations(t)
}

func TestCreateArticle_Handler_MissingTitle(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()

	router.POST("/articles", asAuthenticated(1, handler.Create))

	req := httptest.NewRequest("POST", "/articles", bytes.NewBufferString(`{"body":"no title"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "CreateArticle")
}

func TestShowArticle_Handler_NotFound(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()

	mockService.On("GetArticle", mock.Anything, uint64(42)).
		Return(nil, errors.NotFound("Article not found", nil))

	router.GET("/articles/:id", asAuthenticated(1, handler.Show))

	req := httptest.NewRequest("GET", "/articles/42", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockService.AssertExpectations(t)
}

func TestDiffVersion_Handler_Success(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()

	result := &DiffResult{
		To: VersionSummary{Version: 2},
		Content: []DiffSegment{
			{Text: "alpha ", Added: false, Removed: false},
			{Text: "beta", Removed: true},
			{Text: "gamma", Added: true},
		},
	}
	mockService.On("DiffVersion", mock.Anything, uint64(5), uint64(9), (*uint64)(nil)).
		Return(result, nil)

	router.GET("/articles/:id/versions/:versionId/diff", asAuthenticated(1, handler.DiffVersion))

	req := httptest.NewRequest("GET", "/articles/5/versions/9/diff", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response DiffResult
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Content, 3)
	mockService.AssertExpectations(t)
}

func TestDiffVersion_Handler_CompareToParam(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()

	compareTo := uint64(3)
	mockService.On("DiffVersion", mock.Anything, uint64(5), uint64(9), &compareTo).
		Return(&DiffResult{}, nil)

	router.GET("/articles/:id/versions/:versionId/diff", asAuthenticated(1, handler.DiffVersion))

	req := httptest.NewRequest("GET", "/articles/5/versions/9/diff?compare_to=3", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestRevert_Handler_Success(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()

	mockService.On("RevertToVersion", mock.Anything, uint64(5), uint64(2), uint64(1)).
		Return(&Article{ID: 5, Body: "restored"}, nil)

	router.POST("/articles/:id/versions/:versionId/revert", asAuthenticated(1, handler.Revert))

	req := httptest.NewRequest("POST", "/articles/5/versions/2/revert", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response Article
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "restored", response.Body)
	mockService.AssertExpectations(t)
}

func TestSuggestTitles_Handler(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()

	mockService.On("SuggestTitles", mock.Anything, "proj").
		Return([]TitleSuggestion{{ID: 1, Title: "Project Alpha"}}, nil)

	router.GET("/articles/suggest", asAuthenticated(1, handler.SuggestTitles))

	req := httptest.NewRequest("GET", "/articles/suggest?q=proj", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Project Alpha")
	mockService.AssertExpectations(t)
}

func TestDelete_Handler_InvalidID(t *testing.T) {
	mockService := new(MockService)
	handler := NewHandler(mockService)
	router := setupRouter()

	router.DELETE("/articles/:id", asAuthenticated(1, handler.Delete))

	req := httptest.NewRequest("DELETE", "/articles/not-a-number", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "DeleteArticle")
}
