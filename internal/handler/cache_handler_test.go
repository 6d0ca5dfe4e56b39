package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-curriculum/internal/querycache"
	"github.com/noah-isme/sma-adp-curriculum/internal/store"
)

type cacheServiceMock struct {
	name   string
	params querycache.Params
	tags   []string
}

func (m *cacheServiceMock) Freshness(name string, params querycache.Params) (store.Freshness, error) {
	m.name = name
	m.params = params
	return store.Freshness{Key: querycache.Key(name, params), Present: true, Fresh: true}, nil
}

func (m *cacheServiceMock) Invalidate(ctx context.Context, tags []string) (int, error) {
	m.tags = tags
	return 3, nil
}

func (m *cacheServiceMock) Clear(ctx context.Context) error { return nil }

func TestCacheHandlerFreshnessForwardsParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &cacheServiceMock{}
	h := NewCacheHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/cache/freshness?operation=listMaterials&subject_id=s-1", nil)
	h.Freshness(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, querycache.OpListMaterials, mock.name)
	assert.Equal(t, querycache.Params{"subject_id": "s-1"}, mock.params)
	assert.Contains(t, w.Body.String(), `"key":"listMaterials?subject_id=s-1"`)
}

func TestCacheHandlerFreshnessRequiresOperation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewCacheHandler(&cacheServiceMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/cache/freshness", nil)
	h.Freshness(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCacheHandlerInvalidate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &cacheServiceMock{}
	h := NewCacheHandler(mock)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/cache/invalidate", bytes.NewReader([]byte(`{"tags":["Material:LIST"]}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	h.Invalidate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Material:LIST"}, mock.tags)
	assert.Contains(t, w.Body.String(), `"affected":3`)
}
