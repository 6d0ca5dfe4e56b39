package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-curriculum/internal/dto"
	"github.com/noah-isme/sma-adp-curriculum/internal/querycache"
	"github.com/noah-isme/sma-adp-curriculum/internal/store"
	appErrors "github.com/noah-isme/sma-adp-curriculum/pkg/errors"
	"github.com/noah-isme/sma-adp-curriculum/pkg/response"
)

type cacheService interface {
	Freshness(name string, params querycache.Params) (store.Freshness, error)
	Invalidate(ctx context.Context, tags []string) (int, error)
	Clear(ctx context.Context) error
}

// CacheHandler exposes cache inspection and invalidation.
type CacheHandler struct {
	service cacheService
}

// NewCacheHandler builds a cache handler.
func NewCacheHandler(service cacheService) *CacheHandler {
	return &CacheHandler{service: service}
}

// Freshness godoc
// @Summary Cache freshness of a query
// @Description Every query parameter other than operation is passed to the query.
// @Tags Cache
// @Produce json
// @Param operation query string true "Query operation, e.g. listMaterials"
// @Success 200 {object} response.Envelope
// @Router /cache/freshness [get]
func (h *CacheHandler) Freshness(c *gin.Context) {
	name := strings.TrimSpace(c.Query("operation"))
	if name == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "operation is required"))
		return
	}
	params := querycache.Params{}
	for key, values := range c.Request.URL.Query() {
		if key == "operation" || len(values) == 0 {
			continue
		}
		params[key] = values[0]
	}
	report, err := h.service.Freshness(name, params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// Invalidate godoc
// @Summary Invalidate cache tags
// @Tags Cache
// @Accept json
// @Produce json
// @Param payload body dto.InvalidateCacheRequest true "Tags, e.g. Material:LIST"
// @Success 200 {object} response.Envelope
// @Router /cache/invalidate [post]
func (h *CacheHandler) Invalidate(c *gin.Context) {
	var req dto.InvalidateCacheRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid invalidation payload"))
		return
	}
	affected, err := h.service.Invalidate(c.Request.Context(), req.Tags)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.InvalidateCacheResponse{Tags: req.Tags, Affected: affected})
}

// Clear godoc
// @Summary Drop every cached entry
// @Tags Cache
// @Success 204
// @Router /cache [delete]
func (h *CacheHandler) Clear(c *gin.Context) {
	if err := h.service.Clear(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
