package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-curriculum/internal/middleware"
	"github.com/noah-isme/sma-adp-curriculum/internal/models"
	"github.com/noah-isme/sma-adp-curriculum/internal/service"
)

func pathID(c *gin.Context, name string) models.ID {
	return models.ID(strings.TrimSpace(c.Param(name)))
}

// refreshRequested reads ?refresh=true, which bypasses the freshness check.
func refreshRequested(c *gin.Context) bool {
	refresh, _ := strconv.ParseBool(c.Query("refresh"))
	return refresh
}

func cacheMeta[T any](c *gin.Context, f service.Fetched[T]) map[string]interface{} {
	middleware.SetCacheResult(c, f.CacheHit, f.FetchedAt)
	return middleware.ExtractMeta(c)
}
