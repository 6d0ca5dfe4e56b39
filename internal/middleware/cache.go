package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey = "response_meta"
	cacheHitKey     = "cache_hit"
	fetchedAtKey    = "fetched_at"
)

// WithResponseMeta initialises per-request response metadata. Handlers add
// cache details to it and read it back when writing the envelope.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetCacheResult records whether the payload came from the query cache and
// when it was fetched from the remote side.
func SetCacheResult(c *gin.Context, hit bool, fetchedAt time.Time) {
	meta := ensureMeta(c)
	meta[cacheHitKey] = hit
	if !fetchedAt.IsZero() {
		meta[fetchedAtKey] = fetchedAt.UTC().Format(time.RFC3339Nano)
	}
}

// ExtractMeta returns the metadata map stored on the context.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	return nil
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
