package dto

// InvalidateCacheRequest lists tags to mark stale.
type InvalidateCacheRequest struct {
	Tags []string `json:"tags" validate:"required,min=1,dive,required"`
}

// InvalidateCacheResponse reports how many cached entries were affected.
type InvalidateCacheResponse struct {
	Tags     []string `json:"tags"`
	Affected int      `json:"affected"`
}
