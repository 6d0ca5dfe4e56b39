package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/sma-adp-curriculum/internal/handler"
	"github.com/noah-isme/sma-adp-curriculum/pkg/config"
)

type routeHandlers struct {
	selection  *handler.SelectionHandler
	curriculum *handler.CurriculumHandler
	material   *handler.MaterialHandler
	semester   *handler.SemesterHandler
	adoption   *handler.AdoptionHandler
	cache      *handler.CacheHandler
	metrics    *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, cfg *config.Config, h routeHandlers) {
	r.GET("/metrics", h.metrics.Prometheus)
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	sel := api.Group("/selection")
	sel.GET("", h.selection.Get)
	sel.DELETE("", h.selection.Clear)
	sel.GET("/effective-curriculum", h.selection.EffectiveCurriculum)
	sel.GET("/breadcrumbs", h.selection.Breadcrumbs)
	sel.PUT("/:level", h.selection.Select)

	curricula := api.Group("/curricula")
	curricula.GET("", h.curriculum.List)
	curricula.POST("", h.curriculum.Create)
	curricula.GET("/:id", h.curriculum.Get)
	curricula.PUT("/:id", h.curriculum.Update)
	curricula.DELETE("/:id", h.curriculum.Delete)
	curricula.POST("/:id/activate", h.curriculum.Activate)
	curricula.GET("/:id/statistics", h.curriculum.Statistics)
	curricula.GET("/:id/grade-levels", h.curriculum.GradeLevels)

	api.GET("/grade-levels/:id/classes", h.curriculum.Classes)
	api.GET("/classes/:id/subjects", h.curriculum.Subjects)
	api.GET("/subjects/:id/materials", h.material.ListBySubject)
	api.POST("/subjects/:id/materials/reorder", h.material.Reorder)

	materials := api.Group("/materials")
	materials.POST("", h.material.Create)
	materials.GET("/:id", h.material.Get)
	materials.PUT("/:id", h.material.Update)
	materials.DELETE("/:id", h.material.Delete)

	semesters := api.Group("/semesters")
	semesters.GET("", h.semester.List)
	semesters.POST("", h.semester.Create)
	semesters.PUT("/:id", h.semester.Update)
	semesters.DELETE("/:id", h.semester.Delete)

	if cfg.Features.Adoptions && h.adoption != nil {
		adoptions := api.Group("/adoptions")
		adoptions.GET("", h.adoption.List)
		adoptions.POST("/sync", h.adoption.Sync)
		adoptions.POST("/:id/adopt", h.adoption.Adopt)
		adoptions.POST("/:id/customize", h.adoption.Customize)
		adoptions.POST("/:id/skip", h.adoption.Skip)
		if cfg.Features.Exports {
			adoptions.GET("/history/export", h.adoption.ExportHistory)
		}
	}

	cacheGroup := api.Group("/cache")
	cacheGroup.GET("/freshness", h.cache.Freshness)
	cacheGroup.POST("/invalidate", h.cache.Invalidate)
	cacheGroup.DELETE("", h.cache.Clear)
}
