package api

import (
	"github.com/gin-gonic/gin"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/api/handler"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/api/middleware"
	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/service"
)

// Registry is what the health and admin endpoints need from a job registry.
type Registry interface {
	handler.Sweeper
}

// Repository is the persisted job history. It may be nil.
type Repository interface {
	handler.HistoryStore
	handler.StatusCounter
}

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	HTML          handler.HTMLJobs
	Video         handler.VideoJobs
	HTMLRegistry  Registry
	VideoRegistry Registry
	History       Repository

	// Filesystem roots served as static content. Empty values are skipped.
	StaticDir  string
	IndexFile  string
	RunsDir    string
	ArchiveDir string

	CORS middleware.CORSConfig
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps Deps, mode string) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORS(deps.CORS))

	var (
		history handler.HistoryStore
		counter handler.StatusCounter
	)
	if deps.History != nil {
		history, counter = deps.History, deps.History
	}

	healthHandler := handler.NewHealthHandler(deps.HTMLRegistry, deps.VideoRegistry)
	htmlHandler := handler.NewHTMLHandler(deps.HTML)
	videoHandler := handler.NewVideoHandler(deps.Video)
	historyHandler := handler.NewHistoryHandler(history)
	adminHandler := handler.NewAdminHandler(deps.HTMLRegistry, deps.VideoRegistry, counter)

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")
	{
		api.POST("/generate-html", htmlHandler.Generate)
		api.GET("/html-status/:job_id", htmlHandler.Status)

		api.POST("/generate-video", videoHandler.Generate)
		api.GET("/video-status/:job_id", videoHandler.Status)
		api.GET("/video-errors", videoHandler.Errors)

		api.GET("/jobs/history", historyHandler.List)

		api.GET("/admin/stats", adminHandler.Stats)
		api.POST("/admin/sweep", adminHandler.Sweep)
	}

	if deps.IndexFile != "" {
		r.GET("/", func(c *gin.Context) {
			c.File(deps.IndexFile)
		})
	}
	if deps.StaticDir != "" {
		r.Static("/static", deps.StaticDir)
	}
	if deps.RunsDir != "" {
		r.Static(service.VideoRunsURLPrefix, deps.RunsDir)
	}
	if deps.ArchiveDir != "" {
		r.Static("/saved", deps.ArchiveDir)
	}

	return r
}
