package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Create controllers with appropriate interfaces
	health := NewHealthController(cfg.Database, cfg.Connectivity, cfg.Version)
	booksController := NewBooksController(cfg.Library)
	progressController := NewProgressController(cfg.Progress)
	offlineController := NewOfflineController(cfg.Offline, cfg.TaskClient)
	var coversController *CoversController
	if cfg.CoverCache != nil {
		coversController = NewCoversController(cfg.CoverCache, cfg.Library)
	}

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Books API endpoints
	router.GET("/api/books", booksController.GetAllBooks)
	router.GET("/api/books/:id", booksController.GetBook)
	router.GET("/api/books/:id/pages/:pageNumber", booksController.GetPage)

	// Book cover endpoint
	if coversController != nil {
		router.GET("/api/books/:id/cover", coversController.GetCover)
	}

	// Reading progress endpoints
	router.POST("/api/progress", progressController.UpdateProgress)
	router.GET("/api/progress/:userId/recent", progressController.RecentBooks)
	router.GET("/api/progress/:userId/:bookId", progressController.GetProgress)

	// Offline storage endpoints
	router.POST("/api/books/:id/offline", offlineController.CacheBook)
	router.DELETE("/api/books/:id/offline", offlineController.RemoveBook)
	router.GET("/api/offline/books", offlineController.ListBooks)

	// Speech endpoints
	if cfg.Speech != nil {
		speechController := NewSpeechController(cfg.Speech)
		router.POST("/api/speech/speak", speechController.Speak)
		router.POST("/api/speech/cancel", speechController.Cancel)
	}

	return router
}
