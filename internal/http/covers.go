package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/krizium/kidsreading/internal/covers"
)

// CoversController handles book cover requests.
type CoversController struct {
	cache   *covers.Cache
	library Library
}

// NewCoversController creates a new CoversController.
func NewCoversController(cache *covers.Cache, library Library) *CoversController {
	return &CoversController{
		cache:   cache,
		library: library,
	}
}

// GetCover serves a cached book cover image.
// GET /api/books/:id/cover
func (cc *CoversController) GetCover(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	book, err := cc.library.GetBook(c.Request.Context(), id)
	if err != nil || book == nil {
		c.Status(http.StatusNotFound)
		return
	}

	if book.CoverImageURL == "" {
		c.Status(http.StatusNotFound)
		return
	}

	// Get cached cover (will fetch if not cached)
	cachePath, err := cc.cache.GetCover(id, book.CoverImageURL)
	if err != nil || cachePath == "" {
		// Fallback: redirect to original URL
		c.Redirect(http.StatusTemporaryRedirect, book.CoverImageURL)
		return
	}

	c.File(cachePath)
}
