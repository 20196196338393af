package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	tracker ProgressTracker
}

func NewProgressController(tracker ProgressTracker) *ProgressController {
	return &ProgressController{
		tracker: tracker,
	}
}

// UpdateProgressRequest is the payload for recording reading progress.
type UpdateProgressRequest struct {
	UserID           uint `json:"user_id" binding:"required"`
	BookID           uint `json:"book_id" binding:"required"`
	PageNumber       int  `json:"page_number" binding:"required,min=1"`
	TimeSpentSeconds int  `json:"time_spent_seconds" binding:"min=0"`
}

// UpdateProgress records that a user reached a page in a book.
// POST /api/progress
func (controller *ProgressController) UpdateProgress(c *gin.Context) {
	var req UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	progress, err := controller.tracker.UpdateProgress(c.Request.Context(), req.UserID, req.BookID, req.PageNumber, req.TimeSpentSeconds)
	if err != nil {
		respondError(c, err)
		return
	}

	c.IndentedJSON(http.StatusOK, progress)
}

// GetProgress returns a user's progress for a single book.
// GET /api/progress/:userId/:bookId
func (controller *ProgressController) GetProgress(c *gin.Context) {
	userID, ok := parseUintParam(c, "userId")
	if !ok {
		return
	}
	bookID, ok := parseUintParam(c, "bookId")
	if !ok {
		return
	}

	progress, err := controller.tracker.GetProgress(userID, bookID)
	if err != nil {
		respondError(c, err)
		return
	}
	if progress == nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"error": "no progress recorded"})
		return
	}

	c.IndentedJSON(http.StatusOK, progress)
}

// RecentBooks returns the user's most recently read books.
// GET /api/progress/:userId/recent?limit=N
func (controller *ProgressController) RecentBooks(c *gin.Context) {
	userID, ok := parseUintParam(c, "userId")
	if !ok {
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.IndentedJSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	recent, err := controller.tracker.RecentBooks(userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"books": recent, "count": len(recent)})
}
