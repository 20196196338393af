package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/krizium/kidsreading/internal/tasks"
)

type OfflineController struct {
	manager    OfflineManager
	taskClient *tasks.Client
}

func NewOfflineController(manager OfflineManager, taskClient *tasks.Client) *OfflineController {
	return &OfflineController{
		manager:    manager,
		taskClient: taskClient,
	}
}

// CacheBook enqueues a background download of a book for offline reading.
// POST /api/books/:id/offline
func (controller *OfflineController) CacheBook(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	if controller.taskClient == nil {
		c.IndentedJSON(http.StatusServiceUnavailable, gin.H{"error": "background tasks are disabled"})
		return
	}

	ids, err := controller.taskClient.Add(tasks.CacheBookTask{BookID: id}).Save()
	if err != nil {
		c.IndentedJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.IndentedJSON(http.StatusAccepted, gin.H{
		"message": "book caching started",
		"book_id": id,
		"task_id": ids[0],
	})
}

// RemoveBook deletes a book's offline copy. Cached audio is retained and
// reclaimed separately by the sweep job.
// DELETE /api/books/:id/offline
func (controller *OfflineController) RemoveBook(c *gin.Context) {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	if err := controller.manager.RemoveBookFromOffline(id); err != nil {
		respondError(c, err)
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"message": "book removed from offline storage", "book_id": id})
}

// ListBooks returns all books currently available offline.
// GET /api/offline/books
func (controller *OfflineController) ListBooks(c *gin.Context) {
	books, err := controller.manager.OfflineBooks()
	if err != nil {
		respondError(c, err)
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}
