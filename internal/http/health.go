package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/krizium/kidsreading/internal/database"
)

type HealthResponse struct {
	Status    string            `json:"status"`
	Time      string            `json:"time"`
	Version   string            `json:"version,omitempty"`
	Connected bool              `json:"connected"`
	Checks    map[string]string `json:"checks"`
}

type HealthController struct {
	db           *database.Database
	connectivity interface{ IsConnected() bool }
	version      string
}

func NewHealthController(db *database.Database, connectivity interface{ IsConnected() bool }, version string) *HealthController {
	return &HealthController{
		db:           db,
		connectivity: connectivity,
		version:      version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	// Check database connectivity
	if h.db != nil {
		sqlDB, err := h.db.DB.DB()
		if err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else if err := sqlDB.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	// Remote reachability is informational, the app works offline
	connected := false
	if h.connectivity != nil {
		connected = h.connectivity.IsConnected()
		if connected {
			checks["remote"] = "reachable"
		} else {
			checks["remote"] = "offline"
		}
	}

	health := HealthResponse{
		Status:    status,
		Time:      time.Now().Format(time.RFC3339),
		Version:   h.version,
		Connected: connected,
		Checks:    checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}
