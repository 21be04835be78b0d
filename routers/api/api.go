package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"CoachingAgent-server/logger"
	"CoachingAgent-server/service"
)

// Handler carries the shared dependencies of every endpoint. Handlers
// never run pipeline work inline; anything slow goes through the queue.
type Handler struct {
	DB    *gorm.DB
	Store *service.ObjectStore
	Queue service.Enqueuer
	Log   *logger.Logger
}

func NewHandler(db *gorm.DB, store *service.ObjectStore, queue service.Enqueuer, log *logger.Logger) *Handler {
	return &Handler{DB: db, Store: store, Queue: queue, Log: log.WithModule("api")}
}

// pagination reads offset/limit query params with sane bounds.
func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return offset, limit
}
