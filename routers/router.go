package routers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"CoachingAgent-server/logger"
	"CoachingAgent-server/routers/api"
)

func InitRouter(h *api.Handler, log *logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "coaching-agent", "status": "running"})
	})
	r.GET("/health", healthCheck(h.DB))

	v1 := r.Group("/v1/api")
	{
		v1.POST("/videos/upload", h.UploadVideo)
		v1.GET("/videos", h.ListVideos)
		v1.GET("/videos/:video_id", h.GetVideo)
		v1.DELETE("/videos/:video_id", h.DeleteVideo)

		v1.POST("/evaluations", h.CreateEvaluation)
		v1.GET("/evaluations/:evaluation_id", h.GetEvaluation)
		v1.GET("/evaluations/:evaluation_id/transcript", h.GetEvaluationTranscript)
		v1.GET("/evaluations/:evaluation_id/report", h.GetEvaluationReport)
		v1.DELETE("/evaluations/:evaluation_id", h.DeleteEvaluation)

		v1.POST("/comparisons", h.CreateComparison)
		v1.GET("/comparisons", h.ListComparisons)
		v1.GET("/comparisons/:comparison_id", h.GetComparison)
		v1.POST("/comparisons/:comparison_id/start", h.StartComparison)
		v1.GET("/comparisons/:comparison_id/report", h.GetComparisonReport)
		v1.DELETE("/comparisons/:comparison_id", h.DeleteComparison)

		v1.GET("/instructors/:instructor_id/dashboard", h.InstructorDashboard)
		v1.GET("/instructors/:instructor_id/evaluations", h.ListInstructorEvaluations)
	}
	return r
}

func healthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.Ping()
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	}
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithRequest(c.Request).WithFields(logrus.Fields{
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("request handled")
	}
}
