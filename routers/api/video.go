package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"CoachingAgent-server/models"
)

var allowedVideoFormats = map[string]bool{
	"mp4":  true,
	"mov":  true,
	"avi":  true,
	"webm": true,
}

// UploadVideo accepts a multipart upload, stores the object and creates
// the video row. Transcription does not start here; it starts when an
// evaluation is created for the video.
func (h *Handler) UploadVideo(c *gin.Context) {
	instructorID := c.PostForm("instructor_id")
	if instructorID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "instructor_id is required"})
		return
	}
	if _, err := models.GetInstructorByID(h.DB, instructorID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Instructor not found"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(file.Filename), "."))
	if !allowedVideoFormats[format] {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported format %q, allowed: mp4, mov, avi, webm", format)})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot read upload: " + err.Error()})
		return
	}
	defer src.Close()

	videoID := uuid.NewString()
	storageKey := fmt.Sprintf("videos/%s/%s.%s", instructorID, videoID, format)
	if err := h.Store.Upload(c.Request.Context(), storageKey, src, file.Size); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store upload failed: " + err.Error()})
		return
	}

	metadata, _ := json.Marshal(map[string]string{
		"original_filename": file.Filename,
		"content_type":      file.Header.Get("Content-Type"),
	})

	video := models.Video{
		ID:            videoID,
		InstructorID:  instructorID,
		Filename:      file.Filename,
		StorageKey:    storageKey,
		FileSizeBytes: file.Size,
		Format:        format,
		UploadStatus:  models.VideoStatusUploaded,
		Metadata:      datatypes.JSON(metadata),
		UploadedAt:    time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	if err := h.DB.Create(&video).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create video failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, video)
}

func (h *Handler) ListVideos(c *gin.Context) {
	offset, limit := pagination(c)

	query := h.DB.Model(&models.Video{})
	if instructorID := c.Query("instructor_id"); instructorID != "" {
		query = query.Where("instructor_id = ?", instructorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var videos []models.Video
	if err := query.Order("uploaded_at DESC").Offset(offset).Limit(limit).Find(&videos).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"videos": videos, "total": total, "offset": offset, "limit": limit})
}

func (h *Handler) GetVideo(c *gin.Context) {
	video, err := models.GetVideoByID(h.DB, c.Param("video_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}
	c.JSON(http.StatusOK, video)
}

// DeleteVideo removes the stored object, then the video and everything
// derived from it. Comparisons are untouched; they reference evaluations
// by snapshot, not the video.
func (h *Handler) DeleteVideo(c *gin.Context) {
	video, err := models.GetVideoByID(h.DB, c.Param("video_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}

	if err := h.Store.Delete(c.Request.Context(), video.StorageKey); err != nil {
		h.Log.WithError(err).WithField("storage_key", video.StorageKey).Warn("cannot delete stored object")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Evaluation{}, "video_id = ?", video.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Transcript{}, "video_id = ?", video.ID).Error; err != nil {
			return err
		}
		return tx.Delete(video).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete video failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": video.ID})
}
