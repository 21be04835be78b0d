package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	VideoStatusUploaded    = "uploaded"
	VideoStatusTranscribed = "transcribed"
)

type Video struct {
	ID              string         `gorm:"primaryKey;type:varchar(64)" json:"id"`
	InstructorID    string         `gorm:"type:varchar(64);index" json:"instructorId"`
	Filename        string         `json:"filename"`
	StorageKey      string         `gorm:"type:varchar(255)" json:"storageKey"`
	FileSizeBytes   int64          `json:"fileSizeBytes"`
	Format          string         `gorm:"type:varchar(16)" json:"format"`
	DurationSeconds int            `json:"durationSeconds"`
	UploadStatus    string         `gorm:"type:varchar(32)" json:"uploadStatus"`
	Metadata        datatypes.JSON `gorm:"type:json" json:"metadata,omitempty"`
	UploadedAt      time.Time      `json:"uploadedAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

func (Video) TableName() string {
	return "video"
}

func GetVideoByID(db *gorm.DB, videoID string) (*Video, error) {
	var v Video
	if err := db.First(&v, "id = ?", videoID).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

// MarkTranscribed records the duration reported by the transcription
// gateway and advances the upload status.
func (v *Video) MarkTranscribed(db *gorm.DB, durationSeconds int) error {
	updates := map[string]interface{}{
		"duration_seconds": durationSeconds,
		"upload_status":    VideoStatusTranscribed,
		"updated_at":       time.Now().UTC(),
	}
	if err := db.Model(v).Updates(updates).Error; err != nil {
		return err
	}
	v.DurationSeconds = durationSeconds
	v.UploadStatus = VideoStatusTranscribed
	return nil
}
