package models

import (
	"time"

	"gorm.io/gorm"
)

// Transcript is written once by the evaluation pipeline's transcription
// stage and never mutated afterwards.
type Transcript struct {
	ID                    string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	VideoID               string    `gorm:"type:varchar(64);index" json:"videoId"`
	TranscriptText        string    `gorm:"type:longtext" json:"transcriptText"`
	WordCount             int       `json:"wordCount"`
	SpeakerCount          int       `json:"speakerCount"`
	ProcessingTimeSeconds int       `json:"processingTimeSeconds"`
	ProviderTranscriptID  string    `gorm:"type:varchar(128)" json:"providerTranscriptId,omitempty"`
	Status                string    `gorm:"type:varchar(32)" json:"status"`
	CreatedAt             time.Time `json:"createdAt"`
}

func (Transcript) TableName() string {
	return "transcript"
}

func GetTranscriptByID(db *gorm.DB, transcriptID string) (*Transcript, error) {
	var t Transcript
	if err := db.First(&t, "id = ?", transcriptID).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTranscriptByVideoID is the fallback lookup: the pipeline commits the
// transcript row in the same transaction that links it to the evaluation,
// but older rows may predate the link.
func GetTranscriptByVideoID(db *gorm.DB, videoID string) (*Transcript, error) {
	var t Transcript
	if err := db.First(&t, "video_id = ?", videoID).Error; err != nil {
		return nil, err
	}
	return &t, nil
}
