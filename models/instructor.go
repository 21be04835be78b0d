package models

import (
	"time"

	"gorm.io/gorm"
)

type Organization struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Organization) TableName() string {
	return "organization"
}

type Instructor struct {
	ID             string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	OrganizationID string    `gorm:"type:varchar(64);index" json:"organizationId"`
	DisplayName    string    `json:"displayName"`
	Email          string    `gorm:"type:varchar(255)" json:"email"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (Instructor) TableName() string {
	return "instructor"
}

func GetInstructorByID(db *gorm.DB, instructorID string) (*Instructor, error) {
	var i Instructor
	if err := db.First(&i, "id = ?", instructorID).Error; err != nil {
		return nil, err
	}
	return &i, nil
}
