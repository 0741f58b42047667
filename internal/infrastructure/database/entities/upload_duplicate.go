package entities

import (
	"time"

	"gorm.io/datatypes"
)

// UploadDuplicate is a key that already held an object when a new credential was issued.
type UploadDuplicate struct {
	StorageKey string         `gorm:"type:varchar(1024);primaryKey"`
	Tags       datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	DetectedAt time.Time      `gorm:"not null"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
}

func (UploadDuplicate) TableName() string {
	return "upload_duplicates"
}
