package detection

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusMatched = "matched"
	StatusNoMatch = "no-match"

	TypeImage = "image"
)

// Result is one reverse-image-search match for an asset. Rows returned with
// Saved=false are transient previews and carry an empty ID.
type Result struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id,omitempty"`
	UserID        string    `gorm:"type:uuid;not null;index" json:"userId"`
	AssetID       string    `gorm:"type:uuid;not null;index" json:"assetId"`
	ImageURL      string    `gorm:"not null" json:"imageUrl"`
	MatchedURL    *string   `json:"matchedUrl"`
	Source        *string   `json:"source"`
	SourceIcon    *string   `json:"sourceIcon"`
	Similarity    float64   `json:"similarity"`
	DetectionType string    `gorm:"not null;default:'image'" json:"detectionType"`
	Status        string    `gorm:"not null" json:"status"`
	Notes         string    `json:"notes"`
	ScreenshotURL *string   `json:"screenshotUrl"`
	Saved         bool      `gorm:"-" json:"saved"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (r *Result) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (r *Result) AfterCreate(tx *gorm.DB) error {
	r.Saved = true
	return nil
}

func (r *Result) AfterFind(tx *gorm.DB) error {
	r.Saved = true
	return nil
}
