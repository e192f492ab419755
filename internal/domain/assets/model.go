package assets

import (
	"time"

	"ip-vault-api/internal/domain/users"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const StatusProtected = "protected"

// Asset is a registered digital work. The SHA-256 content hash is unique so
// the same file cannot be registered twice.
type Asset struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      string     `gorm:"type:uuid;not null;index" json:"userId"`
	User        users.User `json:"-"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	FileURL     string     `gorm:"not null" json:"fileUrl"`
	Hash        string     `gorm:"not null;uniqueIndex:idx_assets_hash" json:"hash"`
	Status      string     `gorm:"not null;default:'protected'" json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
