package licensing

import (
	"time"

	"ip-vault-api/internal/domain/assets"
	"ip-vault-api/internal/domain/users"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const StatusActive = "active"

// LicensePlan is a named, priced offer to license one asset. Plans are not
// updated or deleted once created.
type LicensePlan struct {
	ID           string          `gorm:"type:uuid;primaryKey" json:"id"`
	AssetID      string          `gorm:"type:uuid;not null;index" json:"assetId"`
	Asset        assets.Asset    `json:"-"`
	Name         string          `gorm:"not null" json:"name"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	LicenseTerms string          `gorm:"not null" json:"licenseTerms"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func (p *LicensePlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// License grants one buyer the right to use one asset under one plan.
// The composite unique index on (asset_id, buyer_id) is the authoritative
// guard against duplicate purchases; any pre-check in service code is
// advisory only.
type License struct {
	ID              string          `gorm:"type:uuid;primaryKey" json:"id"`
	AssetID         string          `gorm:"type:uuid;not null;uniqueIndex:idx_licenses_asset_buyer" json:"assetId"`
	Asset           assets.Asset    `json:"asset,omitempty"`
	BuyerID         string          `gorm:"type:uuid;not null;uniqueIndex:idx_licenses_asset_buyer" json:"buyerId"`
	Buyer           users.User      `gorm:"foreignKey:BuyerID" json:"buyer,omitempty"`
	LicensePlanID   string          `gorm:"type:uuid;not null;index" json:"licensePlanId"`
	LicensePlan     LicensePlan     `json:"licensePlan,omitempty"`
	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	LicenseTerms    string          `gorm:"not null" json:"licenseTerms"`
	PaymentIntentID *string         `gorm:"column:stripe_payment_intent_id" json:"stripePaymentIntentId"`
	Status          string          `gorm:"not null;default:'active'" json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}

func (l *License) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
