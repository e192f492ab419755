package licensing

import (
	"net/http"

	"ip-vault-api/internal/domain/assets"
	"ip-vault-api/internal/domain/licensing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Handler struct {
	DB *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{DB: db}
}

func mustUserID(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return userID, true
}

// POST /api/license/asset/:assetId/plans
func (h *Handler) CreatePlan(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var input struct {
		Name         string          `json:"name" binding:"required"`
		Price        decimal.Decimal `json:"price" binding:"required"`
		LicenseTerms string          `json:"licenseTerms" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price must not be negative"})
		return
	}

	var asset assets.Asset
	if err := h.DB.Where("id = ?", c.Param("assetId")).First(&asset).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}
	if asset.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized to add license plans"})
		return
	}

	plan := licensing.LicensePlan{
		AssetID:      asset.ID,
		Name:         input.Name,
		Price:        input.Price,
		LicenseTerms: input.LicenseTerms,
	}
	if err := h.DB.Create(&plan).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create license plan"})
		return
	}

	c.JSON(http.StatusCreated, plan)
}

// GET /api/license/asset/:assetId/plans
func (h *Handler) ListPlansByAsset(c *gin.Context) {
	var plans []licensing.LicensePlan
	err := h.DB.Where("asset_id = ?", c.Param("assetId")).
		Order("created_at DESC").
		Find(&plans).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load license plans"})
		return
	}
	c.JSON(http.StatusOK, plans)
}

// GET /api/license/mine
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var licenses []licensing.License
	err := h.DB.Preload("Asset").Preload("LicensePlan").
		Where("buyer_id = ?", userID).
		Order("created_at DESC").
		Find(&licenses).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load licenses"})
		return
	}
	c.JSON(http.StatusOK, licenses)
}

// GET /api/license/:id
func (h *Handler) GetByID(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var license licensing.License
	err := h.DB.Preload("Asset").Preload("LicensePlan").
		Where("id = ? AND buyer_id = ?", c.Param("id"), userID).
		First(&license).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "License not found"})
		return
	}
	c.JSON(http.StatusOK, license)
}

// GET /admin/licenses
func (h *Handler) ListAll(c *gin.Context) {
	var licenses []licensing.License
	err := h.DB.Preload("Asset").Preload("LicensePlan").Preload("Buyer").
		Order("created_at DESC").
		Find(&licenses).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load licenses"})
		return
	}
	c.JSON(http.StatusOK, licenses)
}
