package marketplace

import (
	"errors"
	"net/http"

	"ip-vault-api/internal/domain/assets"
	"ip-vault-api/internal/domain/licensing"
	"ip-vault-api/internal/domain/users"
	"ip-vault-api/internal/purchase"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	DB        *gorm.DB
	Purchases *purchase.Service
}

func NewHandler(db *gorm.DB, purchases *purchase.Service) *Handler {
	return &Handler{DB: db, Purchases: purchases}
}

func mustUserID(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return userID, true
}

// owner is the public slice of the user who registered an asset.
type owner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// listing pairs an asset with its owner and the plans it can be licensed under.
type listing struct {
	assets.Asset
	Owner        *owner                  `json:"user"`
	LicensePlans []licensing.LicensePlan `json:"licensePlans"`
}

func (h *Handler) ownersByID(userIDs []string) (map[string]owner, error) {
	owners := map[string]owner{}
	if len(userIDs) == 0 {
		return owners, nil
	}
	var list []users.User
	if err := h.DB.Where("id IN ?", userIDs).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, u := range list {
		owners[u.ID] = owner{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	return owners, nil
}

func (h *Handler) assembleListings(list []assets.Asset) ([]listing, error) {
	ids := make([]string, 0, len(list))
	userIDs := make([]string, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.ID)
		userIDs = append(userIDs, a.UserID)
	}

	plansByAsset := map[string][]licensing.LicensePlan{}
	if len(ids) > 0 {
		var plans []licensing.LicensePlan
		if err := h.DB.Where("asset_id IN ?", ids).Find(&plans).Error; err != nil {
			return nil, err
		}
		for _, p := range plans {
			plansByAsset[p.AssetID] = append(plansByAsset[p.AssetID], p)
		}
	}

	owners, err := h.ownersByID(userIDs)
	if err != nil {
		return nil, err
	}

	listings := make([]listing, 0, len(list))
	for _, a := range list {
		plans := plansByAsset[a.ID]
		if plans == nil {
			plans = []licensing.LicensePlan{}
		}
		var o *owner
		if u, ok := owners[a.UserID]; ok {
			o = &u
		}
		listings = append(listings, listing{Asset: a, Owner: o, LicensePlans: plans})
	}
	return listings, nil
}

// GET /api/marketplace
func (h *Handler) ListAssets(c *gin.Context) {
	var list []assets.Asset
	if err := h.DB.Order("created_at DESC").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch marketplace assets"})
		return
	}

	listings, err := h.assembleListings(list)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch marketplace assets"})
		return
	}
	c.JSON(http.StatusOK, listings)
}

// GET /api/marketplace/:id
func (h *Handler) GetAssetByID(c *gin.Context) {
	var asset assets.Asset
	if err := h.DB.Where("id = ?", c.Param("id")).First(&asset).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}

	listings, err := h.assembleListings([]assets.Asset{asset})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch license plans"})
		return
	}
	c.JSON(http.StatusOK, listings[0])
}

// POST /api/marketplace/buy
func (h *Handler) PurchaseAsset(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var input struct {
		LicensePlanID   string `json:"licensePlanId" binding:"required"`
		PaymentIntentID string `json:"paymentIntentId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing purchase details"})
		return
	}

	license, err := h.Purchases.PurchaseAsset(c.Request.Context(), userID, input.LicensePlanID, input.PaymentIntentID)
	if err != nil {
		status := purchaseErrorStatus(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, license)
}

// POST /api/marketplace/create-checkout-session
func (h *Handler) CreateCheckoutSession(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var input struct {
		LicensePlanID string `json:"licensePlanId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "License plan ID is required"})
		return
	}

	url, err := h.Purchases.CreateCheckoutSession(c.Request.Context(), userID, input.LicensePlanID)
	if err != nil {
		status := purchaseErrorStatus(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

func purchaseErrorStatus(err error) int {
	switch {
	case errors.Is(err, purchase.ErrPlanNotFound):
		return http.StatusNotFound
	case errors.Is(err, purchase.ErrAlreadyLicensed):
		return http.StatusConflict
	case errors.Is(err, purchase.ErrPaymentFailed):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
