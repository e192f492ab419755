package detection

import (
	"errors"
	"net/http"
	"strconv"

	"ip-vault-api/internal/detection"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Detections *detection.Service
}

func NewHandler(detections *detection.Service) *Handler {
	return &Handler{Detections: detections}
}

func mustUserID(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return userID, true
}

// POST /api/detection/run
func (h *Handler) Run(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var input struct {
		AssetID    string `json:"assetId" binding:"required"`
		ImageURL   string `json:"imageUrl"`
		SaveResult bool   `json:"saveResult"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	results, err := h.Detections.Run(c.Request.Context(), detection.RunInput{
		AssetID:    input.AssetID,
		UserID:     userID,
		ImageURL:   input.ImageURL,
		SaveResult: input.SaveResult,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		if errors.Is(err, detection.ErrAssetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Detection failed"})
		return
	}

	c.JSON(http.StatusOK, results)
}

// GET /api/detection
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	results, err := h.Detections.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load detections"})
		return
	}
	c.JSON(http.StatusOK, results)
}

// GET /api/detection/:id
func (h *Handler) GetByID(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	result, err := h.Detections.GetByID(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, detection.ErrResultNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Detection result not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load detection"})
		return
	}
	c.JSON(http.StatusOK, result)
}
