package assets

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"ip-vault-api/internal/domain/assets"
	"ip-vault-api/internal/infra/objstore"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxUploadBytes = 50 << 20 // 50 MiB

type Handler struct {
	DB    *gorm.DB
	Store objstore.Store
}

func NewHandler(db *gorm.DB, store objstore.Store) *Handler {
	return &Handler{DB: db, Store: store}
}

func mustUserID(c *gin.Context) (string, bool) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	return userID, true
}

// POST /api/asset/upload
func (h *Handler) Upload(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	title := c.PostForm("title")
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}
	description := c.PostForm("description")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	defer file.Close()

	hasher := sha256.New()
	var buf bytes.Buffer
	if _, err := io.Copy(io.MultiWriter(hasher, &buf), file); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}
	hash := hex.EncodeToString(hasher.Sum(nil))

	var existing assets.Asset
	if err := h.DB.Where("hash = ?", hash).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Duplicate asset detected"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := fmt.Sprintf("assets/%s%s", uuid.NewString(), filepath.Ext(fileHeader.Filename))

	fileURL, err := h.Store.Upload(c.Request.Context(), key, &buf, contentType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	asset := assets.Asset{
		UserID:      userID,
		Title:       title,
		Description: description,
		FileURL:     fileURL,
		Hash:        hash,
		Status:      assets.StatusProtected,
	}
	if err := h.DB.Create(&asset).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Duplicate asset detected"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register asset"})
		return
	}

	c.JSON(http.StatusCreated, asset)
}

// GET /api/asset
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var list []assets.Asset
	if err := h.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load assets"})
		return
	}
	c.JSON(http.StatusOK, list)
}

// GET /api/asset/:id
func (h *Handler) GetByID(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var asset assets.Asset
	if err := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&asset).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}
	c.JSON(http.StatusOK, asset)
}

// PUT /api/asset/:id
func (h *Handler) Update(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	var input struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if input.Title != "" {
		updates["title"] = input.Title
	}
	if input.Description != "" {
		updates["description"] = input.Description
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	result := h.DB.Model(&assets.Asset{}).
		Where("id = ? AND user_id = ?", c.Param("id"), userID).
		Updates(updates)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update asset"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}

	var asset assets.Asset
	if err := h.DB.Where("id = ?", c.Param("id")).First(&asset).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}
	c.JSON(http.StatusOK, asset)
}

// DELETE /api/asset/:id
func (h *Handler) Delete(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}

	result := h.DB.Where("id = ? AND user_id = ?", c.Param("id"), userID).Delete(&assets.Asset{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete asset"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Asset deleted"})
}
