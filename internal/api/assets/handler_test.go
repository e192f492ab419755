package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"ip-vault-api/database"
	"ip-vault-api/internal/domain/assets"
	"ip-vault-api/internal/domain/users"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeStore struct {
	uploads map[string][]byte
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{uploads: map[string][]byte{}}
}

func (f *fakeStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.uploads[key] = data
	return "https://bucket.test/" + key, nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func newTestEnv(t *testing.T) (*gin.Engine, *gorm.DB, *fakeStore, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	user := &users.User{
		Name:     "Ada",
		Email:    uuid.NewString() + "@example.com",
		Role:     "user",
		Verified: true,
	}
	require.NoError(t, db.Create(user).Error)

	store := newFakeStore()
	h := NewHandler(db, store)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", user.ID)
	})
	r.POST("/api/asset/upload", h.Upload)
	r.GET("/api/asset", h.ListMine)
	r.GET("/api/asset/:id", h.GetByID)
	r.PUT("/api/asset/:id", h.Update)
	r.DELETE("/api/asset/:id", h.Delete)
	return r, db, store, user.ID
}

func uploadRequest(t *testing.T, title string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", title))
	require.NoError(t, w.WriteField("description", "a test upload"))
	part, err := w.CreateFormFile("file", "art.jpg")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/asset/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUpload(t *testing.T) {
	r, _, store, userID := newTestEnv(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "Sunset", []byte("jpeg bytes")))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var asset assets.Asset
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &asset))
	assert.NotEmpty(t, asset.ID)
	assert.Equal(t, userID, asset.UserID)
	assert.Equal(t, "Sunset", asset.Title)
	assert.Equal(t, assets.StatusProtected, asset.Status)
	assert.Len(t, asset.Hash, 64)
	assert.Contains(t, asset.FileURL, "https://bucket.test/assets/")

	require.Len(t, store.uploads, 1)
	for key, data := range store.uploads {
		assert.Equal(t, ".jpg", filepath.Ext(key))
		assert.Equal(t, []byte("jpeg bytes"), data)
	}
}

func TestUpload_DuplicateContentConflicts(t *testing.T) {
	r, _, store, _ := newTestEnv(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "Sunset", []byte("same bytes")))
	require.Equal(t, http.StatusCreated, w.Code)

	// Same content under a different title still collides on the hash.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "Sunset Copy", []byte("same bytes")))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Duplicate asset detected")
	assert.Len(t, store.uploads, 1)
}

func TestUpload_MissingTitle(t *testing.T) {
	r, _, _, _ := newTestEnv(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "", []byte("bytes")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpload_MissingFile(t *testing.T) {
	r, _, _, _ := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "Sunset"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/asset/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListGetUpdateDelete(t *testing.T) {
	r, db, _, userID := newTestEnv(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, uploadRequest(t, "Sunset", []byte("bytes one")))
	require.Equal(t, http.StatusCreated, w.Code)
	var created assets.Asset
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/asset", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list []assets.Asset
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)

	// Another user's asset is invisible through owner-scoped routes.
	other := assets.Asset{UserID: uuid.NewString(), Title: "Theirs", FileURL: "https://x/y", Hash: uuid.NewString()}
	require.NoError(t, db.Create(&other).Error)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/asset/"+other.ID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	body := bytes.NewReader([]byte(`{"title": "Sunset, Revised"}`))
	req := httptest.NewRequest(http.MethodPut, "/api/asset/"+created.ID, body)
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated assets.Asset
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Sunset, Revised", updated.Title)
	assert.Equal(t, userID, updated.UserID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/asset/"+created.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/asset/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDelete_OtherUsersAsset(t *testing.T) {
	r, db, _, _ := newTestEnv(t)

	other := assets.Asset{UserID: uuid.NewString(), Title: "Theirs", FileURL: "https://x/y", Hash: uuid.NewString()}
	require.NoError(t, db.Create(&other).Error)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/asset/"+other.ID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	var count int64
	require.NoError(t, db.Model(&assets.Asset{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
