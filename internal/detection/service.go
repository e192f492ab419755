package detection

import (
	"context"
	"errors"
	"fmt"

	"ip-vault-api/internal/domain/assets"
	"ip-vault-api/internal/domain/detection"
	"ip-vault-api/internal/infra/serpapi"

	"gorm.io/gorm"
)

var (
	ErrAssetNotFound  = errors.New("asset not found")
	ErrResultNotFound = errors.New("detection result not found")
)

// SearchProvider is the reverse-image-search dependency; serpapi.Client is
// the production implementation.
type SearchProvider interface {
	Search(ctx context.Context, imageURL string) ([]serpapi.VisualMatch, error)
}

// Service runs infringement scans against registered assets.
type Service struct {
	db       *gorm.DB
	provider SearchProvider
}

func New(db *gorm.DB, provider SearchProvider) *Service {
	return &Service{db: db, provider: provider}
}

type RunInput struct {
	AssetID    string
	UserID     string
	ImageURL   string // optional override; defaults to the asset's stored file URL
	SaveResult bool
	Page       int
	Limit      int
}

// Run searches the web for copies of the asset's image. Zero provider
// matches yield a single synthetic no-match row so callers always get at
// least one record. Pagination applies before persistence; unsaved rows are
// previews with an empty id.
func (s *Service) Run(ctx context.Context, in RunInput) ([]detection.Result, error) {
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Limit < 1 {
		in.Limit = 10
	}

	var asset assets.Asset
	err := s.db.WithContext(ctx).Where("id = ?", in.AssetID).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load asset: %w", err)
	}

	target := in.ImageURL
	if target == "" {
		target = asset.FileURL
	}

	matches, err := s.provider.Search(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("reverse image search: %w", err)
	}

	if len(matches) == 0 {
		return []detection.Result{{
			UserID:        in.UserID,
			AssetID:       in.AssetID,
			ImageURL:      target,
			Similarity:    0.0,
			DetectionType: detection.TypeImage,
			Status:        detection.StatusNoMatch,
			Notes:         "No match found",
		}}, nil
	}

	skip := (in.Page - 1) * in.Limit
	if skip > len(matches) {
		skip = len(matches)
	}
	end := skip + in.Limit
	if end > len(matches) {
		end = len(matches)
	}

	page := matches[skip:end]
	results := make([]detection.Result, 0, len(page))
	for _, m := range page {
		notes := m.Title
		if notes == "" {
			notes = "No title"
		}
		results = append(results, detection.Result{
			UserID:        in.UserID,
			AssetID:       in.AssetID,
			ImageURL:      target,
			MatchedURL:    optional(m.Link),
			Source:        optional(m.Source),
			SourceIcon:    optional(m.SourceIcon),
			Similarity:    0.9,
			DetectionType: detection.TypeImage,
			Status:        detection.StatusMatched,
			Notes:         notes,
			ScreenshotURL: optional(m.Thumbnail),
		})
	}

	// A page past the end is valid input and yields nothing to persist.
	if in.SaveResult && len(results) > 0 {
		if err := s.db.WithContext(ctx).Create(&results).Error; err != nil {
			return nil, fmt.Errorf("save detection results: %w", err)
		}
	}
	return results, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]detection.Result, error) {
	var results []detection.Result
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("list detections: %w", err)
	}
	return results, nil
}

func (s *Service) GetByID(ctx context.Context, id, userID string) (*detection.Result, error) {
	var result detection.Result
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load detection: %w", err)
	}
	if result.UserID != userID {
		return nil, ErrResultNotFound
	}
	return &result, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
