package service

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/2eliot/Inefablestore/models"
)

// Icon sizes
const (
	IconSizeThumb  = "thumb"
	IconSizeMedium = "medium"
)

const (
	qualityThumb  = 60
	qualityMedium = 75
	maxSizeThumb  = 96
	maxSizeMedium = 256
)

// ErrIconNotFound means the item has no icon or its file is missing
var ErrIconNotFound = errors.New("icon not found")

// IconService serves item icons as small JPEGs, caching each rendition on disk
type IconService struct {
	iconDir  string
	cacheDir string
}

// NewIconService creates a service reading source icons under iconDir and writing
// renditions under cacheDir
func NewIconService(iconDir, cacheDir string) *IconService {
	return &IconService{iconDir: iconDir, cacheDir: filepath.Join(cacheDir, "icons")}
}

// Icon returns the rendition of item's icon at size, building and caching it on first use
func (s *IconService) Icon(item *models.Item, size string) ([]byte, error) {
	if item == nil || strings.TrimSpace(item.Icon) == "" {
		return nil, ErrIconNotFound
	}
	if size != IconSizeThumb {
		size = IconSizeMedium
	}

	cachePath := filepath.Join(s.cacheDir, fmt.Sprintf("item_%d_%s.jpg", item.ID, size))
	if data, err := os.ReadFile(cachePath); err == nil {
		return data, nil
	}

	src, err := s.sourcePath(item.Icon)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrIconNotFound
		}
		return nil, fmt.Errorf("failed to read icon: %w", err)
	}

	data, err := OptimizeIcon(raw, size)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.cacheDir, 0755); err != nil {
		zap.S().Warnf("⚠️ Icon: failed to create cache directory: %v", err)
		return data, nil
	}
	if err := os.WriteFile(cachePath, data, 0644); err != nil {
		zap.S().Warnf("⚠️ Icon: failed to cache %s: %v", cachePath, err)
	}
	return data, nil
}

// sourcePath resolves an icon reference inside iconDir, rejecting paths that escape it
func (s *IconService) sourcePath(ref string) (string, error) {
	ref = strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(ref)), "/")
	full := filepath.Join(s.iconDir, filepath.FromSlash(ref))
	rel, err := filepath.Rel(s.iconDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrIconNotFound
	}
	return full, nil
}

// OptimizeIcon decodes an image (PNG, JPEG or GIF), fits it within the size's bounding
// box on a white background and encodes it as JPEG.
func OptimizeIcon(imageData []byte, size string) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	maxDim, quality := maxSizeMedium, qualityMedium
	if size == IconSizeThumb {
		maxDim, quality = maxSizeThumb, qualityThumb
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxDim || bounds.Dy() > maxDim {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}
	// JPEG has no alpha: flatten transparent icons onto white
	flat := imaging.New(img.Bounds().Dx(), img.Bounds().Dy(), color.White)
	flat = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode to JPEG: %w", err)
	}

	zap.S().Debugf("📸 Icon optimized: format=%s size=%s %dx%d -> %d bytes", format, size, bounds.Dx(), bounds.Dy(), buf.Len())
	return buf.Bytes(), nil
}
