// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// MaxImageSize caps article image uploads at 10 MiB.
const MaxImageSize = 10 << 20

// thumbWidth is the bounding width for generated listing thumbnails.
const thumbWidth = 480

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// MediaService stores uploaded article images under a local uploads
// directory and serves them by public URL.
type MediaService struct {
	uploadsDir string
	baseURL    string
}

// NewMediaService creates a MediaService rooted at uploadsDir. baseURL
// prefixes returned URLs, e.g. "https://example.com".
func NewMediaService(uploadsDir, baseURL string) *MediaService {
	return &MediaService{
		uploadsDir: uploadsDir,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// UploadArticleImage validates, stores, and thumbnails a staged image,
// returning the stored image's public URL. Files land under
// articles/<millis>_<name> so repeated uploads of the same file never
// collide.
func (m *MediaService) UploadArticleImage(ctx context.Context, img *StagedImage) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", fmt.Errorf("%w: empty image upload", ErrValidation)
	}
	if len(img.Data) > MaxImageSize {
		return "", fmt.Errorf("%w: image exceeds %d bytes", ErrValidation, MaxImageSize)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	contentType := http.DetectContentType(img.Data)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: unsupported image type %s", ErrValidation, contentType)
	}

	name := sanitizeFilename(img.Filename, ext)
	relPath := path.Join("articles", fmt.Sprintf("%d_%s", time.Now().UnixMilli(), name))
	absPath := filepath.Join(m.uploadsDir, filepath.FromSlash(relPath))

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("creating uploads directory: %w", err)
	}
	if err := os.WriteFile(absPath, img.Data, 0o644); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}

	// Thumbnail failures are logged, not fatal: the original image is
	// already stored and usable.
	if err := m.writeThumbnail(absPath, img.Data); err != nil {
		slog.Warn("generating thumbnail", "category", "media", "path", relPath, "error", err)
	}

	return m.baseURL + "/uploads/" + relPath, nil
}

// writeThumbnail decodes the stored image and writes a width-bounded
// thumbnail next to it with a _thumb suffix.
func (m *MediaService) writeThumbnail(absPath string, data []byte) error {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decoding image: %w", err)
	}
	if src.Bounds().Dx() <= thumbWidth {
		return nil
	}

	thumb := imaging.Resize(src, thumbWidth, 0, imaging.Lanczos)
	ext := filepath.Ext(absPath)
	thumbPath := strings.TrimSuffix(absPath, ext) + "_thumb" + ext
	if err := imaging.Save(thumb, thumbPath); err != nil {
		return fmt.Errorf("saving thumbnail: %w", err)
	}
	return nil
}

// sanitizeFilename reduces a client-supplied filename to a safe slug-like
// name, falling back to a random name when nothing safe remains.
func sanitizeFilename(filename, ext string) string {
	base := filepath.Base(filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = unsafeNameChars.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-.")
	if base == "" {
		base = uuid.NewString()
	}
	return base + ext
}
