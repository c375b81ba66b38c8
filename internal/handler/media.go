// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/sarmadcodes/tbc/internal/middleware"
	"github.com/sarmadcodes/tbc/internal/model"
	"github.com/sarmadcodes/tbc/internal/service"
)

// MediaHandler serves standalone image uploads for the editor.
type MediaHandler struct {
	media  *service.MediaService
	events *service.EventService
}

func NewMediaHandler(media *service.MediaService, events *service.EventService) *MediaHandler {
	return &MediaHandler{media: media, events: events}
}

// Upload serves POST /api/admin/media with a multipart "image" file and
// returns the stored image's public URL.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(service.MaxImageSize + 1<<20); err != nil {
		WriteBadRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		WriteBadRequest(w, "image file is required")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxImageSize+1))
	if err != nil {
		WriteInternalError(w, err)
		return
	}

	url, err := h.media.UploadArticleImage(r.Context(), &service.StagedImage{
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			WriteBadRequest(w, err.Error())
			return
		}
		WriteInternalError(w, err)
		return
	}

	var userID int64
	if user, ok := middleware.UserFrom(r.Context()); ok {
		userID = user.ID
	}
	h.events.Record(r.Context(), model.EventLevelInfo, model.EventCategoryMedia,
		"image uploaded: "+header.Filename, userID)

	WriteCreated(w, map[string]string{"url": url})
}
