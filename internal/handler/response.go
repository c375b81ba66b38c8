// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler implements the HTTP API for public article browsing
// and the admin authoring surface.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Response is the envelope for all JSON API responses.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// Meta carries listing metadata alongside the data payload.
type Meta struct {
	Total      int      `json:"total"`
	Categories []string `json:"categories,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// WriteSuccess writes a 200 response with the payload.
func WriteSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

// WriteSuccessMeta writes a 200 response with payload and listing metadata.
func WriteSuccessMeta(w http.ResponseWriter, data any, meta Meta) {
	writeJSON(w, http.StatusOK, Response{Success: true, Data: data, Meta: &meta})
}

// WriteCreated writes a 201 response with the payload.
func WriteCreated(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, Response{Success: true, Data: data})
}

// WriteError writes an error response with the given status.
func WriteError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Error: message})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message)
}

// WriteInternalError logs the underlying error and writes a generic 500
// so internals never leak to clients.
func WriteInternalError(w http.ResponseWriter, err error) {
	slog.Error("internal error", "error", err)
	WriteError(w, http.StatusInternalServerError, "internal server error")
}

// decodeJSON decodes a request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
