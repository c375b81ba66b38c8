// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"log/slog"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var contentMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

var contentPolicy = bluemonday.UGCPolicy()

// RenderContent converts stored article content to sanitized HTML.
// Content is authored as newline-delimited paragraphs with optional
// Markdown; raw HTML in the source is stripped, never passed through.
func RenderContent(content string) string {
	var buf bytes.Buffer
	if err := contentMarkdown.Convert([]byte(content), &buf); err != nil {
		slog.Warn("rendering article content", "error", err)
		return ""
	}
	return contentPolicy.Sanitize(buf.String())
}
