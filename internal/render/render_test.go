// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTemplatesFS() fstest.MapFS {
	return fstest.MapFS{
		"layouts/base.html": &fstest.MapFile{
			Data: []byte(`{{define "base"}}<html><body>{{template "content" .}}</body></html>{{end}}`),
		},
		"partials/flash.html": &fstest.MapFile{
			Data: []byte(`{{define "flash"}}{{if .Flash}}<div class="{{.FlashType}}">{{.Flash}}</div>{{end}}{{end}}`),
		},
		"site/home.html": &fstest.MapFile{
			Data: []byte(`{{define "content"}}{{template "flash" .}}<h1>{{.Title}}</h1>{{end}}`),
		},
		"site/book_detail.html": &fstest.MapFile{
			Data: []byte(`{{define "content"}}{{markdown .Data}}{{end}}`),
		},
	}
}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(Config{TemplatesFS: testTemplatesFS()})
	require.NoError(t, err)
	return r
}

func TestRender(t *testing.T) {
	r := newTestRenderer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	err := r.Render(rec, req, "site/home", TemplateData{Title: "Catalog"})

	require.NoError(t, err)
	assert.Contains(t, rec.Body.String(), "<h1>Catalog</h1>")
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestRenderUnknownTemplate(t *testing.T) {
	r := newTestRenderer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	err := r.Render(rec, req, "site/missing", TemplateData{})

	assert.Error(t, err)
}

func TestRenderMarkdownSanitized(t *testing.T) {
	r := newTestRenderer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	err := r.Render(rec, req, "site/book_detail",
		TemplateData{Data: "**bold** <script>alert(1)</script>"})

	require.NoError(t, err)
	assert.Contains(t, rec.Body.String(), "<strong>bold</strong>")
	assert.NotContains(t, rec.Body.String(), "<script>")
}
