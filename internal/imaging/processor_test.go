// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testJPEG encodes a solid-color image of the given size.
func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestProcessCover(t *testing.T) {
	p := NewProcessor(t.TempDir())
	data := testJPEG(t, 800, 1200)

	result, err := p.ProcessCover(bytes.NewReader(data), "cover-uuid", "cover.jpg")
	require.NoError(t, err)

	assert.Equal(t, 800, result.Width)
	assert.Equal(t, 1200, result.Height)
	assert.Equal(t, MimeTypeJPEG, result.MimeType)

	_, err = os.Stat(result.FilePath)
	assert.NoError(t, err)
}

func TestProcessCoverRejectsGarbage(t *testing.T) {
	p := NewProcessor(t.TempDir())

	_, err := p.ProcessCover(bytes.NewReader([]byte("not an image")), "x", "x.jpg")
	assert.Error(t, err)
}

func TestCreateAllVariants(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor(dir)
	data := testJPEG(t, 800, 1200)

	original, err := p.ProcessCover(bytes.NewReader(data), "cover-uuid", "cover.jpg")
	require.NoError(t, err)

	variants, err := p.CreateAllVariants(original.FilePath, "cover-uuid", "cover.jpg")
	require.NoError(t, err)
	require.Len(t, variants, 2)

	for _, v := range variants {
		assert.LessOrEqual(t, v.Width, 600)
		_, err := os.Stat(v.FilePath)
		assert.NoError(t, err)
	}
}

func TestCreateVariantSkipsSmallSource(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor(dir)
	data := testJPEG(t, 100, 150)

	original, err := p.ProcessCover(bytes.NewReader(data), "cover-uuid", "cover.jpg")
	require.NoError(t, err)

	result, err := p.CreateVariant(original.FilePath, "cover-uuid", "cover.jpg",
		CoverVariants["covers"], "covers")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestSaveImageFileRejectsTraversal(t *testing.T) {
	p := NewProcessor(t.TempDir())

	_, err := p.saveImageFile(filepath.Join("..", "outside"), "cover.jpg", []byte("data"))
	assert.Error(t, err)
}

func TestDeleteCoverFiles(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor(dir)
	data := testJPEG(t, 800, 1200)

	original, err := p.ProcessCover(bytes.NewReader(data), "cover-uuid", "cover.jpg")
	require.NoError(t, err)
	_, err = p.CreateAllVariants(original.FilePath, "cover-uuid", "cover.jpg")
	require.NoError(t, err)

	require.NoError(t, p.DeleteCoverFiles("cover-uuid"))

	_, err = os.Stat(original.FilePath)
	assert.True(t, os.IsNotExist(err))
}
