package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedUpload(t *testing.T) {
	for _, name := range []string{"face.png", "face.jpg", "face.JPEG", "face.Gif"} {
		ct, ok := allowedUpload(name)
		assert.True(t, ok, name)
		assert.NotEmpty(t, ct, name)
	}

	for _, name := range []string{"face", "face.bmp", "face.svg", "face.png.exe", ".png.txt", ""} {
		_, ok := allowedUpload(name)
		assert.False(t, ok, name)
	}
}

func TestAllowedUploadContentType(t *testing.T) {
	ct, _ := allowedUpload("a.jpg")
	assert.Equal(t, "image/jpeg", ct)

	ct, _ = allowedUpload("a.png")
	assert.Equal(t, "image/png", ct)
}
