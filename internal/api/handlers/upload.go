package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
)

// maxUploadBytes caps a single image upload.
const maxUploadBytes = 10 << 20

// allowedExtensions is the upload allow-list. The decode stage still
// verifies that the bytes are a well-formed raster image.
var allowedExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
}

// allowedUpload reports whether the filename carries an accepted image
// extension, and returns its content type.
func allowedUpload(filename string) (string, bool) {
	ct, ok := allowedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ct, ok
}

// readUpload opens and fully reads one multipart file, enforcing the
// size cap.
func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > maxUploadBytes {
		return nil, fmt.Errorf("file too large: %d bytes", fh.Size)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > maxUploadBytes {
		return nil, fmt.Errorf("file too large")
	}
	return data, nil
}
