package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/moodlog/internal/vision"
	"github.com/your-org/moodlog/pkg/dto"
)

func newClassifyRouter(classify classifyFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewEmotionHandler(nil, nil, classify)
	r.POST("/accounts/:handle/classify", h.Classify)
	return r
}

func multipartImage(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestClassifyRejectsMissingFile(t *testing.T) {
	r := newClassifyRouter(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/accounts/alice/classify", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassifyRejectsDisallowedExtension(t *testing.T) {
	r := newClassifyRouter(func(data []byte) (vision.Result, error) {
		t.Fatal("pipeline must not run for a rejected upload")
		return vision.Result{}, nil
	})

	body, ct := multipartImage(t, "image", "payload.exe", []byte("boo"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/accounts/alice/classify", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassifyMalformedImage(t *testing.T) {
	r := newClassifyRouter(func(data []byte) (vision.Result, error) {
		return vision.Result{}, vision.ErrDecode
	})

	body, ct := multipartImage(t, "image", "broken.png", []byte("not a png"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/accounts/alice/classify", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassifyUndetectedIsDataNotError(t *testing.T) {
	r := newClassifyRouter(func(data []byte) (vision.Result, error) {
		return vision.Result{Label: vision.Undetected}, nil
	})

	body, ct := multipartImage(t, "image", "empty.jpg", []byte("jpegish"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/accounts/alice/classify", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.ClassifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Detected)
	assert.Equal(t, vision.Undetected, resp.Label)
	assert.Nil(t, resp.Entry, "undetected must never produce a log entry")
}
