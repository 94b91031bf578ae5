package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/moodlog/internal/models"
	"github.com/your-org/moodlog/internal/observability"
	"github.com/your-org/moodlog/internal/queue"
	"github.com/your-org/moodlog/internal/storage"
	"github.com/your-org/moodlog/internal/vision"
	"github.com/your-org/moodlog/pkg/dto"
)

// classifyFunc is the inference boundary: raw image bytes in, one result
// out. Satisfied by (*vision.Pipeline).Classify.
type classifyFunc func(imageData []byte) (vision.Result, error)

type EmotionHandler struct {
	db       *storage.PostgresStore
	producer *queue.Producer
	classify classifyFunc
}

func NewEmotionHandler(db *storage.PostgresStore, producer *queue.Producer, classify classifyFunc) *EmotionHandler {
	return &EmotionHandler{db: db, producer: producer, classify: classify}
}

// Classify accepts a multipart image upload, runs the inference pipeline
// and, when a face was found, appends the label to the account's log.
// The Undetected sentinel is reported as data and never appended.
func (h *EmotionHandler) Classify(c *gin.Context) {
	handle := c.Param("handle")

	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no image file"})
		return
	}

	if _, ok := allowedUpload(fh.Filename); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file type, allowed: png, jpg, jpeg, gif"})
		return
	}

	data, err := readUpload(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	result, err := h.classify(data)
	observability.InferenceDuration.WithLabelValues("classify").Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, vision.ErrDecode) {
			observability.DecodeFailures.Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": "uploaded file is not a valid image"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	observability.ImagesClassified.WithLabelValues(result.Label).Inc()

	if !result.Detected {
		c.JSON(http.StatusOK, dto.ClassifyResponse{Detected: false, Label: vision.Undetected})
		return
	}
	observability.FacesLocated.Inc()

	entry, err := h.db.AppendEntry(c.Request.Context(), handle, result.Label, result.Scores)
	if err != nil {
		if errors.Is(err, storage.ErrUnknownAccount) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	observability.EntriesAppended.Inc()

	if err := h.producer.PublishEmotion(c.Request.Context(), handle, models.EmotionEvent{
		Handle:    handle,
		Label:     entry.Label,
		EntryID:   entry.ID,
		Timestamp: time.Now(),
	}); err != nil {
		slog.Error("publish emotion event", "handle", handle, "error", err)
	}

	c.JSON(http.StatusOK, dto.ClassifyResponse{
		Detected: true,
		Label:    entry.Label,
		Entry:    entryResponse(*entry),
	})
}

// List returns the account's full emotion log in insertion order.
func (h *EmotionHandler) List(c *gin.Context) {
	entries, err := h.db.ListEntries(c.Request.Context(), c.Param("handle"))
	if err != nil {
		if errors.Is(err, storage.ErrUnknownAccount) {
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.EntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, *entryResponse(e))
	}

	c.JSON(http.StatusOK, dto.EntryListResponse{Entries: resp, Total: len(resp)})
}

// Similar returns log entries with the closest mood profile to the given
// entry.
func (h *EmotionHandler) Similar(c *gin.Context) {
	entryID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

	matches, err := h.db.SimilarEntries(c.Request.Context(), c.Param("handle"), entryID, limit)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnknownAccount):
			c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		case errors.Is(err, storage.ErrUnknownEntry):
			c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	resp := make([]dto.SimilarEntryResponse, 0, len(matches))
	for _, m := range matches {
		resp = append(resp, dto.SimilarEntryResponse{
			EntryResponse: *entryResponse(m.LogEntry),
			Score:         m.Score,
		})
	}

	c.JSON(http.StatusOK, dto.SimilarListResponse{Entries: resp, Total: len(resp)})
}

func entryResponse(e models.LogEntry) *dto.EntryResponse {
	return &dto.EntryResponse{
		ID:    e.ID,
		Date:  e.Date.Format("2006-01-02"),
		Time:  e.Time,
		Label: e.Label,
	}
}
