package models

import (
	"time"
)

// EmotionLabels is the fixed 7-class vocabulary, in model output order.
var EmotionLabels = []string{"Angry", "Disgusted", "Feared", "Happy", "Neutral", "Sad", "Surprised"}

// IsEmotionLabel reports whether s is one of the seven classes.
func IsEmotionLabel(s string) bool {
	for _, l := range EmotionLabels {
		if s == l {
			return true
		}
	}
	return false
}

// EmotionEvent is published after a successful classification and fanned
// out to dashboard WebSocket clients.
type EmotionEvent struct {
	Handle    string    `json:"handle"`
	Label     string    `json:"label"`
	EntryID   int64     `json:"entry_id"`
	Timestamp time.Time `json:"timestamp"`
}
