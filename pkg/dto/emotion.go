package dto

// EntryResponse is one emotion log entry.
type EntryResponse struct {
	ID    int64  `json:"id"`
	Date  string `json:"date"`
	Time  string `json:"time"`
	Label string `json:"label"`
}

type EntryListResponse struct {
	Entries []EntryResponse `json:"entries"`
	Total   int             `json:"total"`
}

// ClassifyResponse is the outcome of one image upload. Detected=false
// with the Undetected label is a valid result, not an error, and no
// entry is appended.
type ClassifyResponse struct {
	Detected bool           `json:"detected"`
	Label    string         `json:"label"`
	Entry    *EntryResponse `json:"entry,omitempty"`
}

// SimilarEntryResponse is a log entry ranked by mood-profile similarity.
type SimilarEntryResponse struct {
	EntryResponse
	Score float32 `json:"score"`
}

type SimilarListResponse struct {
	Entries []SimilarEntryResponse `json:"entries"`
	Total   int                    `json:"total"`
}

// WSEvent is a WebSocket message for real-time dashboard delivery.
type WSEvent struct {
	Type   string      `json:"type"`
	Handle string      `json:"handle"`
	Data   interface{} `json:"data"`
}
