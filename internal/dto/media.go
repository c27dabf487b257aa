package dto

import "time"

// MediaUploadResponse reports where an uploaded audio file can be streamed from.
type MediaUploadResponse struct {
	Path        string    `json:"path"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
