package domain

import "time"

// Session is the logged-in identity as reported by the backend.
// A nil *Session means "not logged in".
type Session struct {
	UserID      int64     `json:"id"`
	DisplayName string    `json:"pseudo"`
	CreatedAt   time.Time `json:"created_at"`
}
