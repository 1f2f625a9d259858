package model

import "time"

// Quote is an image card with a caption, managed from the admin dashboard.
// Image holds the public URL returned by the blob store.
type Quote struct {
	ID        string    `json:"id"`
	Caption   string    `json:"caption"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
