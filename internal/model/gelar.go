package model

import "time"

// GelarPost is a student submission shown in the public gallery.
//
// Submissions start unapproved; the gallery only ever lists posts with
// Approved set to true.
type GelarPost struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	ImageURL  string    `json:"imageUrl"`
	Likes     int       `json:"likes"`
	Approved  bool      `json:"approved"`
	AuthorID  string    `json:"authorId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
