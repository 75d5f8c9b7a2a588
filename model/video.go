// Package model defines database models
package model

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether v is one of the known visibility values.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

type VideoAsset struct {
	ID      string `gorm:"primaryKey" json:"id"`
	OwnerID string `gorm:"index" json:"owner_id"`

	Title       string `json:"title"`
	Description string `json:"description"`

	// Both URLs are written in one go when the upload pipeline finishes.
	// A persisted record never has only one of them set.
	MediaURL     string `json:"media_url"`
	ThumbnailURL string `json:"thumbnail_url"`

	Visibility Visibility `gorm:"index" json:"visibility"`

	// Set of user IDs, see StringSlice for how it's stored
	Likes    StringSlice `json:"likes"`
	Comments []Comment   `gorm:"foreignKey:VideoID" json:"comments"`

	Views           int64   `json:"views"`
	DurationSeconds float64 `json:"duration_seconds"`
	FileSizeBytes   int64   `json:"file_size_bytes"`

	// Unix second timestamps
	CreatedAt int64 `gorm:"not null;index" json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

type Comment struct {
	ID       uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	VideoID  string `gorm:"index" json:"-"`
	AuthorID string `json:"author_id"`
	Body     string `json:"body"`
	// Keeps comments in posting order when preloaded
	Position  int   `gorm:"index" json:"position"`
	CreatedAt int64 `json:"created_at"`
}
