package models

import (
	"time"
)

// Post is a top-level message on the board
type Post struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"-"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Image     *string   `json:"image"`
	File      *string   `json:"file"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	User     User      `gorm:"foreignKey:UserID" json:"user"`
	Comments []Comment `gorm:"foreignKey:PostID" json:"-"`
}

// TableName overrides the table name
func (Post) TableName() string {
	return "posts"
}

// Attachments returns the stored attachment URLs of the post
func (p *Post) Attachments() []string {
	return collectAttachments(p.Image, p.File)
}

func collectAttachments(refs ...*string) []string {
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref != nil && *ref != "" {
			out = append(out, *ref)
		}
	}
	return out
}
