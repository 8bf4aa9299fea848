package models

import (
	"time"
)

// Comment is a reply to a post, or to another comment on the same post
type Comment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	PostID    uint      `gorm:"not null;index" json:"post"`
	ParentID  *uint     `gorm:"index" json:"parent"`
	UserID    uint      `gorm:"not null;index" json:"-"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Image     *string   `json:"image"`
	File      *string   `json:"file"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	User    User      `gorm:"foreignKey:UserID" json:"user"`
	Post    *Post     `gorm:"foreignKey:PostID" json:"-"`
	Replies []Comment `gorm:"foreignKey:ParentID" json:"-"`
}

// TableName overrides the table name
func (Comment) TableName() string {
	return "comments"
}

// IsReply reports whether the comment answers another comment
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}

// Attachments returns the stored attachment URLs of the comment
func (c *Comment) Attachments() []string {
	return collectAttachments(c.Image, c.File)
}
