package client

import (
	"io"
	"time"
)

type Profile struct {
	Photo    *string `json:"photo"`
	HomePage *string `json:"home_page"`
}

type User struct {
	ID       uint    `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Profile  Profile `json:"profile"`
}

type Post struct {
	ID        uint      `json:"id"`
	User      User      `json:"user"`
	Text      string    `json:"text"`
	Image     *string   `json:"image"`
	File      *string   `json:"file"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Comment struct {
	ID        uint      `json:"id"`
	Post      uint      `json:"post"`
	Parent    *uint     `json:"parent"`
	IsReply   bool      `json:"is_reply"`
	User      User      `json:"user"`
	Text      string    `json:"text"`
	Image     *string   `json:"image"`
	File      *string   `json:"file"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Page is one page of a listing. Next and Previous are absolute URLs.
type Page[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// Captcha is a challenge to answer on login or registration.
type Captcha struct {
	Key   string `json:"captcha_key"`
	Image string `json:"captcha_image"` // PNG data URL
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Attachment is a file sent with a multipart request.
type Attachment struct {
	Filename string
	Content  io.Reader
}

type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Captcha    string `json:"captcha"`
	CaptchaKey string `json:"captcha_key"`
}

type RegisterRequest struct {
	Username   string
	Email      string
	Password   string
	HomePage   string
	Photo      *Attachment
	Captcha    string
	CaptchaKey string
}

type ListPostsOptions struct {
	Username  string
	Email     string
	Ascending bool // oldest first
	Page      int
	PageSize  int
}

// PostRequest is the body of a create or update. A nil Text leaves the text
// unchanged on update.
type PostRequest struct {
	Text  *string
	Image *Attachment
	File  *Attachment
}

type CommentRequest struct {
	Post   uint  // only read on create
	Parent *uint // only read on create
	Text   *string
	Image  *Attachment
	File   *Attachment
}
