package handler

import (
	"time"

	"github.com/spatalkback/talkback/internal/database/models"
	"github.com/spatalkback/talkback/internal/database/service"
)

// Response DTOs
type ProfileResponse struct {
	Photo    *string `json:"photo"`
	HomePage *string `json:"home_page"`
}

type UserResponse struct {
	ID       uint            `json:"id"`
	Username string          `json:"username"`
	Email    string          `json:"email"`
	Profile  ProfileResponse `json:"profile"`
}

type PostResponse struct {
	ID        uint         `json:"id"`
	User      UserResponse `json:"user"`
	Text      string       `json:"text"`
	Image     *string      `json:"image"`
	File      *string      `json:"file"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type CommentResponse struct {
	ID        uint         `json:"id"`
	Post      uint         `json:"post"`
	Parent    *uint        `json:"parent"`
	IsReply   bool         `json:"is_reply"`
	User      UserResponse `json:"user"`
	Text      string       `json:"text"`
	Image     *string      `json:"image"`
	File      *string      `json:"file"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// PaginatedResponse is the envelope of every paged listing
type PaginatedResponse[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

func mapUserToResponse(u *models.User) UserResponse {
	resp := UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
	if u.Profile != nil {
		resp.Profile = ProfileResponse{Photo: u.Profile.Photo, HomePage: u.Profile.HomePage}
	}
	return resp
}

func mapPostToResponse(p *models.Post) PostResponse {
	return PostResponse{
		ID:        p.ID,
		User:      mapUserToResponse(&p.User),
		Text:      p.Text,
		Image:     p.Image,
		File:      p.File,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func mapCommentToResponse(cm *models.Comment) CommentResponse {
	return CommentResponse{
		ID:        cm.ID,
		Post:      cm.PostID,
		Parent:    cm.ParentID,
		IsReply:   cm.IsReply(),
		User:      mapUserToResponse(&cm.User),
		Text:      cm.Text,
		Image:     cm.Image,
		File:      cm.File,
		CreatedAt: cm.CreatedAt,
		UpdatedAt: cm.UpdatedAt,
	}
}

func mapPosts(posts []models.Post) []PostResponse {
	out := make([]PostResponse, 0, len(posts))
	for i := range posts {
		out = append(out, mapPostToResponse(&posts[i]))
	}
	return out
}

func mapComments(comments []models.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, mapCommentToResponse(&comments[i]))
	}
	return out
}

func paginate[M, R any](page *service.Page[M], results []R, link func(int) *string) PaginatedResponse[R] {
	resp := PaginatedResponse[R]{Count: page.Total, Results: results}
	if page.HasNext() {
		resp.Next = link(page.Number + 1)
	}
	if page.HasPrevious() {
		resp.Previous = link(page.Number - 1)
	}
	return resp
}
