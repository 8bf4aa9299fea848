package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/spatalkback/talkback/internal/database/repository"
	"github.com/spatalkback/talkback/internal/database/service"
	"github.com/spatalkback/talkback/internal/middleware"
	"github.com/spatalkback/talkback/internal/storage"
)

// PostHandler handles HTTP requests for posts
type PostHandler struct {
	posts       service.PostService
	comments    service.CommentService
	maxFileSize int64
	logger      *slog.Logger
}

// NewPostHandler creates a new post handler
func NewPostHandler(posts service.PostService, comments service.CommentService, maxFileSize int64, logger *slog.Logger) *PostHandler {
	return &PostHandler{
		posts:       posts,
		comments:    comments,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

type postJSON struct {
	Text *string `json:"text"`
}

// List handles GET /posts/?username=&email=&date_order=&page=&page_size=
func (h *PostHandler) List(c *gin.Context) {
	filter := repository.PostFilter{
		Username:  strings.TrimSpace(c.Query("username")),
		Email:     strings.TrimSpace(c.Query("email")),
		Ascending: ascending(c.Query("date_order")),
	}
	page, pageSize, ok := getPagination(c)
	if !ok {
		return
	}

	result, err := h.posts.List(filter, page, pageSize)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, paginate(result, mapPosts(result.Items), func(n int) *string {
		return pageLink(c, n)
	}))
}

// Get handles GET /posts/:id/
func (h *PostHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	post, err := h.posts.Get(id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, mapPostToResponse(post))
}

// Create handles POST /posts/
func (h *PostHandler) Create(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	input, err := h.bindInput(c)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	post, err := h.posts.Create(c.Request.Context(), userID, input)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	h.logger.Info("📝 [PostHandler] Post created", "post_id", post.ID, "user_id", userID)
	c.JSON(http.StatusCreated, mapPostToResponse(post))
}

// Update handles PUT and PATCH /posts/:id/. PUT requires text.
func (h *PostHandler) Update(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	input, err := h.bindInput(c)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	if c.Request.Method == http.MethodPut && input.Text == nil {
		c.JSON(http.StatusBadRequest, gin.H{"text": "This field is required."})
		return
	}

	post, err := h.posts.Update(c.Request.Context(), userID, id, input)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, mapPostToResponse(post))
}

// Delete handles DELETE /posts/:id/
func (h *PostHandler) Delete(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.posts.Delete(userID, id); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Comments handles GET /posts/:id/comments/
func (h *PostHandler) Comments(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	comments, err := h.comments.ListByPost(id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, mapComments(comments))
}

// bindInput reads a post from a multipart form (with attachments) or a JSON body
func (h *PostHandler) bindInput(c *gin.Context) (service.PostInput, error) {
	var input service.PostInput

	if !isMultipart(c) {
		var body postJSON
		if err := c.ShouldBindJSON(&body); err != nil {
			return input, fieldError("non_field_errors", "Invalid data.")
		}
		input.Text = body.Text
		return input, nil
	}

	if text, ok := c.GetPostForm("text"); ok {
		input.Text = &text
	}

	var err error
	if input.Image, err = readUpload(c, "image", storage.KindImage, h.maxFileSize); err != nil {
		return input, err
	}
	if input.File, err = readUpload(c, "file", storage.KindFile, h.maxFileSize); err != nil {
		return input, err
	}
	return input, nil
}

// ascending reports whether date_order asks for oldest first; any value but desc does
func ascending(dateOrder string) bool {
	return dateOrder != "" && dateOrder != "desc"
}
