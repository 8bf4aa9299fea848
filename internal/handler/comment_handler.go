package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/spatalkback/talkback/internal/database/service"
	"github.com/spatalkback/talkback/internal/middleware"
	"github.com/spatalkback/talkback/internal/storage"
)

// CommentHandler handles HTTP requests for comments
type CommentHandler struct {
	comments    service.CommentService
	maxFileSize int64
	logger      *slog.Logger
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(comments service.CommentService, maxFileSize int64, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		comments:    comments,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

type commentJSON struct {
	Post   uint    `json:"post"`
	Parent *uint   `json:"parent"`
	Text   *string `json:"text"`
}

// List handles GET /comments/
func (h *CommentHandler) List(c *gin.Context) {
	page, pageSize, ok := getPagination(c)
	if !ok {
		return
	}

	result, err := h.comments.List(page, pageSize)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, paginate(result, mapComments(result.Items), func(n int) *string {
		return pageLink(c, n)
	}))
}

// Get handles GET /comments/:id/
func (h *CommentHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	comment, err := h.comments.Get(id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, mapCommentToResponse(comment))
}

// Create handles POST /comments/
func (h *CommentHandler) Create(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	input, err := h.bindInput(c)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	comment, err := h.comments.Create(c.Request.Context(), userID, input)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	h.logger.Info("💬 [CommentHandler] Comment created", "comment_id", comment.ID, "post_id", comment.PostID)
	c.JSON(http.StatusCreated, mapCommentToResponse(comment))
}

// Update handles PUT and PATCH /comments/:id/. PUT requires text.
func (h *CommentHandler) Update(c *gin.Context) {
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

	comment, err := h.comments.Update(c.Request.Context(), userID, id, input)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, mapCommentToResponse(comment))
}

// Delete handles DELETE /comments/:id/
func (h *CommentHandler) Delete(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.comments.Delete(userID, id); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// bindInput reads a comment from a multipart form (with attachments) or a JSON body
func (h *CommentHandler) bindInput(c *gin.Context) (service.CommentInput, error) {
	var input service.CommentInput

	if !isMultipart(c) {
		var body commentJSON
		if err := c.ShouldBindJSON(&body); err != nil {
			return input, fieldError("non_field_errors", "Invalid data.")
		}
		input.PostID = body.Post
		input.ParentID = body.Parent
		input.Text = body.Text
		return input, nil
	}

	verr := &service.ValidationError{Fields: map[string]string{}}
	if raw := c.PostForm("post"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			verr.Fields["post"] = "Incorrect type. Expected pk value."
		}
		input.PostID = uint(id)
	}
	if raw := c.PostForm("parent"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			verr.Fields["parent"] = "Incorrect type. Expected pk value."
		}
		parent := uint(id)
		input.ParentID = &parent
	}
	if len(verr.Fields) > 0 {
		return input, verr
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
