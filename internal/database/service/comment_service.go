package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/spatalkback/talkback/internal/config"
	"github.com/spatalkback/talkback/internal/database/models"
	"github.com/spatalkback/talkback/internal/database/repository"
	"github.com/spatalkback/talkback/internal/storage"
	"github.com/spatalkback/talkback/internal/worker"
)

// CommentService defines the business logic for comments and replies
type CommentService interface {
	List(page, pageSize int) (*Page[models.Comment], error)
	ListByPost(postID uint) ([]models.Comment, error)
	Get(id uint) (*models.Comment, error)
	Create(ctx context.Context, userID uint, input CommentInput) (*models.Comment, error)
	Update(ctx context.Context, userID, id uint, input CommentInput) (*models.Comment, error)
	Delete(userID, id uint) error
}

// CommentInput carries the writable fields of a comment.
// PostID and ParentID are only read on create.
type CommentInput struct {
	PostID   uint
	ParentID *uint
	Text     *string
	Image    *storage.Upload
	File     *storage.Upload
}

type commentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	attachments *attachments
	pageSize    int
	logger      *slog.Logger
}

// NewCommentService creates a new comment service instance
func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	files storage.Storage,
	pool *worker.Pool,
	cfg *config.Config,
	logger *slog.Logger,
) CommentService {
	return &commentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		attachments: &attachments{files: files, pool: pool, logger: logger},
		pageSize:    int(cfg.PageSize),
		logger:      logger,
	}
}

func (s *commentService) List(page, pageSize int) (*Page[models.Comment], error) {
	number, size, offset, err := normalizePage(page, pageSize, s.pageSize)
	if err != nil {
		return nil, err
	}

	comments, total, err := s.commentRepo.List(offset, size)
	if err != nil {
		s.logger.Error("❌ [CommentService] Failed to list comments", "error", err)
		return nil, err
	}
	if err := checkPage(number, len(comments)); err != nil {
		return nil, err
	}

	return &Page[models.Comment]{Items: comments, Total: total, Number: number, PageSize: size}, nil
}

// ListByPost returns every comment of the post; an unknown post yields an empty list
func (s *commentService) ListByPost(postID uint) ([]models.Comment, error) {
	return s.commentRepo.ListByPost(postID)
}

func (s *commentService) Get(id uint) (*models.Comment, error) {
	return s.commentRepo.FindByID(id)
}

func (s *commentService) Create(ctx context.Context, userID uint, input CommentInput) (*models.Comment, error) {
	if err := s.validateCreate(input); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:   input.PostID,
		ParentID: input.ParentID,
		UserID:   userID,
		Text:     *input.Text,
	}

	var err error
	if comment.Image, err = s.attachments.save(ctx, dirCommentImages, input.Image); err != nil {
		return nil, err
	}
	if comment.File, err = s.attachments.save(ctx, dirCommentFiles, input.File); err != nil {
		s.attachments.discard(deref(comment.Image))
		return nil, err
	}

	if err := s.commentRepo.Create(comment); err != nil {
		s.logger.Error("❌ [CommentService] Failed to create comment", "error", err)
		s.attachments.discard(comment.Attachments()...)
		return nil, err
	}

	s.logger.Info("✅ [CommentService] Comment created",
		"comment_id", comment.ID,
		"post_id", comment.PostID,
		"reply", comment.IsReply(),
	)
	return comment, nil
}

func (s *commentService) validateCreate(input CommentInput) error {
	verr := &ValidationError{}
	if input.Text == nil || strings.TrimSpace(*input.Text) == "" {
		verr.add("text", "This field is required.")
	}

	if input.PostID == 0 {
		verr.add("post", "This field is required.")
	} else if _, err := s.postRepo.FindByID(input.PostID); err != nil {
		if !errors.Is(err, repository.ErrPostNotFound) {
			return err
		}
		verr.add("post", "Post does not exist.")
	}

	if input.ParentID != nil {
		parent, err := s.commentRepo.FindByID(*input.ParentID)
		switch {
		case errors.Is(err, repository.ErrCommentNotFound):
			verr.add("parent", "Parent comment does not exist.")
		case err != nil:
			return err
		case parent.PostID != input.PostID:
			verr.add("parent", "Parent comment belongs to another post.")
		}
	}

	if !verr.empty() {
		return verr
	}
	return nil
}

func (s *commentService) Update(ctx context.Context, userID, id uint, input CommentInput) (*models.Comment, error) {
	comment, err := s.owned(userID, id)
	if err != nil {
		return nil, err
	}

	if input.Text != nil {
		if strings.TrimSpace(*input.Text) == "" {
			return nil, newValidationError("text", "This field may not be blank.")
		}
		comment.Text = *input.Text
	}

	// fresh holds uploads of this call, removed again if the update fails
	var stale, fresh []string
	if input.Image != nil {
		url, err := s.attachments.save(ctx, dirCommentImages, input.Image)
		if err != nil {
			return nil, err
		}
		fresh = append(fresh, deref(url))
		stale = append(stale, deref(comment.Image))
		comment.Image = url
	}
	if input.File != nil {
		url, err := s.attachments.save(ctx, dirCommentFiles, input.File)
		if err != nil {
			s.attachments.discard(fresh...)
			return nil, err
		}
		fresh = append(fresh, deref(url))
		stale = append(stale, deref(comment.File))
		comment.File = url
	}

	if err := s.commentRepo.Update(comment); err != nil {
		s.attachments.discard(fresh...)
		s.logger.Error("❌ [CommentService] Failed to update comment", "error", err, "comment_id", id)
		return nil, err
	}
	s.attachments.discard(stale...)

	s.logger.Info("✅ [CommentService] Comment updated", "comment_id", id)
	return comment, nil
}

// Delete removes the comment and all of its replies
func (s *commentService) Delete(userID, id uint) error {
	if _, err := s.owned(userID, id); err != nil {
		return err
	}

	subtree, err := s.commentRepo.Subtree(id)
	if err != nil {
		return err
	}

	ids := make([]uint, 0, len(subtree))
	var urls []string
	for i := range subtree {
		ids = append(ids, subtree[i].ID)
		urls = append(urls, subtree[i].Attachments()...)
	}

	if err := s.commentRepo.DeleteByIDs(ids); err != nil {
		s.logger.Error("❌ [CommentService] Failed to delete comments", "error", err, "comment_id", id)
		return err
	}
	s.attachments.discard(urls...)

	s.logger.Info("🗑️ [CommentService] Comment deleted", "comment_id", id, "removed", len(ids))
	return nil
}

func (s *commentService) owned(userID, id uint) (*models.Comment, error) {
	comment, err := s.commentRepo.FindByID(id)
	if err != nil {
		if !errors.Is(err, repository.ErrCommentNotFound) {
			s.logger.Error("❌ [CommentService] Database error", "error", err)
		}
		return nil, err
	}
	if comment.UserID != userID {
		s.logger.Warn("⚠️ [CommentService] Non-author tried to modify comment", "comment_id", id, "user_id", userID)
		return nil, ErrForbidden
	}
	return comment, nil
}
