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

// PostService defines the business logic for posts
type PostService interface {
	List(filter repository.PostFilter, page, pageSize int) (*Page[models.Post], error)
	Get(id uint) (*models.Post, error)
	Create(ctx context.Context, userID uint, input PostInput) (*models.Post, error)
	Update(ctx context.Context, userID, id uint, input PostInput) (*models.Post, error)
	Delete(userID, id uint) error
}

// PostInput carries the writable fields of a post. Nil fields are left unchanged on update.
type PostInput struct {
	Text  *string
	Image *storage.Upload
	File  *storage.Upload
}

type postService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	attachments *attachments
	pageSize    int
	logger      *slog.Logger
}

// NewPostService creates a new post service instance
func NewPostService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	files storage.Storage,
	pool *worker.Pool,
	cfg *config.Config,
	logger *slog.Logger,
) PostService {
	return &postService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		attachments: &attachments{files: files, pool: pool, logger: logger},
		pageSize:    int(cfg.PageSize),
		logger:      logger,
	}
}

func (s *postService) List(filter repository.PostFilter, page, pageSize int) (*Page[models.Post], error) {
	number, size, offset, err := normalizePage(page, pageSize, s.pageSize)
	if err != nil {
		return nil, err
	}

	posts, total, err := s.postRepo.List(filter, offset, size)
	if err != nil {
		s.logger.Error("❌ [PostService] Failed to list posts", "error", err)
		return nil, err
	}
	if err := checkPage(number, len(posts)); err != nil {
		return nil, err
	}

	return &Page[models.Post]{Items: posts, Total: total, Number: number, PageSize: size}, nil
}

func (s *postService) Get(id uint) (*models.Post, error) {
	return s.postRepo.FindByID(id)
}

func (s *postService) Create(ctx context.Context, userID uint, input PostInput) (*models.Post, error) {
	if input.Text == nil || strings.TrimSpace(*input.Text) == "" {
		return nil, newValidationError("text", "This field is required.")
	}

	post := &models.Post{UserID: userID, Text: *input.Text}

	var err error
	if post.Image, err = s.attachments.save(ctx, dirPostImages, input.Image); err != nil {
		return nil, err
	}
	if post.File, err = s.attachments.save(ctx, dirPostFiles, input.File); err != nil {
		s.attachments.discard(deref(post.Image))
		return nil, err
	}

	if err := s.postRepo.Create(post); err != nil {
		s.logger.Error("❌ [PostService] Failed to create post", "error", err)
		s.attachments.discard(post.Attachments()...)
		return nil, err
	}

	s.logger.Info("✅ [PostService] Post created", "post_id", post.ID, "user_id", userID)
	return post, nil
}

func (s *postService) Update(ctx context.Context, userID, id uint, input PostInput) (*models.Post, error) {
	post, err := s.owned(userID, id)
	if err != nil {
		return nil, err
	}

	if input.Text != nil {
		if strings.TrimSpace(*input.Text) == "" {
			return nil, newValidationError("text", "This field may not be blank.")
		}
		post.Text = *input.Text
	}

	// fresh holds uploads of this call, removed again if the update fails
	var stale, fresh []string
	if input.Image != nil {
		url, err := s.attachments.save(ctx, dirPostImages, input.Image)
		if err != nil {
			return nil, err
		}
		fresh = append(fresh, deref(url))
		stale = append(stale, deref(post.Image))
		post.Image = url
	}
	if input.File != nil {
		url, err := s.attachments.save(ctx, dirPostFiles, input.File)
		if err != nil {
			s.attachments.discard(fresh...)
			return nil, err
		}
		fresh = append(fresh, deref(url))
		stale = append(stale, deref(post.File))
		post.File = url
	}

	if err := s.postRepo.Update(post); err != nil {
		s.attachments.discard(fresh...)
		s.logger.Error("❌ [PostService] Failed to update post", "error", err, "post_id", id)
		return nil, err
	}
	s.attachments.discard(stale...)

	s.logger.Info("✅ [PostService] Post updated", "post_id", id)
	return post, nil
}

// Delete removes the post with its comments, then their attachments in the background
func (s *postService) Delete(userID, id uint) error {
	post, err := s.owned(userID, id)
	if err != nil {
		return err
	}

	comments, err := s.commentRepo.ListByPost(id)
	if err != nil {
		return err
	}

	if err := s.postRepo.Delete(id); err != nil {
		s.logger.Error("❌ [PostService] Failed to delete post", "error", err, "post_id", id)
		return err
	}

	urls := post.Attachments()
	for i := range comments {
		urls = append(urls, comments[i].Attachments()...)
	}
	s.attachments.discard(urls...)

	s.logger.Info("🗑️ [PostService] Post deleted", "post_id", id, "comments", len(comments))
	return nil
}

func (s *postService) owned(userID, id uint) (*models.Post, error) {
	post, err := s.postRepo.FindByID(id)
	if err != nil {
		if !errors.Is(err, repository.ErrPostNotFound) {
			s.logger.Error("❌ [PostService] Database error", "error", err)
		}
		return nil, err
	}
	if post.UserID != userID {
		s.logger.Warn("⚠️ [PostService] Non-author tried to modify post", "post_id", id, "user_id", userID)
		return nil, ErrForbidden
	}
	return post, nil
}
