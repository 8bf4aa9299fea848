package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/spatalkback/talkback/internal/database/models"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(comment *models.Comment) error
	FindByID(id uint) (*models.Comment, error)
	List(offset, limit int) ([]models.Comment, int64, error)
	ListByPost(postID uint) ([]models.Comment, error)
	Update(comment *models.Comment) error
	Subtree(id uint) ([]models.Comment, error)
	DeleteByIDs(ids []uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository instance
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(comment *models.Comment) error {
	if err := r.db.Omit("User", "Post").Create(comment).Error; err != nil {
		return err
	}
	return r.db.Preload("User.Profile").First(comment, comment.ID).Error
}

func (r *commentRepository) FindByID(id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.Preload("User.Profile").First(&comment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	return &comment, nil
}

// List returns one page of all comments, newest first
func (r *commentRepository) List(offset, limit int) ([]models.Comment, int64, error) {
	var total int64
	if err := r.db.Model(&models.Comment{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var comments []models.Comment
	err := r.db.Preload("User.Profile").
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// ListByPost returns every comment of a post, replies included, newest first
func (r *commentRepository) ListByPost(postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.Preload("User.Profile").
		Where("post_id = ?", postID).
		Order("created_at DESC, id DESC").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) Update(comment *models.Comment) error {
	return r.db.Model(comment).
		Select("Text", "Image", "File", "UpdatedAt").
		Updates(comment).Error
}

// Subtree returns the comment and all of its transitive replies
func (r *commentRepository) Subtree(id uint) ([]models.Comment, error) {
	root, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}

	all := []models.Comment{*root}
	frontier := []uint{root.ID}
	for len(frontier) > 0 {
		var replies []models.Comment
		if err := r.db.Where("parent_id IN ?", frontier).Find(&replies).Error; err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, reply := range replies {
			all = append(all, reply)
			frontier = append(frontier, reply.ID)
		}
	}
	return all, nil
}

func (r *commentRepository) DeleteByIDs(ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.Delete(&models.Comment{}, ids).Error
}

// Repository errors
var (
	ErrCommentNotFound = errors.New("comment not found")
)
