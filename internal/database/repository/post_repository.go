package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/spatalkback/talkback/internal/database/models"
)

// PostFilter narrows a post listing
type PostFilter struct {
	Username  string // case-insensitive substring of the author's username
	Email     string // case-insensitive substring of the author's email
	Ascending bool   // oldest first when true, newest first otherwise
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(post *models.Post) error
	FindByID(id uint) (*models.Post, error)
	List(filter PostFilter, offset, limit int) ([]models.Post, int64, error)
	Update(post *models.Post) error
	Delete(id uint) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository instance
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(post *models.Post) error {
	if err := r.db.Omit("User").Create(post).Error; err != nil {
		return err
	}
	return r.db.Preload("User.Profile").First(post, post.ID).Error
}

func (r *postRepository) FindByID(id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.Preload("User.Profile").First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// List returns one page of posts matching filter together with the total match count
func (r *postRepository) List(filter PostFilter, offset, limit int) ([]models.Post, int64, error) {
	var total int64
	if err := r.db.Model(&models.Post{}).Scopes(filter.scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "posts.created_at DESC, posts.id DESC"
	if filter.Ascending {
		order = "posts.created_at ASC, posts.id ASC"
	}

	var posts []models.Post
	err := r.db.Scopes(filter.scope).
		Select("posts.*").
		Preload("User.Profile").
		Order(order).
		Offset(offset).
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

func (f PostFilter) scope(db *gorm.DB) *gorm.DB {
	db = db.Joins("JOIN users ON users.id = posts.user_id")
	if f.Username != "" {
		db = db.Where("LOWER(users.username) LIKE ? ESCAPE '\\'", likePattern(f.Username))
	}
	if f.Email != "" {
		db = db.Where("LOWER(users.email) LIKE ? ESCAPE '\\'", likePattern(f.Email))
	}
	return db
}

func (r *postRepository) Update(post *models.Post) error {
	return r.db.Model(post).
		Select("Text", "Image", "File", "UpdatedAt").
		Updates(post).Error
}

// Delete removes the post together with every comment attached to it
func (r *postRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Post{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPostNotFound
		}
		return nil
	})
}

func likePattern(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

// Repository errors
var (
	ErrPostNotFound = errors.New("post not found")
)
