package repository

import (
	"context"
	"errors"

	"twitthon/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	// UpdateBody writes Content and Image only; the like counter is never
	// rewritten from a possibly stale struct.
	UpdateBody(ctx context.Context, post *models.Post) error
	// Delete removes the post and its likes in one transaction.
	Delete(ctx context.Context, id uint) error
	ListByAuthor(ctx context.Context, authorID uint, limit, offset int) ([]models.Post, int64, error)
	// Feed lists posts authored by userID or by anyone userID follows.
	Feed(ctx context.Context, userID uint, limit, offset int) ([]models.Post, int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(post).Error; err != nil {
		if errors.Is(err, models.ErrEmptyPost) {
			return models.NewValidationError(err.Error())
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("User").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) UpdateBody(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Model(post).Updates(map[string]any{
		"content": post.Content,
		"image":   post.Image,
	}).Error
	if err != nil {
		if errors.Is(err, models.ErrEmptyPost) {
			return models.NewValidationError(err.Error())
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
		}
		return nil
	})
	if err != nil {
		return wrapTxError(err)
	}
	return nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID uint, limit, offset int) ([]models.Post, int64, error) {
	return r.page(ctx, r.db.WithContext(ctx).Model(&models.Post{}).Where("user_id = ?", authorID), limit, offset)
}

func (r *postRepository) Feed(ctx context.Context, userID uint, limit, offset int) ([]models.Post, int64, error) {
	following := r.db.Model(&models.Follow{}).Select("following_id").Where("follower_id = ?", userID)
	scope := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("user_id = ?", userID).
		Or("user_id IN (?)", following)
	return r.page(ctx, scope, limit, offset)
}

// page counts scope and loads one newest-first window of it with authors.
func (r *postRepository) page(ctx context.Context, scope *gorm.DB, limit, offset int) ([]models.Post, int64, error) {
	var total int64
	if err := scope.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	posts := make([]models.Post, 0, limit)
	if total == 0 {
		return posts, 0, nil
	}

	err := scope.Session(&gorm.Session{}).
		Preload("User").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, total, nil
}
