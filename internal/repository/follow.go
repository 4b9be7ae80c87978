package repository

import (
	"context"
	"errors"

	"twitthon/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository defines persistence operations for the follow graph.
type FollowRepository interface {
	// Follow inserts the edge and reports whether it was newly created.
	Follow(ctx context.Context, followerID, followingID uint) (bool, error)
	// Unfollow removes the edge and reports whether one existed.
	Unfollow(ctx context.Context, followerID, followingID uint) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error)
	ListFollowing(ctx context.Context, followerID uint, limit, offset int) ([]models.User, int64, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository returns a new FollowRepository implementation.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Follow(ctx context.Context, followerID, followingID uint) (bool, error) {
	edge := models.Follow{FollowerID: followerID, FollowingID: followingID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(&edge)
	if res.Error != nil {
		if errors.Is(res.Error, models.ErrSelfFollow) {
			return false, models.NewValidationError("You cannot follow yourself")
		}
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) Unfollow(ctx context.Context, followerID, followingID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// ListFollowing returns the users followerID follows, most recently
// followed first.
func (r *followRepository) ListFollowing(ctx context.Context, followerID uint, limit, offset int) ([]models.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", followerID).
		Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	users := make([]models.User, 0, limit)
	if total == 0 {
		return users, 0, nil
	}

	err := r.db.WithContext(ctx).
		Joins("JOIN follows ON follows.following_id = users.id").
		Where("follows.follower_id = ?", followerID).
		Order("follows.created_at DESC").
		Order("follows.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return users, total, nil
}
