package repository

import (
	"context"
	"errors"

	"twitthon/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository keeps like rows and the denormalized Post.Likes counter
// in step. Every method that touches both does so in one transaction.
type LikeRepository interface {
	// Like records the like and returns whether it was new plus the
	// post's counter after the call.
	Like(ctx context.Context, userID, postID uint) (bool, int, error)
	// Unlike removes the like and returns whether one existed plus the
	// post's counter after the call.
	Unlike(ctx context.Context, userID, postID uint) (bool, int, error)
	// LikedPostIDs returns the subset of postIDs that userID has liked.
	LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository returns a new LikeRepository implementation.
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Like(ctx context.Context, userID, postID uint) (bool, int, error) {
	var created bool
	var likes int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensurePost(tx, postID); err != nil {
			return err
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Omit(clause.Associations).
			Create(&models.Like{UserID: userID, PostID: postID})
		if res.Error != nil {
			return res.Error
		}
		created = res.RowsAffected > 0

		if created {
			// UpdateColumn skips hooks and issues a single relative update.
			if err := tx.Model(&models.Post{}).Where("id = ?", postID).
				UpdateColumn("likes", gorm.Expr("likes + ?", 1)).Error; err != nil {
				return err
			}
		}
		return readLikes(tx, postID, &likes)
	})
	if err != nil {
		return false, 0, wrapTxError(err)
	}
	return created, likes, nil
}

func (r *likeRepository) Unlike(ctx context.Context, userID, postID uint) (bool, int, error) {
	var removed bool
	var likes int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensurePost(tx, postID); err != nil {
			return err
		}
		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected > 0

		if removed {
			if err := tx.Model(&models.Post{}).Where("id = ? AND likes > 0", postID).
				UpdateColumn("likes", gorm.Expr("likes - ?", 1)).Error; err != nil {
				return err
			}
		}
		return readLikes(tx, postID, &likes)
	})
	if err != nil {
		return false, 0, wrapTxError(err)
	}
	return removed, likes, nil
}

func (r *likeRepository) LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error) {
	liked := make(map[uint]bool, len(postIDs))
	if len(postIDs) == 0 {
		return liked, nil
	}

	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

func ensurePost(tx *gorm.DB, postID uint) error {
	var count int64
	if err := tx.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return models.NewNotFoundError("Post", postID)
	}
	return nil
}

func readLikes(tx *gorm.DB, postID uint, dest *int) error {
	return tx.Model(&models.Post{}).Where("id = ?", postID).Select("likes").Scan(dest).Error
}

// wrapTxError passes app errors raised inside a transaction through and
// wraps everything else as internal.
func wrapTxError(err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}
