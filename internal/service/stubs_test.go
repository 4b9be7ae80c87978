package service

import (
	"context"
	"errors"
	"testing"

	"twitthon/internal/models"

	"github.com/stretchr/testify/assert"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn          func(context.Context, uint) (*models.User, error)
	getByUsernameFn    func(context.Context, string) (*models.User, error)
	getCredentialsFn   func(context.Context, string) (*models.User, error)
	existsByUsernameFn func(context.Context, string) (bool, error)
	createFn           func(context.Context, *models.User) error
	countFn            func(context.Context) (int64, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetCredentials(ctx context.Context, username string) (*models.User, error) {
	return s.getCredentialsFn(ctx, username)
}
func (s *userRepoStub) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.existsByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return nil, models.NewNotFoundError("User", id)
		},
		getByUsernameFn: func(_ context.Context, username string) (*models.User, error) {
			return nil, models.NewNotFoundError("User", username)
		},
		getCredentialsFn:   func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		existsByUsernameFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
		createFn:           func(_ context.Context, _ *models.User) error { return nil },
		countFn:            func(_ context.Context) (int64, error) { return 0, nil },
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn       func(context.Context, *models.Post) error
	getByIDFn      func(context.Context, uint) (*models.Post, error)
	updateBodyFn   func(context.Context, *models.Post) error
	deleteFn       func(context.Context, uint) error
	listByAuthorFn func(context.Context, uint, int, int) ([]models.Post, int64, error)
	feedFn         func(context.Context, uint, int, int) ([]models.Post, int64, error)
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) UpdateBody(ctx context.Context, post *models.Post) error {
	return s.updateBodyFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) ListByAuthor(ctx context.Context, authorID uint, limit, offset int) ([]models.Post, int64, error) {
	return s.listByAuthorFn(ctx, authorID, limit, offset)
}
func (s *postRepoStub) Feed(ctx context.Context, userID uint, limit, offset int) ([]models.Post, int64, error) {
	return s.feedFn(ctx, userID, limit, offset)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:     func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn:    func(_ context.Context, id uint) (*models.Post, error) { return &models.Post{ID: id}, nil },
		updateBodyFn: func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:     func(_ context.Context, _ uint) error { return nil },
		listByAuthorFn: func(_ context.Context, _ uint, _, _ int) ([]models.Post, int64, error) {
			return nil, 0, nil
		},
		feedFn: func(_ context.Context, _ uint, _, _ int) ([]models.Post, int64, error) {
			return nil, 0, nil
		},
	}
}

// followRepoStub is a stub for repository.FollowRepository.
type followRepoStub struct {
	followFn        func(context.Context, uint, uint) (bool, error)
	unfollowFn      func(context.Context, uint, uint) (bool, error)
	isFollowingFn   func(context.Context, uint, uint) (bool, error)
	listFollowingFn func(context.Context, uint, int, int) ([]models.User, int64, error)
}

func (s *followRepoStub) Follow(ctx context.Context, followerID, followingID uint) (bool, error) {
	return s.followFn(ctx, followerID, followingID)
}
func (s *followRepoStub) Unfollow(ctx context.Context, followerID, followingID uint) (bool, error) {
	return s.unfollowFn(ctx, followerID, followingID)
}
func (s *followRepoStub) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	return s.isFollowingFn(ctx, followerID, followingID)
}
func (s *followRepoStub) ListFollowing(ctx context.Context, followerID uint, limit, offset int) ([]models.User, int64, error) {
	return s.listFollowingFn(ctx, followerID, limit, offset)
}

func noopFollowRepo() *followRepoStub {
	return &followRepoStub{
		followFn:      func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		unfollowFn:    func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		isFollowingFn: func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		listFollowingFn: func(_ context.Context, _ uint, _, _ int) ([]models.User, int64, error) {
			return nil, 0, nil
		},
	}
}

// likeRepoStub is a stub for repository.LikeRepository.
type likeRepoStub struct {
	likeFn         func(context.Context, uint, uint) (bool, int, error)
	unlikeFn       func(context.Context, uint, uint) (bool, int, error)
	likedPostIDsFn func(context.Context, uint, []uint) (map[uint]bool, error)
}

func (s *likeRepoStub) Like(ctx context.Context, userID, postID uint) (bool, int, error) {
	return s.likeFn(ctx, userID, postID)
}
func (s *likeRepoStub) Unlike(ctx context.Context, userID, postID uint) (bool, int, error) {
	return s.unlikeFn(ctx, userID, postID)
}
func (s *likeRepoStub) LikedPostIDs(ctx context.Context, userID uint, postIDs []uint) (map[uint]bool, error) {
	return s.likedPostIDsFn(ctx, userID, postIDs)
}

func noopLikeRepo() *likeRepoStub {
	return &likeRepoStub{
		likeFn:   func(_ context.Context, _, _ uint) (bool, int, error) { return true, 1, nil },
		unlikeFn: func(_ context.Context, _, _ uint) (bool, int, error) { return true, 0, nil },
		likedPostIDsFn: func(_ context.Context, _ uint, _ []uint) (map[uint]bool, error) {
			return map[uint]bool{}, nil
		},
	}
}

// imageStoreStub records Store and Remove calls.
type imageStoreStub struct {
	stored  int
	removed []string
	err     error
}

func (s *imageStoreStub) Store(_ context.Context, _ UploadImageInput) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.stored++
	return "posts/stub.webp", nil
}

func (s *imageStoreStub) Remove(_ context.Context, rel string) {
	s.removed = append(s.removed, rel)
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	if assert.True(t, errors.As(err, &appErr), "expected *models.AppError, got %v", err) {
		assert.Equal(t, code, appErr.Code)
	}
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation)
}
