package service

import (
	"context"
	"fmt"

	"twitthon/internal/models"
	"twitthon/internal/observability"
	"twitthon/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// FollowService manages the directed follow graph.
type FollowService struct {
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
}

// FollowResult is the outcome of a follow call. Created is false when the
// edge already existed.
type FollowResult struct {
	Created bool
	Target  *models.User
}

func NewFollowService(userRepo repository.UserRepository, followRepo repository.FollowRepository) *FollowService {
	return &FollowService{userRepo: userRepo, followRepo: followRepo}
}

func (s *FollowService) target(ctx context.Context, followerID uint, username string) (*models.User, error) {
	target, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == followerID {
		return nil, models.NewValidationError("You cannot follow yourself")
	}
	return target, nil
}

func (s *FollowService) Follow(ctx context.Context, followerID uint, username string) (*FollowResult, error) {
	target, err := s.target(ctx, followerID, username)
	if err != nil {
		if models.IsCode(err, models.CodeValidation) {
			observability.RecordSocialEvent("follow", "self")
		}
		return nil, err
	}

	created, err := s.followRepo.Follow(ctx, followerID, target.ID)
	if err != nil {
		return nil, err
	}
	if created {
		observability.RecordSocialEvent("follow", "created")
	} else {
		observability.RecordSocialEvent("follow", "noop")
	}
	return &FollowResult{Created: created, Target: target}, nil
}

func (s *FollowService) Unfollow(ctx context.Context, followerID uint, username string) (*models.User, error) {
	target, err := s.target(ctx, followerID, username)
	if err != nil {
		return nil, err
	}

	removed, err := s.followRepo.Unfollow(ctx, followerID, target.ID)
	if err != nil {
		return nil, err
	}
	if !removed {
		observability.RecordSocialEvent("unfollow", "noop")
		return nil, models.NewValidationError(fmt.Sprintf("You are not following %s", target.Username))
	}
	observability.RecordSocialEvent("unfollow", "removed")
	return target, nil
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	return s.followRepo.IsFollowing(ctx, followerID, followingID)
}

func (s *FollowService) ListFollowing(ctx context.Context, followerID uint, limit, offset int) ([]models.User, int64, error) {
	return s.followRepo.ListFollowing(ctx, followerID, limit, offset)
}

// LikeService records likes. The counter bookkeeping is done by the
// repository inside a transaction.
type LikeService struct {
	likeRepo repository.LikeRepository
}

// LikeResult carries whether the call changed anything and the counter
// afterwards.
type LikeResult struct {
	Changed bool
	Likes   int
}

func NewLikeService(likeRepo repository.LikeRepository) *LikeService {
	return &LikeService{likeRepo: likeRepo}
}

func (s *LikeService) Like(ctx context.Context, userID, postID uint) (*LikeResult, error) {
	span, ctx := observability.NewSpan(ctx, "like.add", attribute.Int64("post.id", int64(postID)))
	defer span.End()

	created, likes, err := s.likeRepo.Like(ctx, userID, postID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if created {
		observability.RecordSocialEvent("like", "created")
	} else {
		observability.RecordSocialEvent("like", "noop")
	}
	return &LikeResult{Changed: created, Likes: likes}, nil
}

func (s *LikeService) Unlike(ctx context.Context, userID, postID uint) (*LikeResult, error) {
	span, ctx := observability.NewSpan(ctx, "like.remove", attribute.Int64("post.id", int64(postID)))
	defer span.End()

	removed, likes, err := s.likeRepo.Unlike(ctx, userID, postID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if !removed {
		observability.RecordSocialEvent("unlike", "noop")
		return nil, models.NewValidationError("You haven't liked this post")
	}
	observability.RecordSocialEvent("unlike", "removed")
	return &LikeResult{Changed: true, Likes: likes}, nil
}

// FeedService composes a user's home timeline.
type FeedService struct {
	postRepo repository.PostRepository
}

func NewFeedService(postRepo repository.PostRepository) *FeedService {
	return &FeedService{postRepo: postRepo}
}

// Feed returns one page of posts by userID and the accounts userID follows.
func (s *FeedService) Feed(ctx context.Context, userID uint, limit, offset int) ([]models.Post, int64, error) {
	span, ctx := observability.NewSpan(ctx, "feed.compose", attribute.Int64("user.id", int64(userID)))
	defer span.End()

	posts, total, err := s.postRepo.Feed(ctx, userID, limit, offset)
	if err != nil {
		span.SetError(err)
		return nil, 0, err
	}
	span.AddAttributes(attribute.Int64("feed.total", total))
	return posts, total, nil
}
