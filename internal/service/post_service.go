package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"twitthon/internal/models"
	"twitthon/internal/repository"
)

// ImageStore persists post attachments. *ImageService implements it.
type ImageStore interface {
	Store(ctx context.Context, in UploadImageInput) (string, error)
	Remove(ctx context.Context, rel string)
}

const (
	msgEmptyPost  = "A post must have content or an image."
	msgNotAllowed = "You do not have permission to perform this action."
)

type PostService struct {
	postRepo repository.PostRepository
	likeRepo repository.LikeRepository
	images   ImageStore
}

type CreatePostInput struct {
	UserID  uint
	Content string
	Image   *UploadImageInput
}

// UpdatePostInput is a partial update. A nil Content leaves the post as is.
type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Content *string
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

func NewPostService(postRepo repository.PostRepository, likeRepo repository.LikeRepository, images ImageStore) *PostService {
	return &PostService{
		postRepo: postRepo,
		likeRepo: likeRepo,
		images:   images,
	}
}

func validateContent(content string) error {
	if utf8.RuneCountInString(content) > models.PostContentMaxLength {
		return models.NewValidationError(fmt.Sprintf("content: Ensure this field has no more than %d characters.", models.PostContentMaxLength))
	}
	return nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	content := strings.TrimSpace(in.Content)
	if err := validateContent(content); err != nil {
		return nil, err
	}
	hasImage := in.Image != nil && len(in.Image.Content) > 0
	if content == "" && !hasImage {
		return nil, models.NewValidationError(msgEmptyPost)
	}

	post := &models.Post{UserID: in.UserID, Content: content}
	if hasImage {
		if s.images == nil {
			return nil, models.NewValidationError("image: Uploads are not enabled")
		}
		rel, err := s.images.Store(ctx, *in.Image)
		if err != nil {
			return nil, err
		}
		post.Image = rel
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		if post.Image != "" {
			s.images.Remove(ctx, post.Image)
		}
		return nil, err
	}

	return s.postRepo.GetByID(ctx, post.ID)
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

// ownedPost loads the post and checks that userID authored it.
func (s *PostService) ownedPost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, models.NewForbiddenError(msgNotAllowed)
	}
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.ownedPost(ctx, in.UserID, in.PostID)
	if err != nil {
		return nil, err
	}

	if in.Content == nil {
		return post, nil
	}

	content := strings.TrimSpace(*in.Content)
	if err := validateContent(content); err != nil {
		return nil, err
	}
	post.Content = content
	if !post.HasBody() {
		return nil, models.NewValidationError(msgEmptyPost)
	}

	if err := s.postRepo.UpdateBody(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.ownedPost(ctx, in.UserID, in.PostID)
	if err != nil {
		return err
	}
	if err := s.postRepo.Delete(ctx, post.ID); err != nil {
		return err
	}
	if post.Image != "" && s.images != nil {
		s.images.Remove(ctx, post.Image)
	}
	return nil
}

// ListByAuthor returns one page of authorID's posts, newest first.
func (s *PostService) ListByAuthor(ctx context.Context, authorID uint, limit, offset int) ([]models.Post, int64, error) {
	return s.postRepo.ListByAuthor(ctx, authorID, limit, offset)
}

// LikedBy reports which of posts viewerID has liked.
func (s *PostService) LikedBy(ctx context.Context, viewerID uint, posts []models.Post) (map[uint]bool, error) {
	ids := make([]uint, 0, len(posts))
	for i := range posts {
		ids = append(ids, posts[i].ID)
	}
	return s.likeRepo.LikedPostIDs(ctx, viewerID, ids)
}
