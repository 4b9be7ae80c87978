package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"twitthon/internal/config"
	"twitthon/internal/middleware"
	"twitthon/internal/models"
	"twitthon/internal/observability"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaRoot            = "media"
	DefaultImageMaxUploadSizeMB = 5
	DefaultImageMaxDimension    = 1080
	WebPQuality                 = 80

	// MaxImagePixels bounds the canvas an upload may declare before decoding.
	MaxImagePixels = 40_000_000

	// postImageDir is the MEDIA_ROOT subdirectory for post attachments.
	postImageDir = "posts"
)

type UploadImageInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ImageService normalizes uploaded post images to WebP under MEDIA_ROOT.
type ImageService struct {
	root               string
	maxUploadSizeBytes int64
	maxDimension       int
}

func NewImageService(cfg *config.Config) *ImageService {
	root := DefaultMediaRoot
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB
	maxDimension := DefaultImageMaxDimension

	if cfg != nil {
		if cfg.MediaRoot != "" {
			root = cfg.MediaRoot
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
		if cfg.ImageMaxDimension > 0 {
			maxDimension = cfg.ImageMaxDimension
		}
	}

	return &ImageService{
		root:               root,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
		maxDimension:       maxDimension,
	}
}

// Store validates, downsizes and re-encodes the upload. It returns the path
// relative to MEDIA_ROOT, always using forward slashes.
func (s *ImageService) Store(ctx context.Context, in UploadImageInput) (string, error) {
	span, _ := observability.NewSpan(ctx, "image.store", attribute.Int("image.bytes", len(in.Content)))
	defer span.End()

	if len(in.Content) == 0 {
		return "", models.NewValidationError("image: The submitted file is empty.")
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return "", models.NewValidationError(fmt.Sprintf("image: File too large (max %dMB)", s.maxUploadSizeBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return "", models.NewValidationError("image: Upload a valid image.")
	}

	header, _, err := image.DecodeConfig(bytes.NewReader(in.Content))
	if err != nil {
		return "", models.NewValidationError("image: Upload a valid image.")
	}
	if header.Width <= 0 || header.Height <= 0 || int64(header.Width)*int64(header.Height) > MaxImagePixels {
		return "", models.NewValidationError(fmt.Sprintf("image: Image dimensions %dx%d are too large", header.Width, header.Height))
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return "", models.NewValidationError("image: Upload a valid image.")
	}
	if !isSupportedDecodedFormat(format) {
		return "", models.NewValidationError("image: Unsupported image format")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, decodedFormatToMime(format)) {
		return "", models.NewValidationError("image: Image content type mismatch")
	}

	resized := resizeToFit(decoded, s.maxDimension, s.maxDimension)
	encoded, err := encodeWebP(resized, WebPQuality)
	if err != nil {
		span.SetError(err)
		return "", models.NewInternalError(err)
	}

	rel := path.Join(postImageDir, uuid.NewString()+".webp")
	if err := writeBytesToFile(s.Path(rel), encoded); err != nil {
		span.SetError(err)
		return "", models.NewInternalError(err)
	}

	span.AddAttributes(attribute.String("image.format", format), attribute.String("image.path", rel))
	return rel, nil
}

// Root is the directory images are stored under.
func (s *ImageService) Root() string {
	return s.root
}

// Path maps a stored relative path to its location on disk. The result is
// always inside MEDIA_ROOT.
func (s *ImageService) Path(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+rel)))
}

// Remove deletes a stored image, logging rather than failing.
func (s *ImageService) Remove(ctx context.Context, rel string) {
	if rel == "" {
		return
	}
	if err := os.Remove(s.Path(rel)); err != nil && !os.IsNotExist(err) {
		middleware.Logger.WarnContext(ctx, "failed to remove image", "path", rel, "error", err)
	}
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func isSupportedDecodedFormat(format string) bool {
	return decodedFormatToMime(format) != ""
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func writeBytesToFile(dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o600)
}
