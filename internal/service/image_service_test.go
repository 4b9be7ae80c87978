package service

import (
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"os"
	"strings"
	"testing"

	"twitthon/internal/config"
	"twitthon/internal/models"
	"twitthon/internal/testutil"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageServiceStore(t *testing.T) {
	cfg := &config.Config{MediaRoot: t.TempDir(), ImageMaxUploadSizeMB: 1, ImageMaxDimension: 100}
	svc := NewImageService(cfg)

	rel, err := svc.Store(context.Background(), UploadImageInput{
		Filename:    "photo.png",
		ContentType: "image/png",
		Content:     testutil.TinyPNG(t, 400, 200),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "posts/"), rel)
	assert.True(t, strings.HasSuffix(rel, ".webp"), rel)

	f, err := os.Open(svc.Path(rel))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	img, err := webp.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 50), img.Bounds())

	svc.Remove(context.Background(), rel)
	_, err = os.Stat(svc.Path(rel))
	assert.True(t, os.IsNotExist(err))
}

func TestImageServiceStore_SmallImageKeepsSize(t *testing.T) {
	svc := NewImageService(&config.Config{MediaRoot: t.TempDir(), ImageMaxDimension: 100})

	rel, err := svc.Store(context.Background(), UploadImageInput{Content: testutil.TinyPNG(t, 30, 20)})
	require.NoError(t, err)

	f, err := os.Open(svc.Path(rel))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	cfgImg, err := webp.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 30, cfgImg.Width)
	assert.Equal(t, 20, cfgImg.Height)
}

func TestImageServiceStore_Rejects(t *testing.T) {
	svc := NewImageService(&config.Config{MediaRoot: t.TempDir(), ImageMaxUploadSizeMB: 1})
	png := testutil.TinyPNG(t, 10, 10)

	tests := []struct {
		name string
		in   UploadImageInput
	}{
		{"empty", UploadImageInput{}},
		{"not an image", UploadImageInput{Content: []byte("hello, world")}},
		{"too large", UploadImageInput{Content: make([]byte, 2*1024*1024)}},
		{"content type mismatch", UploadImageInput{ContentType: "image/jpeg", Content: png}},
		{"huge canvas", UploadImageInput{ContentType: "image/png", Content: withPNGSize(t, png, 100_000, 100_000)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Store(context.Background(), tt.in)
			require.Error(t, err)
			assert.True(t, models.IsCode(err, models.CodeValidation), err.Error())
		})
	}
}

func TestImageServicePath_StaysInRoot(t *testing.T) {
	root := t.TempDir()
	svc := NewImageService(&config.Config{MediaRoot: root})

	for _, rel := range []string{"posts/a.webp", "../../etc/passwd", "/abs/x.webp"} {
		assert.True(t, strings.HasPrefix(svc.Path(rel), root), rel)
	}
	assert.Equal(t, root, svc.Root())
}

func TestNewImageService_Defaults(t *testing.T) {
	svc := NewImageService(nil)
	assert.Equal(t, DefaultMediaRoot, svc.Root())
	assert.Equal(t, int64(DefaultImageMaxUploadSizeMB)*1024*1024, svc.maxUploadSizeBytes)
	assert.Equal(t, DefaultImageMaxDimension, svc.maxDimension)
}

// withPNGSize rewrites the IHDR dimensions of an encoded PNG and fixes its CRC.
func withPNGSize(t *testing.T, src []byte, w, h uint32) []byte {
	t.Helper()
	out := append([]byte(nil), src...)
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}
