package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"blogicum/internal/config"
	"blogicum/internal/models"
	"blogicum/internal/observability"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMediaRoot            = "media"
	DefaultImageMaxUploadSizeMB = 10
	// PostImagesDir is the MEDIA_ROOT subdirectory holding post images.
	PostImagesDir = "posts_images"
	MaxImageSide  = 1920
	JPEGQuality   = 82
	WebPQuality   = 70
)

// MsgInvalidImage is the field error for anything that does not decode as an image.
const MsgInvalidImage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."

// acceptedFormats maps an image.Decode format name to its MIME type.
var acceptedFormats = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// UploadImageInput is one uploaded file.
type UploadImageInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

// StoredImage describes an image written under MEDIA_ROOT. Paths are
// slash-separated and relative to MEDIA_ROOT.
type StoredImage struct {
	Path     string
	WebPPath string
	Width    int
	Height   int
}

// ImageService turns uploads into a bounded JPEG plus a WebP copy under
// MEDIA_ROOT/posts_images.
type ImageService struct {
	root     string
	maxBytes int64
	newName  func() string
}

func NewImageService(cfg *config.Config) *ImageService {
	s := &ImageService{
		root:     DefaultMediaRoot,
		maxBytes: DefaultImageMaxUploadSizeMB << 20,
		newName:  uuid.NewString,
	}
	if cfg != nil && cfg.MediaRoot != "" {
		s.root = cfg.MediaRoot
	}
	if cfg != nil && cfg.ImageMaxUploadSizeMB > 0 {
		s.maxBytes = int64(cfg.ImageMaxUploadSizeMB) << 20
	}
	return s
}

// MediaRoot returns the directory images are written to.
func (s *ImageService) MediaRoot() string { return s.root }

// MaxUploadBytes returns the upload size limit.
func (s *ImageService) MaxUploadBytes() int64 { return s.maxBytes }

// Save checks the upload and stores it. A rejected upload yields a
// validation error whose message belongs on the image field.
func (s *ImageService) Save(_ context.Context, in UploadImageInput) (*StoredImage, error) {
	img, err := s.decode(in)
	if err != nil {
		observability.ImageUploads.WithLabelValues("rejected").Inc()
		return nil, err
	}
	stored, err := s.store(img)
	if err != nil {
		observability.ImageUploads.WithLabelValues("error").Inc()
		return nil, models.NewInternalError(err)
	}
	observability.ImageUploads.WithLabelValues("stored").Inc()
	return stored, nil
}

func (s *ImageService) decode(in UploadImageInput) (image.Image, error) {
	switch {
	case len(in.Content) == 0:
		return nil, models.NewValidationError("The submitted file is empty.")
	case int64(len(in.Content)) > s.maxBytes:
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB).", s.maxBytes>>20))
	}
	if _, ok := mimeFormat(http.DetectContentType(in.Content)); !ok {
		return nil, models.NewValidationError(MsgInvalidImage)
	}

	img, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError(MsgInvalidImage)
	}
	actual, ok := acceptedFormats[format]
	if !ok {
		return nil, models.NewValidationError(MsgInvalidImage)
	}
	if claimed := mediaType(in.ContentType); strings.HasPrefix(claimed, "image/") && claimed != actual {
		return nil, models.NewValidationError("Image content type mismatch.")
	}
	return img, nil
}

func (s *ImageService) store(img image.Image) (*StoredImage, error) {
	img = fitWithin(img, MaxImageSide)

	var jpg, wp bytes.Buffer
	if err := jpeg.Encode(&jpg, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, err
	}
	if err := webp.Encode(&wp, img, &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, err
	}

	name := s.newName()
	out := &StoredImage{
		Path:     path.Join(PostImagesDir, name+".jpg"),
		WebPPath: path.Join(PostImagesDir, name+".webp"),
		Width:    img.Bounds().Dx(),
		Height:   img.Bounds().Dy(),
	}
	if err := s.write(out.Path, jpg.Bytes()); err != nil {
		return nil, err
	}
	if err := s.write(out.WebPPath, wp.Bytes()); err != nil {
		_ = os.Remove(s.abs(out.Path))
		return nil, err
	}
	return out, nil
}

func (s *ImageService) abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

func (s *ImageService) write(rel string, data []byte) error {
	name := s.abs(rel)
	if err := os.MkdirAll(filepath.Dir(name), 0o750); err != nil {
		return err
	}
	return os.WriteFile(name, data, 0o600)
}

// Remove deletes a stored image and its WebP sibling, best effort.
// Paths outside the post images directory are ignored.
func (s *ImageService) Remove(rel string) {
	if !isPostImagePath(rel) {
		return
	}
	_ = os.Remove(s.abs(rel))
	_ = os.Remove(s.abs(WebPSibling(rel)))
}

// WebPSibling returns the relative WebP path stored next to rel.
func WebPSibling(rel string) string {
	if rel == "" {
		return ""
	}
	return strings.TrimSuffix(rel, path.Ext(rel)) + ".webp"
}

// isPostImagePath accepts only "posts_images/<name>" with no traversal.
func isPostImagePath(rel string) bool {
	if rel == "" || strings.Contains(rel, "\\") || path.Clean(rel) != rel {
		return false
	}
	dir, file := path.Split(rel)
	return dir == PostImagesDir+"/" && file != "" && !strings.HasPrefix(file, ".")
}

// fitWithin scales img down, keeping its aspect ratio, so neither side
// exceeds limit. Smaller images are returned as is.
func fitWithin(img image.Image, limit int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= limit && h <= limit {
		return img
	}
	if w >= h {
		w, h = limit, max(1, h*limit/w)
	} else {
		w, h = max(1, w*limit/h), limit
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

func mediaType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mt = ct
	}
	mt = strings.ToLower(strings.TrimSpace(mt))
	if mt == "image/jpg" {
		return "image/jpeg"
	}
	return mt
}

// mimeFormat reports the decode format for a sniffed MIME type.
func mimeFormat(ct string) (string, bool) {
	mt := mediaType(ct)
	for format, m := range acceptedFormats {
		if m == mt {
			return format, true
		}
	}
	return "", false
}
