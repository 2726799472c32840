package services

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"
)

var ErrUnsupportedImage = errors.New("unsupported image type")

// MediaURL maps a stored media path to its public URL. Empty paths map
// to an empty URL.
func MediaURL(path string) string {
	if path == "" {
		return ""
	}
	return "/media/" + path
}

// MediaPathFromURL is the inverse of MediaURL.
func MediaPathFromURL(url string) string {
	return strings.TrimPrefix(url, "/media/")
}

// MediaStore keeps uploaded card images on disk under a base directory,
// exposed through the /media/ mount.
type MediaStore struct {
	dir string
}

func NewMediaStore(dir string) (*MediaStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "cards"), 0o755); err != nil {
		return nil, fmt.Errorf("creating media dir: %w", err)
	}
	return &MediaStore{dir: dir}, nil
}

// Dir returns the base directory, for mounting as a file server.
func (m *MediaStore) Dir() string {
	return m.dir
}

// SaveCardImage validates and stores an uploaded card image, returning
// the relative media path. Only PNG, JPEG and WEBP content is accepted;
// the bytes must actually decode as an image regardless of the claimed
// filename.
func (m *MediaStore) SaveCardImage(cardKey, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp":
	default:
		return "", ErrUnsupportedImage
	}

	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	rel := filepath.Join("cards", cardKey+ext)
	if err := os.WriteFile(filepath.Join(m.dir, rel), data, 0o644); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

// DecodeImage decodes stored or uploaded image bytes for rendering.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// LoadCardImage reads and decodes a stored media path. A missing or
// undecodable file returns an error; callers render without the image.
func (m *MediaStore) LoadCardImage(rel string) (image.Image, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return DecodeImage(data)
}
