package filemgr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"vitrine/utils"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	ProductPicDir   = "./static/productpic"
	ProductThumbDir = "./static/productpic/thumb"

	maxImageSize = 10 << 20
	thumbWidth   = 300
)

var (
	ErrInvalidExtension = errors.New("invalid file extension")
	ErrInvalidMIME      = errors.New("invalid MIME type")
	ErrFileTooLarge     = errors.New("file size exceeds limit")

	allowedExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
	allowedMIMEs      = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
)

// SaveProductImage validates and stores an uploaded product picture and a
// 300px-wide thumbnail next to it. The returned name is the stored filename,
// not a path.
func SaveProductImage(file multipart.File, header *multipart.FileHeader) (string, error) {
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !contains(allowedExtensions, ext) {
		return "", fmt.Errorf("%w: %s", ErrInvalidExtension, ext)
	}

	buf, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if int64(len(buf)) > maxImageSize {
		return "", ErrFileTooLarge
	}

	sniff := buf
	if len(sniff) > 512 {
		sniff = sniff[:512]
	}
	mimeType := http.DetectContentType(sniff)
	if !contains(allowedMIMEs, mimeType) {
		return "", fmt.Errorf("%w: %s", ErrInvalidMIME, mimeType)
	}

	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	if err := os.MkdirAll(ProductPicDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", ProductPicDir, err)
	}
	if err := os.MkdirAll(ProductThumbDir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", ProductThumbDir, err)
	}

	filename := utils.GetUUID() + ext
	fullPath := filepath.Join(ProductPicDir, filename)
	if err := os.WriteFile(fullPath, buf, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", fullPath, err)
	}

	if err := generateThumbnail(img, filename); err != nil {
		return "", fmt.Errorf("thumbnail: %w", err)
	}

	return filename, nil
}

// RemoveProductImage deletes a stored picture and its thumbnail. Missing files
// are not an error.
func RemoveProductImage(filename string) {
	if filename == "" || strings.Contains(filename, "/") || strings.Contains(filename, "..") {
		return
	}
	_ = os.Remove(filepath.Join(ProductPicDir, filename))
	_ = os.Remove(filepath.Join(ProductThumbDir, thumbName(filename)))
}

func generateThumbnail(img image.Image, filename string) error {
	thumb := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	out, err := os.Create(filepath.Join(ProductThumbDir, thumbName(filename)))
	if err != nil {
		return err
	}
	defer out.Close()
	return jpeg.Encode(out, thumb, &jpeg.Options{Quality: 85})
}

func thumbName(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return base + ".jpg"
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
