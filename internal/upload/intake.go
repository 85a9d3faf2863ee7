// Package upload accepts token images, checks their size and type and stores
// them under random names.
package upload

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rovshanmuradov/pumpbot/internal/apperr"
	"go.uber.org/zap"
)

// PathPrefix is the URL path stored images are served under.
const PathPrefix = "/uploads/"

const nameBytes = 16

var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

var allowedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// File is an uploaded image as received from the caller.
type File struct {
	Reader       io.Reader
	Size         int64
	DeclaredMIME string
	Filename     string
}

// Image describes a stored image.
type Image struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mimetype"`
}

// Intake stores accepted images in a single directory.
type Intake struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger
}

// NewIntake creates the upload directory if needed.
func NewIntake(dir string, maxBytes int64, logger *zap.Logger) (*Intake, error) {
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max image size must be positive, got %d", maxBytes)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Intake{dir: dir, maxBytes: maxBytes, logger: logger.Named("upload")}, nil
}

// Dir returns the directory images are written to.
func (in *Intake) Dir() string {
	return in.dir
}

// Store validates f and writes it under a fresh random name. Nothing is
// written when the file is rejected.
func (in *Intake) Store(ctx context.Context, f File, baseURL string) (*Image, error) {
	if f.Reader == nil {
		return nil, apperr.Validation("No image file provided", "Request must include an image file")
	}
	if f.Size > in.maxBytes {
		return nil, tooLarge(in.maxBytes)
	}

	ext := strings.ToLower(filepath.Ext(f.Filename))
	declared := strings.ToLower(strings.TrimSpace(f.DeclaredMIME))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if !allowedExtensions[ext] || !allowedMIMETypes[declared] {
		return nil, invalidType()
	}

	// Read one byte past the limit so an understated Size is still caught.
	data, err := io.ReadAll(io.LimitReader(f.Reader, in.maxBytes+1))
	if err != nil {
		return nil, apperr.Internal("Failed to read image", err)
	}
	if int64(len(data)) > in.maxBytes {
		return nil, tooLarge(in.maxBytes)
	}
	if len(data) == 0 {
		return nil, apperr.Validation("No image file provided", "Image file is empty")
	}

	sniffed := mimetype.Detect(data)
	if !allowedMIMETypes[sniffed.String()] {
		in.logger.Debug("Rejected upload with mismatched content",
			zap.String("declared", declared),
			zap.String("detected", sniffed.String()))
		return nil, invalidType()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, err := randomName(ext)
	if err != nil {
		return nil, apperr.Internal("Failed to store image", err)
	}
	if err := os.WriteFile(filepath.Join(in.dir, name), data, 0o644); err != nil {
		return nil, apperr.Internal("Failed to store image", fmt.Errorf("failed to write image: %w", err))
	}

	in.logger.Info("Image stored",
		zap.String("filename", name),
		zap.Int("size", len(data)),
		zap.String("mimetype", sniffed.String()))

	return &Image{
		URL:      strings.TrimRight(baseURL, "/") + PathPrefix + name,
		Filename: name,
		Size:     int64(len(data)),
		MIMEType: sniffed.String(),
	}, nil
}

// StoreBytes stores an in-memory image whose type is known only from its
// content, as with data URIs.
func (in *Intake) StoreBytes(ctx context.Context, data []byte, baseURL string) (*Image, error) {
	detected := mimetype.Detect(data)
	return in.Store(ctx, File{
		Reader:       bytes.NewReader(data),
		Size:         int64(len(data)),
		DeclaredMIME: detected.String(),
		Filename:     "image" + detected.Extension(),
	}, baseURL)
}

func tooLarge(maxBytes int64) *apperr.Error {
	return apperr.Validation("File too large",
		fmt.Sprintf("Image must be smaller than %s", humanSize(maxBytes)))
}

func invalidType() *apperr.Error {
	return apperr.Validation("Invalid file type",
		"Only image files are allowed (jpeg, jpg, png, gif, webp)")
}

func humanSize(n int64) string {
	const mb = 1 << 20
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}

func randomName(ext string) (string, error) {
	b := make([]byte, nameBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate file name: %w", err)
	}
	return hex.EncodeToString(b) + ext, nil
}
