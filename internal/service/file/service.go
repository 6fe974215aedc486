package file

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoding for attachment compression
	"io"
	"math"
	"path"
	"strings"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/storage"
	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const (
	maxImageSize = 300 * 1024
	minImageEdge = 800
)

type FileService interface {
	// UploadAttendanceAttachment stores a half-day or leave supporting
	// document. Images are re-encoded as JPEG no larger than maxImageSize
	// where possible; PDFs are stored untouched.
	UploadAttendanceAttachment(ctx context.Context, employeeID string, date time.Time, kind string, file io.Reader, filename string) (string, error)

	// ReadFile loads a stored attachment together with its content type.
	ReadFile(ctx context.Context, path string) ([]byte, string, error)

	DeleteFile(ctx context.Context, path string) error
}

type fileServiceImpl struct {
	storage storage.FileStorage
	now     func() time.Time
}

func NewFileService(storage storage.FileStorage) FileService {
	return &fileServiceImpl{
		storage: storage,
		now:     time.Now,
	}
}

// UploadAttendanceAttachment implements FileService.
func (s *fileServiceImpl) UploadAttendanceAttachment(ctx context.Context, employeeID string, date time.Time, kind string, file io.Reader, filename string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))

	body, contentType := io.Reader(file), "application/pdf"
	switch ext {
	case ".pdf":
	case ".jpg", ".jpeg", ".png":
		buffer, err := io.ReadAll(file)
		if err != nil {
			return "", fmt.Errorf("failed to read image: %w", err)
		}
		compressed, err := compressImage(buffer, maxImageSize)
		if err != nil {
			return "", fmt.Errorf("failed to compress image: %w", err)
		}
		// Always stored as JPEG after compression
		body, contentType, ext = bytes.NewReader(compressed), "image/jpeg", ".jpg"
	default:
		return "", fmt.Errorf("invalid file type: only jpg, jpeg, png, pdf allowed")
	}

	// attendance/{employeeID}/{date}/{kind}-{timestamp}-{uuid}.{ext}
	newFilename := fmt.Sprintf("%s-%d-%s%s", kind, s.now().Unix(), uuid.New().String(), ext)
	p := path.Join("attendance", employeeID, date.Format("2006-01-02"), newFilename)

	uploadedPath, err := s.storage.Upload(ctx, body, p, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload attendance attachment: %w", err)
	}

	return uploadedPath, nil
}

// DeleteFile deletes a file
func (s *fileServiceImpl) DeleteFile(ctx context.Context, path string) error {
	return s.storage.Delete(ctx, path)
}

// ReadFile implements FileService.
func (s *fileServiceImpl) ReadFile(ctx context.Context, p string) ([]byte, string, error) {
	rc, err := s.storage.Download(ctx, p)
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file %s: %w", p, err)
	}
	return content, contentTypeOf(p), nil
}

// ==================== HELPER FUNCTIONS ====================

// contentTypeOf follows the extensions UploadAttendanceAttachment writes.
func contentTypeOf(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// compressImage re-encodes an image as JPEG, lowering quality and then
// scaling down until it fits in maxSize. Images are never scaled below
// minImageEdge on their longer side.
func compressImage(buffer []byte, maxSize int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(buffer))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var compressed []byte
	for quality := 85; quality >= 50; quality -= 5 {
		compressed, err = encodeJPEG(img, quality)
		if err != nil {
			return nil, err
		}
		if len(compressed) <= maxSize {
			return compressed, nil
		}
	}

	bounds := img.Bounds()
	ratio := math.Sqrt(float64(maxSize) / float64(len(compressed)))
	width := int(float64(bounds.Dx()) * ratio)
	height := int(float64(bounds.Dy()) * ratio)

	if longer := max(width, height); longer < minImageEdge {
		scale := float64(minImageEdge) / float64(longer)
		width, height = int(float64(width)*scale), int(float64(height)*scale)
	}
	if width >= bounds.Dx() || height >= bounds.Dy() {
		return compressed, nil
	}

	return encodeJPEG(resizeImage(img, width, height), 70)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// resizeImage resizes an image to the specified dimensions using high-quality interpolation
func resizeImage(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
