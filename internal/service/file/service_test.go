package file

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-payroll/internal/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noisyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	r := rand.New(rand.NewSource(1))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(r.Intn(256)), uint8(r.Intn(256)), uint8(r.Intn(256)), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newService(t *testing.T) (FileService, storage.FileStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewFileService(store), store
}

func TestUploadAttendanceAttachment_PDF(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	p, err := svc.UploadAttendanceAttachment(ctx, "emp-1", day, "leave", strings.NewReader("%PDF-1.4"), "Doctor Note.PDF")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "attendance/emp-1/2026-01-05/leave-"))
	assert.True(t, strings.HasSuffix(p, ".pdf"))

	rc, err := store.Download(ctx, p)
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "%PDF-1.4", string(body))

	content, contentType, err := svc.ReadFile(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(content))
	assert.Equal(t, "application/pdf", contentType)

	require.NoError(t, svc.DeleteFile(ctx, p))

	_, _, err = svc.ReadFile(ctx, p)
	assert.ErrorIs(t, err, storage.ErrFileNotFound)
}

func TestUploadAttendanceAttachment_ImageIsCompressed(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	raw := noisyPNG(t, 1600, 1200)
	require.Greater(t, len(raw), maxImageSize)

	p, err := svc.UploadAttendanceAttachment(ctx, "emp-1", time.Now(), "half_day", bytes.NewReader(raw), "scan.png")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(p, ".jpg"))

	rc, err := store.Download(ctx, p)
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Less(t, len(body), len(raw))

	_, format, err := image.Decode(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestUploadAttendanceAttachment_RejectsOtherTypes(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.UploadAttendanceAttachment(context.Background(), "emp-1", time.Now(), "leave", strings.NewReader("x"), "run.exe")
	assert.Error(t, err)
}
