package assets

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidJPEG(t *testing.T, w, h int, quality int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 255), uint8(y % 255), 128, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}))
	return buf.Bytes()
}

func TestDownloadIsIdempotent(t *testing.T) {
	payload := []byte("image-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	dir := t.TempDir()
	store := NewStore(dir)

	path1, err := store.Download(context.Background(), server.URL, "series/ep: 1.jpg")
	require.NoError(t, err)

	info1, err := os.Stat(path1)
	require.NoError(t, err)

	path2, err := store.Download(context.Background(), server.URL, "series/ep: 1.jpg")
	require.NoError(t, err)
	info2, err := os.Stat(path2)
	require.NoError(t, err)

	assert.Equal(t, path1, path2)
	assert.Equal(t, info1.ModTime(), info2.ModTime(), "re-downloading identical content must not rewrite the file")
	assert.Equal(t, filepath.Join(dir, "series", "ep - 1.jpg"), path1)
}

func TestCompressToLimitStepsDownQuality(t *testing.T) {
	large := solidJPEG(t, 800, 800, 95)
	small, err := CompressToLimit(large, len(large)/2)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(small), len(large)/2)
}

func TestCompressToLimitReturnsInputWhenAlreadyWithinLimit(t *testing.T) {
	data := solidJPEG(t, 10, 10, 95)
	out, err := CompressToLimit(data, len(data)+1000)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestPixelArea(t *testing.T) {
	data := solidJPEG(t, 40, 20, 90)
	area, err := PixelArea(data)
	require.NoError(t, err)
	assert.Equal(t, 800, area)
}
