package assets

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"os"
	"path/filepath"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/tcmaker/core/internal/apperr"
)

// Store owns the on-disk layout under an asset root: downloaded source
// images, recompressed JPEGs, and cached font files (spec §4.4).
type Store struct {
	Root       string
	httpClient *http.Client
}

// NewStore constructs a Store rooted at root.
func NewStore(root string) *Store {
	return &Store{Root: root, httpClient: &http.Client{}}
}

func readLocal(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.New("assets.readLocal", apperr.NotFound, err)
	}
	return data, nil
}

// Download fetches url, writing it to destRelPath (sanitized, relative to
// Root) only if the destination is absent or its content hash differs —
// spec §4.4's idempotent-download requirement. Returns the final absolute
// path.
func (s *Store) Download(ctx context.Context, url, destRelPath string) (string, error) {
	parts := splitPath(destRelPath)
	sanitized := SanitizeParts(parts, string(filepath.Separator))
	dest := filepath.Join(s.Root, sanitized)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", apperr.New("assets.Download", apperr.Transient, err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", apperr.New("assets.Download", apperr.Transient, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", apperr.New("assets.Download", apperr.ClassifyStatus(resp.StatusCode), fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.New("assets.Download", apperr.Transient, err)
	}

	if existing, err := os.ReadFile(dest); err == nil && sha256Sum(existing) == sha256Sum(body) {
		return dest, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", apperr.New("assets.Download", apperr.Transient, err)
	}
	if err := os.WriteFile(dest, body, 0o644); err != nil {
		return "", apperr.New("assets.Download", apperr.Transient, err)
	}
	return dest, nil
}

// WriteBundled writes raw bytes (e.g. a font file bundled inside a
// Blueprint, spec §4.9) to destRelPath, sanitized and relative to Root,
// skipping the write if the destination already holds identical content.
// Returns the final absolute path.
func (s *Store) WriteBundled(destRelPath string, data []byte) (string, error) {
	parts := splitPath(destRelPath)
	sanitized := SanitizeParts(parts, string(filepath.Separator))
	dest := filepath.Join(s.Root, sanitized)

	if existing, err := os.ReadFile(dest); err == nil && sha256Sum(existing) == sha256Sum(data) {
		return dest, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", apperr.New("assets.WriteBundled", apperr.Transient, err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", apperr.New("assets.WriteBundled", apperr.Transient, err)
	}
	return dest, nil
}

func sha256Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func splitPath(path string) []string {
	var parts []string
	cur := ""
	for _, r := range path {
		if r == '/' || r == filepath.Separator {
			if cur != "" {
				parts = append(parts, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		parts = append(parts, cur)
	}
	return parts
}

// CompressToLimit re-encodes a JPEG/PNG source at decreasing quality,
// starting at 95 and stepping down by 5 until 0 is reached, until the
// result fits within maxBytes — spec §4.4's filesize guard, grounded on
// original_source's backend filesize-limit handling.
// Returns apperr.ResourceExceeded if no quality step satisfies the limit.
func CompressToLimit(data []byte, maxBytes int) ([]byte, error) {
	if len(data) <= maxBytes {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.New("assets.CompressToLimit", apperr.Transient, err)
	}

	for quality := 95; quality >= 0; quality -= 5 {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, apperr.New("assets.CompressToLimit", apperr.Transient, err)
		}
		if buf.Len() <= maxBytes {
			return buf.Bytes(), nil
		}
	}

	return nil, apperr.New("assets.CompressToLimit", apperr.ResourceExceeded, fmt.Errorf("could not compress below %d bytes", maxBytes))
}

// PixelArea decodes an image's dimensions and returns width*height, the
// pixel-area ranking key of spec §4.4.
func PixelArea(data []byte) (int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, apperr.New("assets.PixelArea", apperr.Transient, err)
	}
	return cfg.Width * cfg.Height, nil
}
