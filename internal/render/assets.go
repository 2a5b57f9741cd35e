package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gogpu/gg"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"poster-server/internal/models"
)

// assetCacheLimit caps the decoded-image cache. Stored documents can
// reference arbitrarily many distinct URLs over a process lifetime, so past
// the cap an arbitrary entry is evicted to make room.
const assetCacheLimit = 128

// AssetLoader fetches and decodes the bitmaps referenced by image nodes.
// Fetches are bounded by a per-request timeout and a byte limit so an
// unresolvable URL fails the render instead of hanging it. Decoded images are
// cached by source, up to assetCacheLimit entries; cached values are never
// mutated, so concurrent renders may share them.
type AssetLoader struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
	logger   *zap.Logger

	mu    sync.RWMutex
	cache map[string]*gg.ImageBuf
}

// NewAssetLoader creates an AssetLoader.
func NewAssetLoader(timeout time.Duration, maxBytes int64, logger *zap.Logger) *AssetLoader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	return &AssetLoader{
		client:   &http.Client{},
		timeout:  timeout,
		maxBytes: maxBytes,
		logger:   logger.Named("AssetLoader"),
		cache:    make(map[string]*gg.ImageBuf),
	}
}

// Load resolves src to a decoded image. src is either an http(s) URL or a
// base64 data URI. Any failure is reported as ErrAssetLoad.
func (l *AssetLoader) Load(ctx context.Context, src string) (*gg.ImageBuf, error) {
	l.mu.RLock()
	cached, ok := l.cache[src]
	l.mu.RUnlock()
	if ok {
		return cached, nil
	}

	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(src, "data:"):
		data, err = decodeDataURI(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		data, err = l.fetch(ctx, src)
	default:
		err = fmt.Errorf("unsupported asset source scheme")
	}
	if err != nil {
		l.logger.Warn("Asset load failed", zap.String("src", truncate(src, 96)), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrAssetLoad, err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		l.logger.Warn("Asset decode failed", zap.String("src", truncate(src, 96)), zap.Error(err))
		return nil, fmt.Errorf("%w: decode: %v", models.ErrAssetLoad, err)
	}
	buf := gg.ImageBufFromImage(img)

	l.mu.Lock()
	if len(l.cache) >= assetCacheLimit {
		for key := range l.cache {
			delete(l.cache, key)
			break
		}
	}
	l.cache[src] = buf
	l.mu.Unlock()
	return buf, nil
}

func (l *AssetLoader) fetch(ctx context.Context, url string) ([]byte, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("asset exceeds %d bytes", l.maxBytes)
	}
	return data, nil
}

func decodeDataURI(src string) ([]byte, error) {
	comma := strings.IndexByte(src, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data URI")
	}
	meta, payload := src[:comma], src[comma+1:]
	if !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("only base64 data URIs are supported")
	}
	return base64.StdEncoding.DecodeString(payload)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
