package provider

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/aahadr1/AdsCreator-sub003/internal/storage"
	"github.com/aahadr1/AdsCreator-sub003/internal/telemetry"
)

const (
	rehostMaxBytes     = 100 * 1024 * 1024
	previewWidth       = 512
	rehostFetchTimeout = 60 * time.Second
)

// Rehoster copies provider outputs into durable storage. Provider URLs are
// often transient signed links; re-hosting substitutes a stable URL before
// the original expires. Every step is best effort: on any failure the
// original URL is returned unchanged.
type Rehoster struct {
	store  storage.ObjectStore
	client *http.Client
	logger zerolog.Logger
}

// NewRehoster builds a rehoster over the given object store.
func NewRehoster(store storage.ObjectStore, logger zerolog.Logger) *Rehoster {
	return &Rehoster{
		store:  store,
		client: &http.Client{Timeout: rehostFetchTimeout},
		logger: logger,
	}
}

// Rehost downloads url and stores it under keyBase, returning the durable
// URL. For image content a downscaled preview is stored alongside under
// <keyBase>.preview.jpg for gallery rendering. Failure to re-host is
// non-fatal: the original URL is returned.
func (r *Rehoster) Rehost(ctx context.Context, url, keyBase string) string {
	if r == nil || r.store == nil || url == "" {
		return url
	}

	data, contentType, err := r.fetch(ctx, url)
	if err != nil {
		telemetry.RehostFailures.Inc()
		r.logger.Warn().Err(err).Str("url", url).Msg("rehost: fetch failed, keeping transient url")
		return url
	}

	key := keyBase + extensionFor(contentType, url)
	durable, err := r.store.Put(ctx, key, data, contentType)
	if err != nil {
		telemetry.RehostFailures.Inc()
		r.logger.Warn().Err(err).Str("key", key).Msg("rehost: store failed, keeping transient url")
		return url
	}

	if strings.HasPrefix(contentType, "image/") {
		r.storePreview(ctx, keyBase, data)
	}

	return durable
}

func (r *Rehoster) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download output: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("download output: status %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, rehostMaxBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", fmt.Errorf("read output: %w", err)
	}
	if int64(len(data)) > rehostMaxBytes {
		return nil, "", fmt.Errorf("output too large (>%d bytes)", rehostMaxBytes)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// storePreview writes a small JPEG preview next to a re-hosted image.
// Decode or store errors only skip the preview, never the re-host.
func (r *Rehoster) storePreview(ctx context.Context, keyBase string, data []byte) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		r.logger.Debug().Err(err).Msg("rehost: preview decode skipped")
		return
	}
	preview := imaging.Resize(img, previewWidth, 0, imaging.Lanczos)
	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, preview, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		r.logger.Debug().Err(err).Msg("rehost: preview encode skipped")
		return
	}
	if _, err := r.store.Put(ctx, keyBase+".preview.jpg", buf.Bytes(), "image/jpeg"); err != nil {
		r.logger.Debug().Err(err).Msg("rehost: preview store skipped")
	}
}

func extensionFor(contentType, url string) string {
	if contentType != "" {
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			return exts[len(exts)-1]
		}
	}
	if ext := path.Ext(strings.SplitN(url, "?", 2)[0]); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".bin"
}
