// Package assembler stitches chosen clips into a single deliverable video.
// Clips are fetched in sequence order into a scratch directory, concatenated
// with ffmpeg's concat demuxer, and the result is uploaded to object
// storage. Any missing clip aborts the whole assembly: a silently shorter
// video is worse than a failed run.
package assembler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aahadr1/AdsCreator-sub003/internal/storage"
	"github.com/aahadr1/AdsCreator-sub003/internal/telemetry"
)

const maxClipBytes = 512 << 20

// Transcoder concatenates the clips named by a concat manifest into outPath.
type Transcoder interface {
	Concat(ctx context.Context, manifestPath, outPath string) error
}

// Assembler downloads, concatenates and publishes.
type Assembler struct {
	client      *http.Client
	store       storage.ObjectStore
	transcoder  Transcoder
	logger      zerolog.Logger
	maxClipSize int64
}

// New builds an assembler. client may be nil for a default with a generous
// download timeout.
func New(store storage.ObjectStore, transcoder Transcoder, client *http.Client, logger zerolog.Logger) *Assembler {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Assembler{
		client:      client,
		store:       store,
		transcoder:  transcoder,
		logger:      logger,
		maxClipSize: maxClipBytes,
	}
}

// Assemble concatenates clipURLs in the given order and returns the durable
// URL of the published video.
func (a *Assembler) Assemble(ctx context.Context, clipURLs []string) (string, error) {
	if len(clipURLs) == 0 {
		return "", fmt.Errorf("no clips to assemble")
	}

	assemblyID := uuid.NewString()
	scratch, err := os.MkdirTemp("", "assembly-"+assemblyID)
	if err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	url, err := a.assemble(ctx, assemblyID, scratch, clipURLs)
	if err != nil {
		telemetry.Assemblies.WithLabelValues("failed").Inc()
		return "", err
	}
	telemetry.Assemblies.WithLabelValues("succeeded").Inc()
	return url, nil
}

func (a *Assembler) assemble(ctx context.Context, assemblyID, scratch string, clipURLs []string) (string, error) {
	manifest := &strings.Builder{}
	for i, clipURL := range clipURLs {
		name := fmt.Sprintf("clip_%03d.mp4", i)
		if err := a.fetchClip(ctx, clipURL, filepath.Join(scratch, name)); err != nil {
			return "", fmt.Errorf("clip %d: %w", i, err)
		}
		// Single quotes in the name would break the concat manifest quoting,
		// but names are generated here so a plain line is safe.
		fmt.Fprintf(manifest, "file '%s'\n", name)
	}

	manifestPath := filepath.Join(scratch, "list.txt")
	if err := os.WriteFile(manifestPath, []byte(manifest.String()), 0o644); err != nil {
		return "", fmt.Errorf("write concat manifest: %w", err)
	}

	outPath := filepath.Join(scratch, "out.mp4")
	if err := a.transcoder.Concat(ctx, manifestPath, outPath); err != nil {
		return "", err
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return "", fmt.Errorf("read assembled video: %w", err)
	}

	key := "assemblies/" + assemblyID + ".mp4"
	url, err := a.store.Put(ctx, key, data, "video/mp4")
	if err != nil {
		return "", fmt.Errorf("publish assembled video: %w", err)
	}
	a.logger.Info().Str("assembly_id", assemblyID).Int("clips", len(clipURLs)).Str("url", url).Msg("assembly published")
	return url, nil
}

func (a *Assembler) fetchClip(ctx context.Context, clipURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, clipURL, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", clipURL, err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", clipURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fetch %s: upstream returned %d", clipURL, resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	defer f.Close()

	// Read one byte past the cap so an over-sized clip is detected and the
	// assembly aborts instead of concatenating a truncated file.
	n, err := io.Copy(f, io.LimitReader(resp.Body, a.maxClipSize+1))
	if err != nil {
		return fmt.Errorf("download %s: %w", clipURL, err)
	}
	if n > a.maxClipSize {
		return fmt.Errorf("fetch %s: clip exceeds %d bytes", clipURL, a.maxClipSize)
	}
	return nil
}
