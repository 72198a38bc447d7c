// Package emotes mirrors 7TV emote images into blob storage.
package emotes

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/emotevault/emotevault/internal/seventv"
)

// Blob folders the service writes into. Listing endpoints read the same
// prefixes, so these are part of the storage layout contract.
const (
	FolderSearch   = "emote_api"
	FolderTrending = "trending_emotes"
)

const (
	userAgent       = "EmoteVault/1.0"
	maxAssetBytes   = 16 << 20
	defaultWorkers  = 10
	fallbackFileExt = ".png"
)

var formatExtensions = map[string]string{
	"WEBP": ".webp",
	"GIF":  ".gif",
	"AVIF": ".avif",
	"PNG":  ".png",
}

var formatContentTypes = map[string]string{
	"WEBP": "image/webp",
	"GIF":  "image/gif",
	"AVIF": "image/avif",
	"PNG":  "image/png",
}

// StoredEmote is the API-facing record for a mirrored emote.
type StoredEmote struct {
	FileName  string `json:"fileName"`
	URL       string `json:"url"`
	EmoteID   string `json:"emoteId"`
	EmoteName string `json:"emoteName"`
}

// Uploader stores an asset and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// Processor downloads emote images and uploads them to blob storage.
type Processor struct {
	blobs   Uploader
	httpc   *http.Client
	logger  *slog.Logger
	workers int
}

// NewProcessor constructs a Processor. workers bounds how many emotes are
// mirrored concurrently; values below 1 fall back to the default.
func NewProcessor(blobs Uploader, httpc *http.Client, logger *slog.Logger, workers int) *Processor {
	if workers < 1 {
		workers = defaultWorkers
	}
	return &Processor{
		blobs:   blobs,
		httpc:   httpc,
		logger:  logger.With(slog.String("component", "mirror")),
		workers: workers,
	}
}

// MirrorBatch mirrors each emote's best image file into folder and returns
// the records that succeeded, in input order. Individual failures are logged
// and skipped so one broken asset does not fail the whole request.
func (p *Processor) MirrorBatch(ctx context.Context, batch []seventv.Emote, folder string) []StoredEmote {
	results := make([]*StoredEmote, len(batch))

	g := new(errgroup.Group)
	g.SetLimit(p.workers)
	for i, emote := range batch {
		g.Go(func() error {
			stored, err := p.mirrorOne(ctx, emote, folder)
			if err != nil {
				p.logger.Warn("mirror emote failed",
					slog.String("emote", emote.Name),
					slog.String("id", emote.ID),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = stored
			return nil
		})
	}
	_ = g.Wait()

	return lo.FilterMap(results, func(r *StoredEmote, _ int) (StoredEmote, bool) {
		if r == nil {
			return StoredEmote{}, false
		}
		return *r, true
	})
}

func (p *Processor) mirrorOne(ctx context.Context, emote seventv.Emote, folder string) (*StoredEmote, error) {
	file, ok := seventv.BestFile(emote)
	if !ok {
		return nil, fmt.Errorf("no files available")
	}

	data, err := p.download(ctx, seventv.FileURL(emote, file))
	if err != nil {
		return nil, err
	}

	ext, contentType := fileType(file, data)
	fileName := SafeFileName(emote.Name) + ext
	blobName := folder + "/" + fileName

	url, err := p.blobs.Upload(ctx, blobName, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", blobName, err)
	}

	return &StoredEmote{
		FileName:  fileName,
		URL:       url,
		EmoteID:   emote.ID,
		EmoteName: emote.Name,
	}, nil
}

func (p *Processor) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return data, nil
}

// fileType maps the 7TV format name to an extension and content type,
// sniffing the bytes when the format is not one we know.
func fileType(file seventv.HostFile, data []byte) (ext, contentType string) {
	if e, ok := formatExtensions[file.Format]; ok {
		return e, formatContentTypes[file.Format]
	}
	mt := mimetype.Detect(data)
	if mt.Extension() != "" {
		return mt.Extension(), mt.String()
	}
	return fallbackFileExt, "image/png"
}

// SafeFileName keeps letters, digits, and "._- " from an emote name,
// replacing everything else with underscores.
func SafeFileName(name string) string {
	if name == "" {
		return "emote"
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-' || r == ' ':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
