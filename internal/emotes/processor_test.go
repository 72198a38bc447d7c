package emotes

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emotevault/emotevault/internal/seventv"
)

type fakeUploader struct {
	mu      sync.Mutex
	uploads map[string]string
	fail    bool
}

func (f *fakeUploader) Upload(_ context.Context, name string, _ []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", assert.AnError
	}
	if f.uploads == nil {
		f.uploads = make(map[string]string)
	}
	f.uploads[name] = contentType
	return "https://store.example.com/" + name, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func assetServer(t *testing.T, status int, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testEmote(srvURL, id, name string) seventv.Emote {
	return seventv.Emote{
		ID:   id,
		Name: name,
		Host: seventv.EmoteHost{
			URL: srvURL + "/emote/" + id,
			Files: []seventv.HostFile{
				{Name: "4x.webp", Format: "WEBP", Width: 128, Height: 128},
			},
		},
	}
}

func TestMirrorBatchUploadsInOrder(t *testing.T) {
	srv := assetServer(t, http.StatusOK, []byte("imagedata"))
	blobs := &fakeUploader{}
	p := NewProcessor(blobs, srv.Client(), discardLogger(), 4)

	batch := []seventv.Emote{
		testEmote(srv.URL, "a1", "Kappa"),
		testEmote(srv.URL, "b2", "PogU"),
	}

	got := p.MirrorBatch(context.Background(), batch, FolderSearch)
	require.Len(t, got, 2)

	assert.Equal(t, "Kappa.webp", got[0].FileName)
	assert.Equal(t, "a1", got[0].EmoteID)
	assert.Equal(t, "https://store.example.com/emote_api/Kappa.webp", got[0].URL)
	assert.Equal(t, "PogU.webp", got[1].FileName)

	assert.Equal(t, "image/webp", blobs.uploads["emote_api/Kappa.webp"])
}

func TestMirrorBatchSkipsDownloadFailures(t *testing.T) {
	srv := assetServer(t, http.StatusNotFound, nil)
	p := NewProcessor(&fakeUploader{}, srv.Client(), discardLogger(), 2)

	got := p.MirrorBatch(context.Background(), []seventv.Emote{
		testEmote(srv.URL, "a1", "Kappa"),
	}, FolderSearch)
	assert.Empty(t, got)
}

func TestMirrorBatchSkipsUploadFailures(t *testing.T) {
	srv := assetServer(t, http.StatusOK, []byte("imagedata"))
	p := NewProcessor(&fakeUploader{fail: true}, srv.Client(), discardLogger(), 2)

	got := p.MirrorBatch(context.Background(), []seventv.Emote{
		testEmote(srv.URL, "a1", "Kappa"),
	}, FolderTrending)
	assert.Empty(t, got)
}

func TestMirrorBatchSkipsEmotesWithoutFiles(t *testing.T) {
	p := NewProcessor(&fakeUploader{}, http.DefaultClient, discardLogger(), 2)

	got := p.MirrorBatch(context.Background(), []seventv.Emote{
		{ID: "a1", Name: "Empty"},
	}, FolderSearch)
	assert.Empty(t, got)
}

func TestFileTypeSniffsUnknownFormats(t *testing.T) {
	gif := []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00")
	ext, contentType := fileType(seventv.HostFile{Format: "MYSTERY"}, gif)
	assert.Equal(t, ".gif", ext)
	assert.Equal(t, "image/gif", contentType)
}

func TestFileTypeKnownFormat(t *testing.T) {
	ext, contentType := fileType(seventv.HostFile{Format: "AVIF"}, nil)
	assert.Equal(t, ".avif", ext)
	assert.Equal(t, "image/avif", contentType)
}

func TestSafeFileName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Kappa", "Kappa"},
		{"peepo Happy", "peepo Happy"},
		{"emote.v2_final-1", "emote.v2_final-1"},
		{"catJAM!?", "catJAM__"},
		{"日本語", "___"},
		{"", "emote"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SafeFileName(tc.in), "input %q", tc.in)
	}
}
