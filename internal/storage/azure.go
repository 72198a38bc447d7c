// Package storage persists emote image assets in Azure Blob Storage and
// reads them back for listing and direct retrieval.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	azStorageBlob "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// Azurite well-known development credentials.
// See: https://learn.microsoft.com/en-us/azure/storage/common/storage-use-azurite
const (
	azuriteAccount     = "devstoreaccount1"
	azuriteKey         = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
	azuriteEndpointURL = "http://127.0.0.1:10000/devstoreaccount1/"
)

// ErrBlobNotFound reports that the requested blob does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// BlobInfo describes one stored asset.
type BlobInfo struct {
	Name         string
	Size         int64
	LastModified time.Time
}

// Object is an opened blob stream. The caller owns Body and must close it.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Storer reads and writes blobs in a single container.
type Storer struct {
	container string

	containerURL    string
	serviceClient   *azStorageBlob.ServiceClient
	containerClient *azStorageBlob.ContainerClient

	logger *slog.Logger
}

// New constructs a Storer from a storage account's shared key. endpointURL
// may be empty, in which case the public Azure endpoint for the account is
// used.
func New(account, key, endpointURL, container string, logger *slog.Logger) (*Storer, error) {
	if account == "" || key == "" {
		return nil, errors.New("storage account name and key are required")
	}
	if endpointURL == "" {
		endpointURL = fmt.Sprintf("https://%s.blob.core.windows.net/", account)
	}
	return newStorer(account, key, endpointURL, container, logger)
}

// NewDev constructs a Storer wired to a local azurite emulator using its
// well-known account and key.
func NewDev(container string, logger *slog.Logger) (*Storer, error) {
	return newStorer(azuriteAccount, azuriteKey, azuriteEndpointURL, container, logger)
}

func newStorer(account, key, endpointURL, container string, logger *slog.Logger) (*Storer, error) {
	if container == "" {
		return nil, errors.New("storage container is unspecified")
	}

	cred, err := azStorageBlob.NewSharedKeyCredential(account, key)
	if err != nil {
		return nil, fmt.Errorf("storage credential: %w", err)
	}

	endpointURL = strings.TrimSuffix(endpointURL, "/") + "/"

	s := &Storer{
		container:    container,
		containerURL: endpointURL + container,
		logger:       logger.With(slog.String("component", "storage")),
	}

	s.serviceClient, err = azStorageBlob.NewServiceClientWithSharedKey(endpointURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("storage service client %s: %w", endpointURL, err)
	}
	s.containerClient, err = s.serviceClient.NewContainerClient(container)
	if err != nil {
		return nil, fmt.Errorf("storage container client %s: %w", container, err)
	}

	return s, nil
}

// URL returns the public URL of a blob. It does not check existence.
func (s *Storer) URL(name string) string {
	return s.containerURL + "/" + name
}

// Available reports whether the container is reachable.
func (s *Storer) Available(ctx context.Context) error {
	if _, err := s.containerClient.GetProperties(ctx, nil); err != nil {
		return fmt.Errorf("container %s unavailable: %w", s.container, err)
	}
	return nil
}

// Upload stores data under name unless a blob with that name already exists,
// and returns the blob URL either way. Existing assets are never replaced:
// emote images are immutable once mirrored.
func (s *Storer) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	blobClient, err := s.containerClient.NewBlobClient(name)
	if err != nil {
		return "", fmt.Errorf("blob client %q: %w", name, err)
	}

	_, err = blobClient.GetProperties(ctx, nil)
	if err == nil {
		s.logger.Debug("blob already stored", slog.String("name", name))
		return s.URL(name), nil
	}
	if !isStorageNotFound(err) {
		return "", fmt.Errorf("probe blob %q: %w", name, err)
	}

	blockClient, err := s.containerClient.NewBlockBlobClient(name)
	if err != nil {
		return "", fmt.Errorf("block blob client %q: %w", name, err)
	}

	_, err = blockClient.Upload(ctx, newBytesReadSeekCloser(data), &azStorageBlob.BlockBlobUploadOptions{
		HTTPHeaders: &azStorageBlob.BlobHTTPHeaders{
			BlobContentType: &contentType,
		},
	})
	if err != nil {
		return "", fmt.Errorf("upload blob %q: %w", name, err)
	}

	s.logger.Debug("blob uploaded", slog.String("name", name), slog.Int("size", len(data)))
	return s.URL(name), nil
}

// List returns every blob under prefix, across all result pages.
func (s *Storer) List(ctx context.Context, prefix string) ([]BlobInfo, error) {
	o := azStorageBlob.ContainerListBlobsFlatOptions{}
	if prefix != "" {
		o.Prefix = &prefix
	}

	var infos []BlobInfo
	pager := s.containerClient.ListBlobsFlat(&o)
	for pager.NextPage(ctx) {
		resp := pager.PageResponse()
		for _, item := range resp.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			info := BlobInfo{Name: *item.Name}
			if p := item.Properties; p != nil {
				if p.ContentLength != nil {
					info.Size = *p.ContentLength
				}
				if p.LastModified != nil {
					info.LastModified = *p.LastModified
				}
			}
			infos = append(infos, info)
		}
	}
	if err := pager.Err(); err != nil {
		return nil, fmt.Errorf("list blobs %q: %w", prefix, err)
	}

	return infos, nil
}

// Open downloads a blob as a stream. Returns ErrBlobNotFound when the blob
// does not exist.
func (s *Storer) Open(ctx context.Context, name string) (*Object, error) {
	blobClient, err := s.containerClient.NewBlobClient(name)
	if err != nil {
		return nil, fmt.Errorf("blob client %q: %w", name, err)
	}

	resp, err := blobClient.Download(ctx, &azStorageBlob.BlobDownloadOptions{})
	if err != nil {
		if isStorageNotFound(err) {
			return nil, fmt.Errorf("%q: %w", name, ErrBlobNotFound)
		}
		return nil, fmt.Errorf("download blob %q: %w", name, err)
	}

	obj := &Object{Body: resp.Body(nil)}
	if resp.ContentType != nil {
		obj.ContentType = *resp.ContentType
	}
	if resp.ContentLength != nil {
		obj.Size = *resp.ContentLength
	}
	return obj, nil
}

// IsNotFound reports whether err means the blob does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBlobNotFound) || isStorageNotFound(err)
}

func isStorageNotFound(err error) bool {
	var serr *azStorageBlob.StorageError
	if errors.As(err, &serr) {
		return serr.ErrorCode == azStorageBlob.StorageErrorCodeBlobNotFound
	}
	return false
}
