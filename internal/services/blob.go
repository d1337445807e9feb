package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
)

const contentTypeHTML = "text/html; charset=utf-8"

// BlobService handles interactions with Azure Blob Storage.
type BlobService struct {
	client *azblob.Client
}

// NewBlobService creates a new BlobService instance.
func NewBlobService(blobURL string) (*BlobService, error) {
	if blobURL == "" {
		return nil, fmt.Errorf("blob service URL is required")
	}

	slog.Info("initializing blob service", "blob_url", blobURL)
	client, err := newBlobClient(blobURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	slog.Info("blob service initialized successfully")
	return &BlobService{client: client}, nil
}

func (s *BlobService) ensureContainer(ctx context.Context, containerName string) {
	if _, err := s.client.CreateContainer(ctx, containerName, nil); err != nil && !hasErrorCode(err, "ContainerAlreadyExists") {
		slog.Warn("failed to create container", "container", containerName, "error", err)
	}
}

// UploadText uploads a string to a blob.
func (s *BlobService) UploadText(ctx context.Context, containerName, blobName, text string) error {
	return s.upload(ctx, containerName, blobName, []byte(text), nil)
}

// UploadHTML uploads a rendered document so browsers display it inline.
func (s *BlobService) UploadHTML(ctx context.Context, containerName, blobName, html string) error {
	contentType := contentTypeHTML
	return s.upload(ctx, containerName, blobName, []byte(html), &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
}

func (s *BlobService) upload(ctx context.Context, containerName, blobName string, data []byte, opts *azblob.UploadBufferOptions) error {
	slog.Info("uploading blob", "container", containerName, "blob_name", blobName, "size_bytes", len(data))
	s.ensureContainer(ctx, containerName)

	if _, err := s.client.UploadBuffer(ctx, containerName, blobName, data, opts); err != nil {
		slog.Error("failed to upload blob", "container", containerName, "blob_name", blobName, "error", err)
		return fmt.Errorf("failed to upload blob %s/%s: %w", containerName, blobName, err)
	}
	slog.Info("successfully uploaded blob", "container", containerName, "blob_name", blobName)
	return nil
}

// DownloadText downloads a blob and returns its content as a string.
func (s *BlobService) DownloadText(ctx context.Context, containerName, blobName string) (string, error) {
	slog.Info("downloading blob", "container", containerName, "blob_name", blobName)
	resp, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		slog.Error("failed to download blob", "container", containerName, "blob_name", blobName, "error", err)
		return "", fmt.Errorf("failed to download blob %s/%s: %w", containerName, blobName, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read blob content: %w", err)
	}

	slog.Info("successfully downloaded blob", "container", containerName, "blob_name", blobName, "size_bytes", len(data))
	return string(data), nil
}
