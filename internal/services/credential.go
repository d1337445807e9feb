package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
)

const (
	// Standard Azurite account name and key
	azuriteAccountName = "devstoreaccount1"
	azuriteAccountKey  = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
)

// isLocal checks if the service URL indicates a local environment (starts with http).
func isLocal(serviceURL string) bool {
	return strings.HasPrefix(serviceURL, "http:")
}

func newDefaultAzureCredential(service string) (azcore.TokenCredential, error) {
	slog.Info("using default Azure credentials", "service", service)
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create default azure credential: %w", err)
	}
	return cred, nil
}

func newTableServiceClient(serviceURL string) (*aztables.ServiceClient, error) {
	if isLocal(serviceURL) {
		slog.Info("using Azurite shared key credentials", "service", "table")
		cred, err := aztables.NewSharedKeyCredential(azuriteAccountName, azuriteAccountKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		return aztables.NewServiceClientWithSharedKey(serviceURL, cred, nil)
	}
	cred, err := newDefaultAzureCredential("table")
	if err != nil {
		return nil, err
	}
	return aztables.NewServiceClient(serviceURL, cred, nil)
}

func newBlobClient(serviceURL string) (*azblob.Client, error) {
	if isLocal(serviceURL) {
		slog.Info("using Azurite shared key credentials", "service", "blob")
		cred, err := azblob.NewSharedKeyCredential(azuriteAccountName, azuriteAccountKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		return azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	}
	cred, err := newDefaultAzureCredential("blob")
	if err != nil {
		return nil, err
	}
	return azblob.NewClient(serviceURL, cred, nil)
}

func newQueueServiceClient(serviceURL string) (*azqueue.ServiceClient, error) {
	if isLocal(serviceURL) {
		slog.Info("using Azurite shared key credentials", "service", "queue")
		cred, err := azqueue.NewSharedKeyCredential(azuriteAccountName, azuriteAccountKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		return azqueue.NewServiceClientWithSharedKeyCredential(serviceURL, cred, nil)
	}
	cred, err := newDefaultAzureCredential("queue")
	if err != nil {
		return nil, err
	}
	return azqueue.NewServiceClient(serviceURL, cred, nil)
}

// hasErrorCode reports whether err is an Azure response error with one of codes.
func hasErrorCode(err error, codes ...string) bool {
	var azErr *azcore.ResponseError
	if !errors.As(err, &azErr) {
		return false
	}
	for _, code := range codes {
		if azErr.ErrorCode == code {
			return true
		}
	}
	return false
}
