// Package azure adapts Azure Blob Storage to storage.Backend. The
// storage container identifier maps to an Azure blob container.
package azure

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	"github.com/thebluefowl/mediastash/internal/storage"
)

var _ storage.Backend = (*Client)(nil)

// Client wraps an azblob service client.
type Client struct {
	client  *azblob.Client
	baseURL string
}

// New connects with a storage account connection string.
func New(connectionString string) (*Client, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("azure: connection string is required")
	}
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("azure: create client: %w", err)
	}
	return &Client{client: client, baseURL: strings.TrimRight(client.URL(), "/")}, nil
}

// Put uploads data as a block blob. Public access is configured on the
// container in Azure, so acl is not sent per blob.
func (c *Client) Put(ctx context.Context, container, key string, data []byte, metadata map[string]string, _ storage.ACL) error {
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := c.client.UploadBuffer(ctx, container, key, data, &azblob.UploadBufferOptions{
		Metadata:    encodeMetadata(metadata),
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType)},
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", container, key, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, container, key string) ([]byte, map[string]string, error) {
	resp, err := c.client.DownloadStream(ctx, container, key, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("download %s/%s: %w", container, key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s/%s: %w", container, key, err)
	}
	return data, decodeMetadata(resp.Metadata), nil
}

func (c *Client) List(ctx context.Context, container, prefix string) ([]storage.ObjectInfo, error) {
	var opts azblob.ListBlobsFlatOptions
	if prefix != "" {
		opts.Prefix = to.Ptr(prefix)
	}

	var out []storage.ObjectInfo
	pager := c.client.NewListBlobsFlatPager(container, &opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list blobs in %s: %w", container, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item == nil || item.Name == nil {
				continue
			}
			info := storage.ObjectInfo{Key: *item.Name}
			if p := item.Properties; p != nil {
				if p.ContentLength != nil {
					info.Size = *p.ContentLength
				}
				if p.LastModified != nil {
					info.LastModified = *p.LastModified
				}
				if p.ETag != nil {
					info.ETag = string(*p.ETag)
				}
			}
			out = append(out, info)
		}
	}
	return out, nil
}

func (c *Client) URL(container, key string) string {
	return c.baseURL + "/" + container + "/" + key
}

func (c *Client) Close() error { return nil }

// Azure metadata names must be C# identifiers, so the hyphens in
// provider identifiers travel as underscores.

func encodeMetadata(in map[string]string) map[string]*string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]*string, len(in))
	for k, v := range in {
		out[strings.ReplaceAll(k, "-", "_")] = to.Ptr(v)
	}
	return out
}

func decodeMetadata(in map[string]*string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if v == nil {
			continue
		}
		out[strings.ReplaceAll(strings.ToLower(k), "_", "-")] = *v
	}
	return out
}
