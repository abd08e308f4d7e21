// Package s3 adapts Amazon S3 and S3-compatible services (Backblaze B2,
// DreamObjects, Wasabi) to storage.Backend.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/thebluefowl/mediastash/internal/storage"
)

// Compile-time check to ensure Client implements storage.Backend.
var _ storage.Backend = (*Client)(nil)

const defaultRegion = "us-east-1"

// Client wraps an S3 client and its uploader.
type Client struct {
	client     *s3.Client
	uploader   *manager.Uploader
	endpoint     string
	publicBase   string
	publicBucket string
}

// Opts holds options to initialize the client.
type Opts struct {
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
	// PublicBase overrides the URL prefix used for objects in
	// PublicBucket, e.g. a CDN in front of that bucket. Other buckets
	// keep endpoint URLs.
	PublicBase   string
	PublicBucket string
	PartSizeMB   int64 // default 16
	Concurrency  int   // default 4
}

// New builds a client. Static credentials are used when both keys are
// set; otherwise the default AWS credential chain applies.
func New(ctx context.Context, opts Opts) (*Client, error) {
	if opts.PartSizeMB <= 0 {
		opts.PartSizeMB = 16
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Region == "" {
		opts.Region = defaultRegion
	}
	if opts.Endpoint != "" && !strings.Contains(opts.Endpoint, "://") {
		opts.Endpoint = "https://" + opts.Endpoint
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, opts.SessionToken)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{
		client: client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = opts.PartSizeMB * 1024 * 1024
			u.Concurrency = opts.Concurrency
		}),
		endpoint:     strings.TrimRight(opts.Endpoint, "/"),
		publicBase:   strings.TrimRight(opts.PublicBase, "/"),
		publicBucket: opts.PublicBucket,
	}, nil
}

// Put uploads data to the specified key with metadata and a canned ACL.
func (c *Client) Put(ctx context.Context, bucket, key string, data []byte, metadata map[string]string, acl storage.ACL) error {
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         cannedACL(acl),
	}
	if len(metadata) > 0 {
		input.Metadata = metadata
	}

	if _, err := c.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("upload %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Get retrieves an object with its user metadata.
func (c *Client) Get(ctx context.Context, bucket, key string) ([]byte, map[string]string, error) {
	result, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read object %s/%s: %w", bucket, key, err)
	}
	return data, storage.NormalizeMetadata(result.Metadata), nil
}

// List lists all objects in the bucket under prefix, following
// pagination.
func (c *Client) List(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	var objects []storage.ObjectInfo

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	paginator := s3.NewListObjectsV2Paginator(c.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects in %s: %w", bucket, err)
		}
		for _, obj := range page.Contents {
			info := storage.ObjectInfo{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
				ETag: strings.Trim(aws.ToString(obj.ETag), `"`),
			}
			if obj.LastModified != nil {
				info.LastModified = *obj.LastModified
			}
			objects = append(objects, info)
		}
	}
	return objects, nil
}

// URL returns the public address of key.
func (c *Client) URL(bucket, key string) string {
	return objectURL(c.publicBase, c.publicBucket, c.endpoint, bucket, key)
}

// Close is a no-op; the SDK client holds no resources that need
// releasing.
func (c *Client) Close() error { return nil }

func objectURL(publicBase, publicBucket, endpoint, bucket, key string) string {
	switch {
	case publicBase != "" && bucket == publicBucket:
		return publicBase + "/" + key
	case endpoint != "":
		return endpoint + "/" + bucket + "/" + key
	default:
		return "https://s3.amazonaws.com/" + bucket + "/" + key
	}
}

func cannedACL(acl storage.ACL) types.ObjectCannedACL {
	if acl == storage.ACLPrivate {
		return types.ObjectCannedACLPrivate
	}
	return types.ObjectCannedACLPublicRead
}
