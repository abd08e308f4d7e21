// Package minio adapts a MinIO (or any S3-compatible) server to
// storage.Backend using minio-go.
package minio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/thebluefowl/mediastash/internal/storage"
)

var _ storage.Backend = (*Storage)(nil)

// Storage implements storage.Backend on a MinIO client.
type Storage struct {
	client     *minio.Client
	endpoint   string
	secure       bool
	publicBase   string
	publicBucket string
}

// Opts configures the client.
type Opts struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Token     string
	UseSSL    bool
	// PublicBase is the browser-accessible base URL for PublicBucket,
	// e.g. "http://localhost:9000/media". Empty, or any other bucket,
	// derives it from the endpoint.
	PublicBase   string
	PublicBucket string
	// EnsureBuckets are created when missing. When PublicRead is set
	// they also get an anonymous-read policy, since MinIO has no
	// per-object ACLs.
	EnsureBuckets []string
	PublicRead    bool
	Logger        *slog.Logger
}

// New creates a MinIO client and prepares the requested buckets.
func New(ctx context.Context, opts Opts) (*Storage, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, opts.Token),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	for _, bucket := range opts.EnsureBuckets {
		exists, err := client.BucketExists(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("check bucket existence: %w", err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
				return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
			}
			opts.Logger.Info("created bucket", "bucket", bucket)
		}
		if opts.PublicRead {
			if err := client.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
				return nil, fmt.Errorf("set bucket policy: %w", err)
			}
		}
	}

	return &Storage{
		client:       client,
		endpoint:     opts.Endpoint,
		secure:       opts.UseSSL,
		publicBase:   strings.TrimRight(opts.PublicBase, "/"),
		publicBucket: opts.PublicBucket,
	}, nil
}

// Put uploads data under key. Access policy is a bucket-level setting
// on MinIO, so acl is not sent per object.
func (s *Storage) Put(ctx context.Context, bucket, key string, data []byte, metadata map[string]string, _ storage.ACL) error {
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Get(ctx context.Context, bucket, key string) ([]byte, map[string]string, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("get object %q: %w", key, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat object %q: %w", key, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, nil, fmt.Errorf("read object %q: %w", key, err)
	}
	return data, storage.NormalizeMetadata(info.UserMetadata), nil
}

func (s *Storage) List(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for obj := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects in %s: %w", bucket, obj.Err)
		}
		out = append(out, storage.ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ETag:         obj.ETag,
		})
	}
	return out, nil
}

// URL returns the browser-accessible URL for the given key.
func (s *Storage) URL(bucket, key string) string {
	if s.publicBase != "" && bucket == s.publicBucket {
		return s.publicBase + "/" + key
	}
	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, bucket, key)
}

func (s *Storage) Close() error { return nil }

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{
			{
				"Effect":    "Allow",
				"Principal": map[string]any{"AWS": []string{"*"}},
				"Action":    []string{"s3:GetObject"},
				"Resource":  []string{fmt.Sprintf("arn:aws:s3:::%s/*", bucket)},
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
